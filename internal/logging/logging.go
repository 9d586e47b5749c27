// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options selects where and how much to log.
type Options struct {
	// Level is a zerolog level name; empty means info.
	Level string
	// File receives JSON logs when set. Otherwise logs go to Console.
	File string
	// Console is the fallback writer, usually stderr. Nil disables console logging.
	Console io.Writer
	// NoColor disables ANSI colours on the console writer.
	NoColor bool
}

// New builds a logger and installs it as the zerolog global logger.
// The returned close function releases the log file, if any.
func New(opts Options) (zerolog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), noop, err
	}

	var (
		w       io.Writer
		closeFn = noop
	)
	switch {
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("failed to open log file: %w", err)
		}
		w, closeFn = f, f.Close
	case opts.Console != nil:
		w = zerolog.ConsoleWriter{Out: opts.Console, NoColor: opts.NoColor, TimeFormat: time.Kitchen}
	default:
		w = io.Discard
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger, closeFn, nil
}

// ParseLevel accepts zerolog level names case-insensitively; "" is info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func noop() error { return nil }
