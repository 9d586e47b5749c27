// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultWatchDebounce coalesces the burst of events an editor save produces.
const DefaultWatchDebounce = 150 * time.Millisecond

// Watch reloads the config at path whenever the file changes and passes the
// result to onChange. Edits that fail to load or validate are logged and
// skipped, so onChange only ever sees valid configs. Watch blocks until ctx
// is done.
//
// The parent directory is watched rather than the file itself because
// editors and AtomicWriteFile replace the file by rename.
func Watch(ctx context.Context, path string, log zerolog.Logger, onChange func(*Config)) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	log = log.With().Str("component", "config").Str("path", absPath).Logger()

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(DefaultWatchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("config watcher error")

		case <-debounce.C:
			cfg, err := Load(absPath)
			if err != nil {
				log.Warn().Err(err).Msg("ignoring invalid config change")
				continue
			}
			log.Info().Msg("config reloaded")
			onChange(cfg)
		}
	}
}
