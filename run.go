// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/jeranaias/askthread/internal/answer"
	askcli "github.com/jeranaias/askthread/internal/cli"
	"github.com/jeranaias/askthread/internal/config"
	"github.com/jeranaias/askthread/internal/logging"
	"github.com/jeranaias/askthread/internal/session"
	"github.com/jeranaias/askthread/internal/telemetry"
	"github.com/jeranaias/askthread/internal/ui/chat"
	"github.com/jeranaias/askthread/internal/ui/markdown"
)

// serviceClient is an answer.Client owning background resources.
type serviceClient interface {
	answer.Client
	Close() error
}

// runtime holds everything a front end needs, built once per command.
type runtime struct {
	cfg        *config.Config
	configPath string
	log        zerolog.Logger
	metrics    *telemetry.Metrics
	client     serviceClient
	sess       *session.Session

	ctx    context.Context
	cancel context.CancelFunc
	// done is closed when the session loop has returned.
	done     chan struct{}
	closeLog func() error
}

// setup loads config, logging and the answer client, then starts a session.
// interactiveScreen is true for the TUI, which owns the terminal and so
// logs only to a file.
func setup(c *cli.Context, interactiveScreen bool) (*runtime, error) {
	path, err := resolveConfigPath(c)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}

	logOpts := logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		NoColor: !askcli.ColorsEnabled(),
	}
	if !interactiveScreen {
		logOpts.Console = os.Stderr
	}
	log, closeLog, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}

	client, err := newClient(c.Bool("demo"), cfg, log)
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	metrics := telemetry.New()
	sess := session.New(client, session.Options{
		Logger:        log,
		ConfirmDelay:  cfg.Feedback.ConfirmDelay(),
		StoreHooks:    metrics.StoreHooks(),
		FeedbackHooks: metrics.FeedbackHooks(),
	})

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGTERM)
	rt := &runtime{
		cfg:        cfg,
		configPath: path,
		log:        log,
		metrics:    metrics,
		client:     client,
		sess:       sess,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		closeLog:   closeLog,
	}

	go func() {
		defer close(rt.done)
		if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("session stopped")
		}
	}()

	if addr := c.String("metrics-addr"); addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, log); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	log.Debug().Str("session", sess.ID()).Str("config", path).Bool("demo", c.Bool("demo")).Msg("session started")
	return rt, nil
}

// close stops the session, waits for feedback in flight and releases the
// client and log file.
func (rt *runtime) close() {
	rt.sess.Wait()
	rt.cancel()
	<-rt.done
	if err := rt.client.Close(); err != nil {
		rt.log.Debug().Err(err).Msg("closing answer client")
	}
	rt.log.Debug().
		Dur("duration", time.Since(rt.sess.StartTime())).
		Dur("idle", rt.sess.IdleTime()).
		Str("stats", strings.ReplaceAll(rt.metrics.Stats().String(), "\n", "; ")).
		Msg("session ended")
	_ = rt.closeLog()
}

func newClient(demo bool, cfg *config.Config, log zerolog.Logger) (serviceClient, error) {
	if demo {
		return answer.NewDemoClient(0, log), nil
	}
	client, err := answer.NewHTTPClient(answer.HTTPConfig{
		BaseURL:       cfg.Service.BaseURL,
		IntegrationID: cfg.Service.IntegrationID,
		Timeout:       cfg.Service.Timeout(),
		Logger:        log,
	})
	if errors.Is(err, answer.ErrNotConfigured) {
		return nil, fmt.Errorf("%w: set service.base_url (askthread config set service.base_url URL) or run with --demo", err)
	}
	return client, err
}

func resolveConfigPath(c *cli.Context) (string, error) {
	if path := c.String("config"); path != "" {
		return path, nil
	}
	return config.ConfigPath()
}

// renderWidth is the width answers are rendered at outside the TUI.
func renderWidth(cfg *config.Config) int {
	if cfg.UI.WordWrap > 0 {
		return cfg.UI.WordWrap
	}
	return askcli.TerminalWidth()
}

// =============================================================================
// FRONT ENDS
// =============================================================================

func runTUI(c *cli.Context) error {
	rt, err := setup(c, true)
	if err != nil {
		return err
	}
	defer rt.close()

	return chat.Run(rt.ctx, rt.sess, chat.RunOptions{
		Options: chat.Options{
			UI:        rt.cfg.UI,
			ExportDir: ".",
			Logger:    rt.log,
		},
		ConfigPath: rt.configPath,
		AltScreen:  true,
	})
}

func runREPL(c *cli.Context) error {
	rt, err := setup(c, false)
	if err != nil {
		return err
	}
	defer rt.close()

	opts := askcli.REPLOptions{
		Out:       c.App.Writer,
		Err:       c.App.ErrWriter,
		ExportDir: ".",
		Stats:     rt.metrics.Stats,
		Logger:    rt.log,
	}
	if dir, err := config.ConfigDir(); err == nil {
		opts.HistoryDir = dir
	}
	if rt.cfg.UI.Markdown && askcli.IsStdoutTTY() {
		opts.Markdown = markdown.New(rt.cfg.UI.Theme, renderWidth(rt.cfg))
	}
	return askcli.NewREPL(rt.sess, opts).Run(rt.ctx)
}

func runAsk(c *cli.Context) error {
	question, err := readQuestion(c)
	if err != nil {
		return err
	}

	rt, err := setup(c, false)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithTimeout(rt.ctx, c.Duration("timeout"))
	defer cancel()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	opts := askcli.AskOptions{
		Format:     c.String("format"),
		Out:        c.App.Writer,
		Profile:    askcli.ColorProfile(),
		Interrupts: interrupts,
		Notices:    c.App.ErrWriter,
	}
	if rt.cfg.UI.Markdown && askcli.IsStdoutTTY() {
		opts.Markdown = markdown.New(rt.cfg.UI.Theme, renderWidth(rt.cfg))
	}
	return askcli.Ask(ctx, rt.sess, question, opts)
}

// readQuestion takes the question from the arguments, or from stdin when it
// is piped.
func readQuestion(c *cli.Context) (string, error) {
	if c.Args().Present() {
		return strings.Join(c.Args().Slice(), " "), nil
	}
	if askcli.IsTTY() {
		return "", cli.Exit("usage: askthread ask QUESTION", 2)
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read question: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
