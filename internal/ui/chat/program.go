// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/askthread/internal/config"
	"github.com/jeranaias/askthread/internal/session"
)

// Subscriber is a Controller that also reports changes.
type Subscriber interface {
	Controller
	Subscribe(fn func(session.View)) (unsubscribe func())
}

// RunOptions configures Run.
type RunOptions struct {
	Options

	// ConfigPath, when set, is watched and UI settings are applied live.
	ConfigPath string
	// AltScreen runs the program in the alternate screen buffer.
	AltScreen bool
}

// Run shows the chat view until the user quits or ctx is done. The caller
// runs the session's event loop.
func Run(ctx context.Context, sess Subscriber, opts RunOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := opts.Logger.With().Str("component", "tui").Logger()

	progOpts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithMouseCellMotion()}
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	p := tea.NewProgram(New(sess, opts.Options), progOpts...)

	// Session callbacks run inside intents, which run inside Update, and
	// Send blocks until Update returns. Signals are therefore coalesced
	// into a one-slot channel and forwarded from a separate goroutine.
	changed := make(chan struct{}, 1)
	unsubscribe := sess.Subscribe(func(session.View) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				p.Send(ViewChangedMsg{})
			}
		}
	}()

	if opts.ConfigPath != "" {
		go func() {
			err := config.Watch(ctx, opts.ConfigPath, log, func(cfg *config.Config) {
				p.Send(UIConfigMsg(cfg.UI))
			})
			if err != nil {
				log.Warn().Err(err).Msg("config hot reload disabled")
			}
		}()
	}

	log.Debug().Msg("tui started")
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
