// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package answer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DemoClient answers every question locally with a canned markdown reply,
// streamed word by word. It lets the front-ends run without a service.
type DemoClient struct {
	delay time.Duration
	log   zerolog.Logger

	events chan Event
	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewDemoClient creates a DemoClient that emits one word every delay.
func NewDemoClient(delay time.Duration, log zerolog.Logger) *DemoClient {
	if delay <= 0 {
		delay = 40 * time.Millisecond
	}
	ctx, stop := context.WithCancel(context.Background())
	return &DemoClient{
		delay:  delay,
		log:    log.With().Str("component", "demo").Logger(),
		events: make(chan Event, DefaultEventBuffer),
		ctx:    ctx,
		stop:   stop,
	}
}

// Events returns the event channel.
func (d *DemoClient) Events() <-chan Event {
	return d.events
}

// Submit streams a demo answer for req.
func (d *DemoClient) Submit(req Request) {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	ctx, cancel := context.WithCancel(d.ctx)
	d.cancel = cancel
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer cancel()
		d.run(ctx, req)
	}()
}

func (d *DemoClient) run(ctx context.Context, req Request) {
	id := uuid.NewString()
	d.emit(Started(req.RequestID, id))

	text := demoAnswer(req.Question)
	words := strings.SplitAfter(text, " ")
	ticker := time.NewTicker(d.delay)
	defer ticker.Stop()

	for _, w := range words {
		select {
		case <-ctx.Done():
			d.emit(Cancelled(req.RequestID, id))
			return
		case <-ticker.C:
			d.emit(Chunk(req.RequestID, id, w))
		}
	}

	d.emit(Completed(req.RequestID, id, text, []Source{
		{Title: "Getting started", Subtitle: "Demo documentation", URL: "https://example.com/docs/getting-started"},
	}))
}

// Cancel stops the current demo answer.
func (d *DemoClient) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// Reset is a no-op; the demo has no remote thread.
func (d *DemoClient) Reset() {}

// SendFeedback logs the feedback and accepts it.
func (d *DemoClient) SendFeedback(ctx context.Context, id string, reaction Reaction, detail *Detail) error {
	if !reaction.Valid() {
		return ErrInvalidReaction
	}
	ev := d.log.Info().Str("id", id).Str("reaction", string(reaction))
	if detail != nil {
		ev = ev.Bool("incorrect", detail.Incorrect).
			Bool("irrelevant", detail.Irrelevant).
			Bool("unaddressed", detail.Unaddressed).
			Str("note", detail.Note)
	}
	ev.Msg("demo feedback received")
	return ctx.Err()
}

// Close stops any answer in progress and closes Events.
func (d *DemoClient) Close() error {
	d.stop()
	d.wg.Wait()
	close(d.events)
	return nil
}

func (d *DemoClient) emit(ev Event) {
	select {
	case d.events <- ev:
	case <-d.ctx.Done():
	}
}

func demoAnswer(question string) string {
	return fmt.Sprintf("You asked: **%s**\n\nThis is a demo answer streamed locally. "+
		"Configure `service.base_url` to talk to a real answer service.", question)
}
