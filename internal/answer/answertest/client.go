// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package answertest provides a scripted answer.Client for tests.
package answertest

import (
	"context"
	"sync"

	"github.com/jeranaias/askthread/internal/answer"
)

// FeedbackCall records one SendFeedback invocation.
type FeedbackCall struct {
	ID       string
	Reaction answer.Reaction
	Detail   *answer.Detail
}

// Client records every call made to it and emits only the events a test
// pushes with Emit.
type Client struct {
	events chan answer.Event

	mu          sync.Mutex
	requests    []answer.Request
	cancels     int
	resets      int
	feedback    []FeedbackCall
	feedbackErr error
	gate        chan struct{}
}

// New creates a Client with a buffered event channel.
func New() *Client {
	return &Client{events: make(chan answer.Event, 256)}
}

// Events implements answer.Client.
func (c *Client) Events() <-chan answer.Event { return c.events }

// Submit implements answer.Client.
func (c *Client) Submit(req answer.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
}

// Cancel implements answer.Client.
func (c *Client) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels++
}

// Reset implements answer.Client.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
}

// SendFeedback implements answer.Client. It blocks while the client is held.
func (c *Client) SendFeedback(ctx context.Context, id string, reaction answer.Reaction, detail *answer.Detail) error {
	c.mu.Lock()
	var copied *answer.Detail
	if detail != nil {
		d := *detail
		copied = &d
	}
	c.feedback = append(c.feedback, FeedbackCall{ID: id, Reaction: reaction, Detail: copied})
	gate := c.gate
	err := c.feedbackErr
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Emit delivers ev on the event channel.
func (c *Client) Emit(ev answer.Event) {
	c.events <- ev
}

// Close closes the event channel.
func (c *Client) Close() {
	close(c.events)
}

// FailFeedback makes subsequent SendFeedback calls return err. Nil restores success.
func (c *Client) FailFeedback(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feedbackErr = err
}

// HoldFeedback blocks SendFeedback calls until the returned release is called.
func (c *Client) HoldFeedback() (release func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.gate = gate
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			if c.gate == gate {
				c.gate = nil
			}
			c.mu.Unlock()
			close(gate)
		})
	}
}

// Requests returns the submitted requests in order.
func (c *Client) Requests() []answer.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]answer.Request(nil), c.requests...)
}

// LastRequest returns the most recent request, or the zero value.
func (c *Client) LastRequest() answer.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return answer.Request{}
	}
	return c.requests[len(c.requests)-1]
}

// Cancels returns how many times Cancel was called.
func (c *Client) Cancels() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancels
}

// Resets returns how many times Reset was called.
func (c *Client) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

// FeedbackCalls returns the recorded SendFeedback calls in order.
func (c *Client) FeedbackCalls() []FeedbackCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]FeedbackCall(nil), c.feedback...)
}

var _ answer.Client = (*Client)(nil)
