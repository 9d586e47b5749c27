// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Configuration constants for the HTTP answer service.
const (
	// DefaultTimeout bounds feedback requests. Streams are bounded by cancellation only.
	DefaultTimeout = 30 * time.Second

	// DefaultEventBuffer is the capacity of the Events channel.
	DefaultEventBuffer = 128

	// malformedLogInterval spaces out warnings about unreadable stream
	// events after the first few.
	malformedLogInterval = 10 * time.Second

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 * 1024
)

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	BaseURL       string
	IntegrationID string
	Timeout       time.Duration
	EventBuffer   int
	Logger        zerolog.Logger

	// HTTPClient overrides the transport used for both streams and feedback.
	HTTPClient *http.Client
}

// HTTPClient talks to the answer service over HTTP, reading answers as
// Server-Sent Events.
type HTTPClient struct {
	baseURL       string
	integrationID string
	httpClient    *http.Client
	streamClient  *http.Client
	log           zerolog.Logger
	// malformed samples warnings about events that could not be decoded.
	malformed *rate.Sometimes

	events chan Event
	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	threadID   string
	generation uint64
	inflight   string
	cancel     context.CancelFunc
}

// NewHTTPClient creates a client for the service at cfg.BaseURL.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrNotConfigured
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid answer service URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}

	httpClient := cfg.HTTPClient
	streamClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
		// No timeout for streaming - controlled via context
		streamClient = &http.Client{}
	}

	ctx, stop := context.WithCancel(context.Background())
	return &HTTPClient{
		baseURL:       base,
		integrationID: cfg.IntegrationID,
		httpClient:    httpClient,
		streamClient:  streamClient,
		log:           cfg.Logger.With().Str("component", "answer").Logger(),
		malformed:     &rate.Sometimes{First: 3, Interval: malformedLogInterval},
		events:        make(chan Event, buffer),
		ctx:           ctx,
		stop:          stop,
	}, nil
}

// Events returns the channel lifecycle events are delivered on. It is closed by Close.
func (c *HTTPClient) Events() <-chan Event {
	return c.events
}

// ThreadID returns the remote thread the next question is asked in.
func (c *HTTPClient) ThreadID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threadID
}

// Submit starts streaming an answer for req in the background.
func (c *HTTPClient) Submit(req Request) {
	c.mu.Lock()
	if c.cancel != nil {
		// Only one stream at a time; a stale one is abandoned.
		c.cancel()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	c.inflight = req.RequestID
	threadID := c.threadID
	generation := c.generation
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		defer c.finish(req.RequestID, cancel)
		c.stream(ctx, req, threadID, generation)
	}()
}

// Cancel aborts the in-flight stream, if any. The stream reports EventCancelled.
func (c *HTTPClient) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Reset forgets the current thread.
func (c *HTTPClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threadID = ""
	c.generation++
}

// Close cancels any stream, waits for it to finish and closes Events.
func (c *HTTPClient) Close() error {
	c.stop()
	c.wg.Wait()
	close(c.events)
	return nil
}

func (c *HTTPClient) finish(requestID string, cancel context.CancelFunc) {
	cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == requestID {
		c.inflight = ""
		c.cancel = nil
	}
}

func (c *HTTPClient) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

// =============================================================================
// STREAMING
// =============================================================================

type chatRequest struct {
	Query         string `json:"query"`
	IntegrationID string `json:"integration_id,omitempty"`
}

type startedPayload struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
}

type chunkPayload struct {
	ID    string `json:"id"`
	Delta string `json:"delta"`
}

type completedPayload struct {
	ID      string   `json:"id"`
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

type errorPayload struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (c *HTTPClient) streamURL(threadID string) string {
	if threadID == "" {
		return c.baseURL + "/v1/threads/chat/stream"
	}
	return c.baseURL + "/v1/threads/" + url.PathEscape(threadID) + "/chat/stream"
}

func (c *HTTPClient) stream(ctx context.Context, req Request, threadID string, generation uint64) {
	rid := req.RequestID
	var id string

	// fail reports err as cancellation when the context was cancelled.
	fail := func(err error) {
		if ctx.Err() != nil {
			c.emit(Cancelled(rid, id))
			return
		}
		c.log.Warn().Err(err).Str("request_id", rid).Msg("answer stream failed")
		c.emit(Failed(rid, id, err.Error()))
	}

	body, err := json.Marshal(chatRequest{Query: req.Question, IntegrationID: c.integrationID})
	if err != nil {
		fail(err)
		return
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.streamURL(threadID), bytes.NewReader(body))
	if err != nil {
		fail(err)
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		fail(err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fail(parseServiceError(resp))
		return
	}

	reader := newSSEReader(resp.Body)
	for {
		eventType, data, err := reader.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrStreamTruncated
			}
			fail(err)
			return
		}

		switch eventType {
		case "started":
			var p startedPayload
			if err := json.Unmarshal(data, &p); err != nil {
				fail(fmt.Errorf("decode started event: %w", err))
				return
			}
			id = p.ID
			c.rememberThread(p.ThreadID, generation)
			c.emit(Started(rid, id))

		case "chunk":
			var p chunkPayload
			if err := json.Unmarshal(data, &p); err != nil {
				c.malformed.Do(func() {
					c.log.Warn().Err(err).Str("request_id", rid).Msg("skipping malformed chunk")
				})
				continue
			}
			c.emit(Chunk(rid, firstNonEmpty(p.ID, id), p.Delta))

		case "completed":
			var p completedPayload
			if err := json.Unmarshal(data, &p); err != nil {
				fail(fmt.Errorf("decode completed event: %w", err))
				return
			}
			c.emit(Completed(rid, firstNonEmpty(p.ID, id), p.Answer, p.Sources))
			return

		case "error":
			var p errorPayload
			if err := json.Unmarshal(data, &p); err != nil || p.Message == "" {
				p.Message = "answer generation failed"
			}
			c.emit(Failed(rid, firstNonEmpty(p.ID, id), p.Message))
			return

		default:
			c.log.Debug().Str("event", eventType).Msg("ignoring unknown stream event")
		}
	}
}

// rememberThread records the thread unless Reset was called since the stream began.
func (c *HTTPClient) rememberThread(threadID string, generation uint64) {
	if threadID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == generation {
		c.threadID = threadID
	}
}

// =============================================================================
// FEEDBACK
// =============================================================================

type feedbackRequest struct {
	Reaction Reaction `json:"reaction"`
	Comment  *Detail  `json:"comment,omitempty"`
}

// SendFeedback posts a reaction, optionally with a detailed comment.
func (c *HTTPClient) SendFeedback(ctx context.Context, id string, reaction Reaction, detail *Detail) error {
	if !reaction.Valid() {
		return ErrInvalidReaction
	}
	if id == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}

	body, err := json.Marshal(feedbackRequest{Reaction: reaction, Comment: detail})
	if err != nil {
		return fmt.Errorf("encode feedback: %w", err)
	}

	endpoint := c.baseURL + "/v1/question-answers/" + url.PathEscape(id) + "/feedback"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create feedback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send feedback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseServiceError(resp)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return nil
}

// apiErrorResponse is the error body returned by the service.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseServiceError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var apiErr apiErrorResponse
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &ServiceError{Status: resp.StatusCode, Code: apiErr.Error.Code, Message: apiErr.Error.Message}
	}

	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &ServiceError{Status: resp.StatusCode, Message: msg}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
