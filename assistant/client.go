// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.

// Package assistant is the boundary to the remote AI/chat service. The
// core only prepares the outbound payload (text or base64 audio plus the
// session key) and hands back the reply; it never interprets the content.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/voyago/voice-core/classify"
	"github.com/voyago/voice-core/pkg/commons"
	"github.com/voyago/voice-core/pkg/utils"
)

var (
	// ErrEmptyMessage rejects a send carrying neither text nor audio.
	// Validation no-op, not a service failure.
	ErrEmptyMessage = errors.New("assistant: empty message")
	// ErrSendInFlight rejects a send while a prior exchange is still
	// pending. Validation no-op, not a service failure.
	ErrSendInFlight = errors.New("assistant: send already in flight")
)

// SendRequest is the outbound payload. Message and AudioBase64 may both
// be set (text transcript plus voice); at least one is required.
type SendRequest struct {
	Message     string            `json:"message,omitempty"`
	AudioBase64 string            `json:"audioBase64,omitempty"`
	SessionKey  string            `json:"sessionKey"`
	Language    string            `json:"language"`
	Context     map[string]string `json:"context,omitempty"`
}

// SendResponse is the service reply. Audio, when present, is handed to
// the player by the caller.
type SendResponse struct {
	Response    string   `json:"response"`
	Suggestions []string `json:"suggestions"`
	SessionID   string   `json:"sessionId"`
	AudioURL    string   `json:"audioUrl,omitempty"`
}

type serviceError struct {
	Error string `json:"error"`
}

type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithLanguage sets the language used when classifying failures.
func WithLanguage(lang classify.Language) Option {
	return func(c *Client) { c.lang = lang }
}

// Client talks to the assistant service over HTTP. One exchange at a
// time; overlapping sends are rejected locally.
type Client struct {
	logger commons.Logger
	http   *resty.Client
	lang   classify.Language

	mu       sync.Mutex
	inFlight bool
}

func NewClient(logger commons.Logger, host string, opts ...Option) *Client {
	c := &Client{
		logger: logger,
		http: resty.New().
			SetBaseURL(host).
			SetTimeout(30 * time.Second).
			SetHeader("Content-Type", "application/json"),
		lang: classify.French,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts one exchange to the assistant service. A blank message
// without audio and a send while another is pending are both rejected
// locally. Transport failures are classified as network errors; service
// failures as assistant errors.
func (c *Client) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	if utils.IsEmpty(req.Message) && req.AudioBase64 == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrSendInFlight
	}
	c.inFlight = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	var out SendResponse
	var svcErr serviceError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&svcErr).
		Post("/chat")
	if err != nil {
		c.logger.Errorf("assistant transport failed: %v", err)
		return nil, &Error{
			Classified: classify.As(classify.NetworkError, c.lang),
			cause:      err,
		}
	}
	if resp.IsError() {
		c.logger.Errorf("assistant service error: status=%d body=%s", resp.StatusCode(), svcErr.Error)
		return nil, &Error{
			Classified: classify.As(classify.AiServiceError, c.lang),
			cause:      fmt.Errorf("assistant: status %d: %s", resp.StatusCode(), svcErr.Error),
		}
	}

	c.logger.Debugf("assistant reply: session=%s, %d suggestions", out.SessionID, len(out.Suggestions))
	return &out, nil
}

// Error carries both the classified, user-facing form and the raw cause.
type Error struct {
	Classified classify.Classified
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return string(e.Classified.Kind)
}

func (e *Error) Unwrap() error { return e.cause }
