// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"sync"

	"github.com/memobot/memobot-tui/internal/model"
	"github.com/memobot/memobot-tui/internal/transport"
)

// =============================================================================
// REQUEST HANDLE
// =============================================================================

// Handle tracks one submitted message through delivery or permanent
// failure. A retryable failure leaves the handle open: the session sits
// in the Error state and the caller decides between Retry and a fresh
// Submit. The handle resolves on the first of: assistant reply
// delivered, attempts exhausted, cancel, reset, or abandonment by a new
// Submit.
type Handle struct {
	mu sync.Mutex

	requestID string
	messageID string

	done     chan struct{}
	resolved bool

	reply    model.Message
	hasReply bool
	err      error

	lastErr *transport.Error
}

func newHandle(requestID, messageID string) *Handle {
	return &Handle{
		requestID: requestID,
		messageID: messageID,
		done:      make(chan struct{}),
	}
}

// RequestID returns the ID of the current attempt. It changes when the
// request is retried; use it for Retry and Cancel calls.
func (h *Handle) RequestID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requestID
}

// MessageID returns the ID of the user message for the current attempt.
func (h *Handle) MessageID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.messageID
}

// Done returns a channel closed once the handle resolves.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Reply returns the delivered assistant message, if the handle resolved
// successfully.
func (h *Handle) Reply() (model.Message, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reply, h.hasReply
}

// Err returns the terminal error, or nil if the handle resolved with a
// reply or has not resolved yet.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// LastError returns the most recent transport failure observed for this
// request, including retryable ones that did not resolve the handle.
func (h *Handle) LastError() *transport.Error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

// Wait blocks until the handle resolves or ctx expires.
func (h *Handle) Wait(ctx context.Context) (model.Message, error) {
	select {
	case <-ctx.Done():
		return model.Message{}, ctx.Err()
	case <-h.done:
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return model.Message{}, h.err
	}
	return h.reply, nil
}

// retarget points the handle at a new attempt.
func (h *Handle) retarget(requestID, messageID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requestID = requestID
	h.messageID = messageID
}

// noteFailure records a retryable failure without resolving.
func (h *Handle) noteFailure(terr *transport.Error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastErr = terr
}

// resolveReply settles the handle with a delivered assistant message.
func (h *Handle) resolveReply(reply model.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.resolved {
		return
	}
	h.resolved = true
	h.reply = reply
	h.hasReply = true
	close(h.done)
}

// resolveErr settles the handle with a terminal error.
func (h *Handle) resolveErr(err error, terr *transport.Error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.resolved {
		return
	}
	h.resolved = true
	h.err = err
	if terr != nil {
		h.lastErr = terr
	}
	close(h.done)
}
