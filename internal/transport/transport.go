// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport abstracts the network call to the assistant backend.
package transport

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// ADAPTER CONTRACT
// =============================================================================

// Request is a single utterance submitted to the assistant backend.
type Request struct {
	// RequestID identifies this attempt; unique per attempt, not per
	// message. Replies are matched back to requests by this ID.
	RequestID string

	// SessionID identifies the conversation this request belongs to.
	SessionID string

	// Text is the user's utterance.
	Text string

	// History is the recent conversation rendered as context lines
	// ("ÉTUDIANT: ..." / "MEMOBOT: ..."), oldest first. May be empty.
	History string
}

// Reply is a settled assistant response.
type Reply struct {
	// RequestID echoes the request this reply answers.
	RequestID string

	// Text is the assistant's answer.
	Text string

	// Suggestions are optional follow-up prompts offered by the backend.
	Suggestions []string
}

// Adapter performs the actual call to the assistant backend.
//
// Send must eventually settle or honor context cancellation. Callers
// enforce their own deadline through ctx; an adapter that hangs past
// the deadline is abandoned, not force-aborted.
type Adapter interface {
	Send(ctx context.Context, req Request) (*Reply, error)
}

// =============================================================================
// ERROR KINDS
// =============================================================================

// Kind classifies a transport failure.
type Kind string

const (
	// KindTimeout: the backend did not answer within the deadline.
	KindTimeout Kind = "timeout"

	// KindNetwork: the request never produced an HTTP response.
	KindNetwork Kind = "network"

	// KindServer: the backend answered with a failure.
	KindServer Kind = "server"

	// KindCancelled: the caller abandoned the request.
	KindCancelled Kind = "cancelled"
)

// Error is a classified transport failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("transport %s: %s", e.Kind, e.Message)
	}
	return "transport " + string(e.Kind)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether a fresh attempt could plausibly succeed.
// Cancellation is a caller decision, never retried.
func (e *Error) Retryable() bool {
	return e.Kind != KindCancelled
}

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// Classify wraps an arbitrary adapter error as a *Error.
// Context errors map to timeout/cancelled; everything else that is not
// already classified becomes a network failure.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var terr *Error
	if errors.As(err, &terr) {
		return terr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: "request deadline exceeded", Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindCancelled, Message: "request cancelled", Err: err}
	default:
		return &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}
}
