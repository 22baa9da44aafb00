// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import "errors"

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrConcurrentSubmission: Submit while a request is outstanding.
	// The engine never queues a second message; the caller must wait.
	ErrConcurrentSubmission = errors.New("a request is already in flight")

	// ErrEmptyMessage: Submit with blank text.
	ErrEmptyMessage = errors.New("message text is empty")

	// ErrMaxRetriesExceeded: Retry after the attempt budget is spent.
	ErrMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")

	// ErrUnknownRequest: Retry or Cancel with a request ID that is not
	// the session's current request.
	ErrUnknownRequest = errors.New("unknown request id")

	// ErrNotRetryable: Retry while the session is not in the Error state.
	ErrNotRetryable = errors.New("session is not in a retryable state")
)
