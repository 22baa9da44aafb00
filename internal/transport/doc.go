// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport abstracts the network call to the MemoBot assistant
// backend.
//
// The session engine only depends on the Adapter interface; the concrete
// implementations are:
//
//   - Client: HTTP adapter for the real backend (POST /ai/chat)
//   - ScriptAdapter: deterministic canned replies for offline mode
//     and tests
//
// Adapter failures are reported as *Error values carrying a Kind
// (timeout, network, server, cancelled) so callers can decide on
// retryability without inspecting transport internals.
package transport
