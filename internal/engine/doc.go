// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine implements the conversational session engine: the
// state machine and request coordinator behind one MemoBot chat.
//
// One Engine owns one session. It serializes outbound requests (at most
// one in flight), matches replies back to requests by per-attempt
// request IDs, discards stale responses after a cancel or reset, and
// applies a bounded exponential-backoff retry policy. Every committed
// transition is published to the configured render sink as an immutable
// Snapshot.
//
// # States
//
//	Idle → Sending → AwaitingReply → Settled | Error
//
// Submit is legal from Idle, Settled and Error; a second Submit while a
// request is outstanding fails with ErrConcurrentSubmission instead of
// queueing. Reset is legal from any state and starts a fresh
// conversation.
//
// The engine is safe for concurrent use; all session state lives behind
// a single mutex, and the sink is always invoked outside of it.
package engine
