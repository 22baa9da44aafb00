// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the append-only message log for one chat session.
//
// The log is the canonical ordered transcript: messages are never
// reordered or deleted once appended, and the only permitted mutation
// after append is resolving a pending delivery status. Readers get
// defensive copies, never views into internal state.
//
// # Key Types
//
//   - Log: the per-session transcript
//   - LogError: typed errors (ErrDuplicateID, ErrNotFound,
//     ErrIllegalTransition) comparable with errors.Is
//
// Contract violations (duplicate IDs, unknown IDs, illegal status
// transitions) indicate a bug in the caller and surface as errors
// rather than being silently absorbed.
package store
