// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages.
//
// A Message is immutable once created except for its delivery status,
// which is managed by the message log. Ordering is carried by a logical
// sequence number rather than wall-clock time, so transcripts keep a
// total order even under clock skew.
package model
