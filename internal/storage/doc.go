// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides local transcript persistence for memobot-tui.
//
// Transcripts are stored in a single SQLite database (pure Go driver,
// no cgo) under ~/.memobot/ by default. The session engine itself does
// not require persistence; the TUI saves a snapshot whenever a turn
// settles, and offers list/continue/export over what was saved.
package storage
