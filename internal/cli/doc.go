// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and non-TUI command handlers
// for memobot.
//
// The default command starts the chat TUI; the rest manage saved
// transcripts and configuration from scripts or a plain terminal.
package cli
