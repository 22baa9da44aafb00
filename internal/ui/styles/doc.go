// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the memobot TUI.
//
// A Theme bundles every lipgloss style the chat view needs, built from a
// small palette with dark and light variants. Components never construct
// colors themselves; they take the theme and use its styles.
package styles
