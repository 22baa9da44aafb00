// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view for memobot-tui.
//
// The view is a thin renderer over the session engine: every change the
// engine makes arrives as a snapshot on a channel, and the model redraws
// from the snapshot alone. Key bindings drive the engine's command
// surface (submit, retry, cancel, reset) and transcript persistence.
package chat
