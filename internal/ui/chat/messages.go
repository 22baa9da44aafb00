// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/memobot/memobot-tui/internal/engine"
)

// =============================================================================
// BUBBLE TEA MESSAGES
// =============================================================================

// SnapshotMsg delivers a session snapshot from the engine sink.
type SnapshotMsg struct {
	Snapshot engine.Snapshot
}

// SubmitErrorMsg reports a rejected Submit (empty text, request in flight).
type SubmitErrorMsg struct {
	Err error
}

// TranscriptSavedMsg confirms an autosave of the current transcript.
type TranscriptSavedMsg struct {
	SessionID string
	Err       error
}

// ExportedMsg confirms a Markdown export.
type ExportedMsg struct {
	Path string
	Err  error
}

// =============================================================================
// SNAPSHOT PLUMBING
// =============================================================================

// NewSnapshotChannel returns a buffered snapshot channel and the engine
// sink that feeds it. Wire the sink into engine.New, then hand the
// channel to chat.New. The sink never blocks the engine: if the UI falls
// behind, intermediate snapshots are dropped and the next one carries
// the full state anyway.
func NewSnapshotChannel() (chan engine.Snapshot, engine.Sink) {
	ch := make(chan engine.Snapshot, 32)
	sink := func(s engine.Snapshot) {
		select {
		case ch <- s:
		default:
		}
	}
	return ch, sink
}

// waitForSnapshot blocks on the snapshot channel as a Bubble Tea command.
func waitForSnapshot(ch chan engine.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return SnapshotMsg{Snapshot: <-ch}
	}
}
