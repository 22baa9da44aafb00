// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/memobot/memobot-tui/internal/engine"
	"github.com/memobot/memobot-tui/internal/model"
	"github.com/memobot/memobot-tui/internal/transport"
	"github.com/memobot/memobot-tui/internal/ui/styles"
)

func testModel(t *testing.T) Model {
	t.Helper()

	snaps, sink := NewSnapshotChannel()
	eng := engine.New(transport.NewScriptAdapter(), sink, engine.DefaultConfig())
	m := New(eng, nil, snaps, styles.NewTheme("dark"), Options{ShowSuggestions: true})

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model)
}

func TestViewShowsGreeting(t *testing.T) {
	m := testModel(t)

	out := m.View()
	if !strings.Contains(out, "MemoBot") {
		t.Error("expected header title in view")
	}
	if !strings.Contains(out, "Bonjour ! Je suis MemoBot") {
		t.Error("expected greeting message in view")
	}
}

func TestRenderMessageStatuses(t *testing.T) {
	m := testModel(t)

	pending := model.NewUserMessage("question en cours")
	failed := model.NewUserMessage("question perdue")
	failed.Status = model.StatusFailed
	reply := model.NewAssistantMessage("Voici une piste.", []string{"Informatique", "Biologie"})

	m.snapshot = engine.Snapshot{
		SessionID: "sess_test",
		Messages:  []model.Message{pending, failed, reply},
		State:     engine.StateSettled,
	}

	out := m.renderMessages()
	if !strings.Contains(out, "Vous") {
		t.Error("expected user display name")
	}
	if !strings.Contains(out, "✗ non délivré") {
		t.Error("expected failed-message marker")
	}
	if !strings.Contains(out, "Voici une piste.") {
		t.Error("expected assistant text")
	}
	if !strings.Contains(out, "Informatique") || !strings.Contains(out, "Biologie") {
		t.Error("expected suggestion chips")
	}
}

func TestRenderErrorState(t *testing.T) {
	m := testModel(t)

	m.snapshot = engine.Snapshot{
		SessionID: "sess_test",
		State:     engine.StateError,
		LastError: &transport.Error{
			Kind:    transport.KindNetwork,
			Message: "connexion refusée",
		},
	}

	out := m.renderMessages()
	if !strings.Contains(out, "Échec de l'envoi") {
		t.Error("expected error box title")
	}
	if !strings.Contains(out, "connexion refusée") {
		t.Error("expected transport error message")
	}
	if !strings.Contains(out, "ctrl+r") {
		t.Error("expected retry hint")
	}
}

func TestRenderMarkdownFallback(t *testing.T) {
	m := testModel(t)
	m.renderer = nil

	if got := m.renderMarkdown("texte brut"); got != "texte brut" {
		t.Errorf("expected raw text fallback, got %q", got)
	}
}

func TestSnapshotChannelNeverBlocks(t *testing.T) {
	ch, sink := NewSnapshotChannel()

	// Push far past the buffer; the sink must drop, not block.
	for i := 0; i < 100; i++ {
		sink(engine.Snapshot{SessionID: "sess_test"})
	}
	if len(ch) != cap(ch) {
		t.Errorf("expected full channel, got %d/%d", len(ch), cap(ch))
	}
}

func TestSubmitErrorNotice(t *testing.T) {
	m := testModel(t)

	updated, _ := m.Update(SubmitErrorMsg{Err: engine.ErrConcurrentSubmission})
	m = updated.(Model)

	out := m.View()
	if !strings.Contains(out, engine.ErrConcurrentSubmission.Error()) {
		t.Error("expected rejection notice in status bar")
	}
}
