// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"testing"

	"github.com/memobot/memobot-tui/internal/model"
)

// =============================================================================
// APPEND TESTS
// =============================================================================

func TestLog_Append_AssignsSequence(t *testing.T) {
	l := NewLog()

	first, err := l.Append(model.NewUserMessage("Bonjour"))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	second, err := l.Append(model.NewAssistantMessage("Salut !", nil))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if first.Seq != 1 {
		t.Errorf("first Seq = %d, want 1", first.Seq)
	}
	if second.Seq != 2 {
		t.Errorf("second Seq = %d, want 2", second.Seq)
	}
}

func TestLog_Append_DuplicateID(t *testing.T) {
	l := NewLog()

	msg := model.NewUserMessage("Test")
	if _, err := l.Append(msg); err != nil {
		t.Fatalf("first Append failed: %v", err)
	}

	_, err := l.Append(msg)
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate Append error = %v, want ErrDuplicateID", err)
	}
	if l.Len() != 1 {
		t.Errorf("rejected append must not grow the log, Len = %d", l.Len())
	}
}

func TestLog_Ordering(t *testing.T) {
	l := NewLog()

	texts := []string{"un", "deux", "trois", "quatre", "cinq"}
	for _, text := range texts {
		if _, err := l.Append(model.NewUserMessage(text)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	snap := l.Snapshot()
	if len(snap) != len(texts) {
		t.Fatalf("snapshot length = %d, want %d", len(snap), len(texts))
	}

	seen := make(map[string]bool)
	var lastSeq uint64
	for i, msg := range snap {
		if msg.Text != texts[i] {
			t.Errorf("position %d = %q, want %q", i, msg.Text, texts[i])
		}
		if msg.Seq <= lastSeq {
			t.Errorf("Seq not strictly increasing at position %d: %d after %d", i, msg.Seq, lastSeq)
		}
		lastSeq = msg.Seq
		if seen[msg.ID] {
			t.Errorf("duplicate ID in snapshot: %s", msg.ID)
		}
		seen[msg.ID] = true
	}
}

// =============================================================================
// STATUS TESTS
// =============================================================================

func TestLog_UpdateStatus(t *testing.T) {
	l := NewLog()
	msg, _ := l.Append(model.NewUserMessage("Test"))

	if err := l.UpdateStatus(msg.ID, model.StatusDelivered); err != nil {
		t.Fatalf("pending→delivered should succeed: %v", err)
	}

	got, ok := l.Get(msg.ID)
	if !ok {
		t.Fatal("message disappeared after status update")
	}
	if got.Status != model.StatusDelivered {
		t.Errorf("Status = %v, want delivered", got.Status)
	}
}

func TestLog_UpdateStatus_NotFound(t *testing.T) {
	l := NewLog()

	err := l.UpdateStatus("msg_missing", model.StatusDelivered)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestLog_UpdateStatus_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		from model.Message
		to   model.Status
	}{
		{"delivered→failed", model.NewAssistantMessage("ok", nil), model.StatusFailed},
		{"delivered→pending", model.NewSystemMessage("sys"), model.StatusPending},
		{"pending→pending", model.NewUserMessage("hm"), model.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLog()
			msg, _ := l.Append(tt.from)

			err := l.UpdateStatus(msg.ID, tt.to)
			if !errors.Is(err, ErrIllegalTransition) {
				t.Errorf("error = %v, want ErrIllegalTransition", err)
			}
		})
	}
}

func TestLog_UpdateStatus_FailedIsTerminal(t *testing.T) {
	l := NewLog()
	msg, _ := l.Append(model.NewUserMessage("Test"))

	if err := l.UpdateStatus(msg.ID, model.StatusFailed); err != nil {
		t.Fatalf("pending→failed should succeed: %v", err)
	}
	err := l.UpdateStatus(msg.ID, model.StatusDelivered)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("failed→delivered error = %v, want ErrIllegalTransition", err)
	}
}

// =============================================================================
// SNAPSHOT TESTS
// =============================================================================

func TestLog_Snapshot_IsACopy(t *testing.T) {
	l := NewLog()
	l.Append(model.NewUserMessage("original"))

	snap := l.Snapshot()
	snap[0].Text = "mutated"
	snap[0].Status = model.StatusFailed

	fresh := l.Snapshot()
	if fresh[0].Text != "original" {
		t.Error("mutating a snapshot must not affect the log")
	}
	if fresh[0].Status != model.StatusPending {
		t.Error("mutating a snapshot status must not affect the log")
	}
}

func TestLog_Last(t *testing.T) {
	l := NewLog()

	if _, ok := l.Last(); ok {
		t.Error("Last on empty log should report not ok")
	}

	l.Append(model.NewUserMessage("un"))
	l.Append(model.NewUserMessage("deux"))

	last, ok := l.Last()
	if !ok || last.Text != "deux" {
		t.Errorf("Last = %q, want %q", last.Text, "deux")
	}
}
