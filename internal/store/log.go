// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the append-only message log for one chat session.
package store

import (
	"sync"

	"github.com/memobot/memobot-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

// Error variables for log contract violations.
// Use errors.Is to check for these errors.
var (
	// ErrDuplicateID indicates an append with an ID already in the log.
	ErrDuplicateID = &LogError{Message: "duplicate message id"}

	// ErrNotFound indicates a status update for an unknown message ID.
	ErrNotFound = &LogError{Message: "message not found"}

	// ErrIllegalTransition indicates a status change other than
	// pending→delivered or pending→failed.
	ErrIllegalTransition = &LogError{Message: "illegal status transition"}
)

// LogError represents a message log contract violation.
type LogError struct {
	Message string
}

// Error implements the error interface.
func (e *LogError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing log errors.
func (e *LogError) Is(target error) bool {
	t, ok := target.(*LogError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// MESSAGE LOG
// =============================================================================

// Log holds the ordered transcript for a single session.
type Log struct {
	mu       sync.Mutex
	messages []model.Message
	index    map[string]int // message ID -> position in messages
	nextSeq  uint64
}

// NewLog creates an empty message log.
func NewLog() *Log {
	return &Log{
		messages: make([]model.Message, 0),
		index:    make(map[string]int),
		nextSeq:  1,
	}
}

// =============================================================================
// MUTATORS
// =============================================================================

// Append adds a message to the end of the log, stamping its sequence
// number. Returns the stamped message. Fails with ErrDuplicateID if the
// ID is already present.
func (l *Log) Append(msg model.Message) (model.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.index[msg.ID]; exists {
		return model.Message{}, ErrDuplicateID
	}

	msg.Seq = l.nextSeq
	l.nextSeq++

	l.index[msg.ID] = len(l.messages)
	l.messages = append(l.messages, msg)

	return msg, nil
}

// UpdateStatus resolves the delivery status of a pending message.
// Legal transitions are pending→delivered and pending→failed only;
// anything else fails with ErrIllegalTransition. Unknown IDs fail with
// ErrNotFound.
func (l *Log) UpdateStatus(id string, status model.Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, exists := l.index[id]
	if !exists {
		return ErrNotFound
	}

	current := l.messages[pos].Status
	if current != model.StatusPending {
		return ErrIllegalTransition
	}
	if status != model.StatusDelivered && status != model.StatusFailed {
		return ErrIllegalTransition
	}

	l.messages[pos].Status = status
	return nil
}

// =============================================================================
// READERS
// =============================================================================

// Snapshot returns a copy of the transcript in append order.
// Mutating the returned slice does not affect the log.
func (l *Log) Snapshot() []model.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Get returns the message with the given ID.
func (l *Log) Get(id string) (model.Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, exists := l.index[id]
	if !exists {
		return model.Message{}, false
	}
	return l.messages[pos], true
}

// Last returns the most recent message, if any.
func (l *Log) Last() (model.Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.messages) == 0 {
		return model.Message{}, false
	}
	return l.messages[len(l.messages)-1], true
}

// Len returns the number of messages in the log.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

// IsEmpty returns true if there are no messages.
func (l *Log) IsEmpty() bool {
	return l.Len() == 0
}
