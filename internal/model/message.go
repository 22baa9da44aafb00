// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "Vous"
	case RoleAssistant:
		return "MemoBot"
	case RoleSystem:
		return "Système"
	default:
		return string(r)
	}
}

// =============================================================================
// STATUS TYPE
// =============================================================================

// Status tracks delivery of a message.
//
// Only user messages pass through StatusPending; assistant and system
// messages are created already delivered.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in a conversation.
type Message struct {
	// Identity
	ID   string `json:"id"`
	Role Role   `json:"role"`

	// Content
	Text string `json:"text"`

	// Seq is the logical position in the transcript, assigned by the
	// message log on append. Zero means not yet appended.
	Seq uint64 `json:"seq"`

	// Status is the delivery status. Mutated only through the log.
	Status Status `json:"status"`

	// Supersedes links a retry message to the failed message it replaces.
	Supersedes string `json:"supersedes,omitempty"`

	// Suggestions are follow-up prompts the assistant offered with this
	// reply, if any.
	Suggestions []string `json:"suggestions,omitempty"`

	// CreatedAt is wall-clock time for display only; ordering uses Seq.
	CreatedAt time.Time `json:"created_at"`
}

// NewUserMessage creates a pending user message.
func NewUserMessage(text string) Message {
	return Message{
		ID:        generateID(),
		Role:      RoleUser,
		Text:      text,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// NewRetryMessage creates a pending user message superseding a failed one.
func NewRetryMessage(text, supersedes string) Message {
	msg := NewUserMessage(text)
	msg.Supersedes = supersedes
	return msg
}

// NewAssistantMessage creates a delivered assistant message.
func NewAssistantMessage(text string, suggestions []string) Message {
	return Message{
		ID:          generateID(),
		Role:        RoleAssistant,
		Text:        text,
		Status:      StatusDelivered,
		Suggestions: suggestions,
		CreatedAt:   time.Now(),
	}
}

// NewSystemMessage creates a delivered system message.
func NewSystemMessage(text string) Message {
	return Message{
		ID:        generateID(),
		Role:      RoleSystem,
		Text:      text,
		Status:    StatusDelivered,
		CreatedAt: time.Now(),
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Preview returns a truncated preview of the message text.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	runes := []rune(m.Text)
	if len(runes) <= maxLen {
		return m.Text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no text.
func (m Message) IsEmpty() bool {
	return len(m.Text) == 0
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}
