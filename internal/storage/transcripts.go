// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides local transcript persistence for memobot-tui.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/memobot/memobot-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSessionNotFound is returned when a transcript doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
)

// DefaultMaxSessions limits stored transcripts (0 = unlimited).
const DefaultMaxSessions = 100

// schema creates the transcript tables.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	id          TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	role        TEXT NOT NULL,
	text        TEXT NOT NULL,
	status      TEXT NOT NULL,
	supersedes  TEXT NOT NULL DEFAULT '',
	suggestions TEXT NOT NULL DEFAULT '[]',
	created_at  INTEGER NOT NULL,
	PRIMARY KEY (session_id, id)
);

CREATE INDEX IF NOT EXISTS idx_messages_session_seq ON messages(session_id, seq);
`

// =============================================================================
// TRANSCRIPT STORE
// =============================================================================

// SessionMeta contains metadata for listing saved transcripts.
type SessionMeta struct {
	ID           string
	Title        string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TranscriptStore persists session transcripts in SQLite.
type TranscriptStore struct {
	db *sql.DB

	// MaxSessions limits stored transcripts; oldest are pruned on Save.
	MaxSessions int
}

// DefaultPath returns the default database location, ~/.memobot/transcripts.db.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".memobot", "transcripts.db"), nil
}

// Open opens (creating if needed) the transcript database at path.
func Open(path string) (*TranscriptStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &TranscriptStore{db: db, MaxSessions: DefaultMaxSessions}, nil
}

// Close releases the underlying database handle.
func (s *TranscriptStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// SAVE / LOAD
// =============================================================================

// Save persists the full transcript of a session, replacing any
// previous version. The title derives from the first user message.
func (s *TranscriptStore) Save(sessionID string, messages []model.Message) error {
	if sessionID == "" {
		return errors.New("empty session id")
	}

	now := time.Now().Unix()
	title := deriveTitle(messages)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		sessionID, title, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (session_id, id, seq, role, text, status, supersedes, suggestions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, msg := range messages {
		suggestions := "[]"
		if len(msg.Suggestions) > 0 {
			data, err := json.Marshal(msg.Suggestions)
			if err != nil {
				return fmt.Errorf("failed to marshal suggestions: %w", err)
			}
			suggestions = string(data)
		}

		_, err := stmt.Exec(sessionID, msg.ID, msg.Seq, string(msg.Role), msg.Text,
			string(msg.Status), msg.Supersedes, suggestions, msg.CreatedAt.Unix())
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	if s.MaxSessions > 0 {
		s.pruneOldest()
	}
	return nil
}

// Load retrieves a saved transcript in append order.
func (s *TranscriptStore) Load(sessionID string) ([]model.Message, error) {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	if exists == 0 {
		return nil, ErrSessionNotFound
	}

	rows, err := s.db.Query(`
		SELECT id, seq, role, text, status, supersedes, suggestions, created_at
		FROM messages WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var (
			msg         model.Message
			role        string
			status      string
			suggestions string
			createdAt   int64
		)
		if err := rows.Scan(&msg.ID, &msg.Seq, &role, &msg.Text, &status,
			&msg.Supersedes, &suggestions, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = model.Role(role)
		msg.Status = model.Status(status)
		msg.CreatedAt = time.Unix(createdAt, 0)
		if suggestions != "" && suggestions != "[]" {
			if err := json.Unmarshal([]byte(suggestions), &msg.Suggestions); err != nil {
				return nil, fmt.Errorf("failed to decode suggestions: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// =============================================================================
// LIST / DELETE
// =============================================================================

// List returns saved transcripts, most recently updated first.
func (s *TranscriptStore) List() ([]SessionMeta, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.title, s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		FROM sessions s ORDER BY s.updated_at DESC, s.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var metas []SessionMeta
	for rows.Next() {
		var (
			meta      SessionMeta
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&meta.ID, &meta.Title, &createdAt, &updatedAt, &meta.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		meta.CreatedAt = time.Unix(createdAt, 0)
		meta.UpdatedAt = time.Unix(updatedAt, 0)
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// Delete removes a transcript.
func (s *TranscriptStore) Delete(sessionID string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// pruneOldest drops the least recently updated sessions over the limit.
func (s *TranscriptStore) pruneOldest() {
	s.db.Exec(`
		DELETE FROM sessions WHERE id IN (
			SELECT id FROM sessions ORDER BY updated_at DESC, id DESC
			LIMIT -1 OFFSET ?
		)`, s.MaxSessions)
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown renders a saved transcript as Markdown.
func (s *TranscriptStore) ExportMarkdown(sessionID string) (string, error) {
	messages, err := s.Load(sessionID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("# Conversation " + sessionID + "\n\n")

	for _, msg := range messages {
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" + msg.CreatedAt.Format("15:04") + "):\n\n")
		sb.WriteString(msg.Text)
		if msg.Status == model.StatusFailed {
			sb.WriteString("\n\n_(non délivré)_")
		}
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String(), nil
}

// =============================================================================
// HELPERS
// =============================================================================

// deriveTitle builds a session title from the first user message.
func deriveTitle(messages []model.Message) string {
	for _, msg := range messages {
		if msg.Role == model.RoleUser && msg.Text != "" {
			title := strings.ReplaceAll(msg.Preview(50), "\n", " ")
			return strings.ReplaceAll(title, "\r", "")
		}
	}
	return "Nouvelle conversation"
}
