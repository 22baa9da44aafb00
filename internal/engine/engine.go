// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine implements the conversational session engine.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/memobot/memobot-tui/internal/model"
	"github.com/memobot/memobot-tui/internal/store"
	"github.com/memobot/memobot-tui/internal/transport"
)

// =============================================================================
// SESSION STATE
// =============================================================================

// State is the lifecycle state of a chat session.
type State int

const (
	StateIdle State = iota
	StateSending
	StateAwaitingReply
	StateError
	StateSettled
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSending:
		return "Sending"
	case StateAwaitingReply:
		return "AwaitingReply"
	case StateError:
		return "Error"
	case StateSettled:
		return "Settled"
	default:
		return "Unknown"
	}
}

// CanSubmit reports whether a new Submit is legal in this state.
func (s State) CanSubmit() bool {
	return s == StateIdle || s == StateSettled || s == StateError
}

// =============================================================================
// SNAPSHOT / SINK
// =============================================================================

// Snapshot is an immutable view of the session published to the render
// sink after every committed transition.
type Snapshot struct {
	SessionID string
	Messages  []model.Message
	State     State
	LastError *transport.Error // set while State == StateError
}

// Sink receives session snapshots. It must not mutate engine state;
// from the engine's point of view the call is fire-and-forget.
type Sink func(Snapshot)

// =============================================================================
// CONFIGURATION
// =============================================================================

// DefaultGreeting opens every new conversation, matching the hosted
// MemoBot assistant.
const DefaultGreeting = "Bonjour ! Je suis MemoBot. Comment puis-je vous aider à trouver votre sujet de mémoire ?"

// Config holds the engine's policy constants.
type Config struct {
	// Timeout is the per-request deadline (default: 30 seconds).
	Timeout time.Duration

	// MaxAttempts bounds submit+retry attempts per message (default: 3).
	MaxAttempts int

	// BackoffBase is the base retry delay; attempt n waits
	// BackoffBase × 2^(n−1), capped at BackoffMax.
	BackoffBase time.Duration
	BackoffMax  time.Duration

	// HistoryTurns is how many prior turns are sent as context.
	HistoryTurns int

	// Greeting is the assistant message seeding a new conversation.
	// Empty disables the greeting.
	Greeting string
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		MaxAttempts:  3,
		BackoffBase:  500 * time.Millisecond,
		BackoffMax:   10 * time.Second,
		HistoryTurns: 5,
		Greeting:     DefaultGreeting,
	}
}

// =============================================================================
// ENGINE
// =============================================================================

// pendingRequest tracks the coordinator's current outstanding request.
// It is retained through the Error state so an explicit Retry can pick
// it back up.
type pendingRequest struct {
	requestID string // current attempt's ID, regenerated per attempt
	messageID string // user message the current attempt will resolve
	text      string
	attempt   int
	cancel    context.CancelFunc
	handle    *Handle
}

// Engine owns one chat session: its message log, lifecycle state and
// the single outstanding request.
type Engine struct {
	mu sync.Mutex

	sessionID string
	log       *store.Log
	adapter   transport.Adapter
	sink      Sink
	cfg       Config

	state             State
	inFlightRequestID string
	pending           *pendingRequest
	lastError         *transport.Error
}

// New creates an engine for a fresh session. A nil sink is allowed.
func New(adapter transport.Adapter, sink Sink, cfg Config) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 10 * time.Second
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = 5
	}

	e := &Engine{
		sessionID: generateSessionID(),
		log:       store.NewLog(),
		adapter:   adapter,
		sink:      sink,
		cfg:       cfg,
		state:     StateIdle,
	}
	e.seedGreeting()
	return e
}

// seedGreeting appends the opening assistant message, if configured.
func (e *Engine) seedGreeting() {
	if e.cfg.Greeting == "" {
		return
	}
	e.log.Append(model.NewAssistantMessage(e.cfg.Greeting, nil))
}

// SessionID returns the current session ID. It changes on Reset.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// State returns the current session state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns the current session snapshot.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// snapshotLocked builds a snapshot. Caller holds e.mu.
func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID: e.sessionID,
		Messages:  e.log.Snapshot(),
		State:     e.state,
		LastError: e.lastError,
	}
}

// notify publishes snapshots to the sink, outside the engine mutex.
func (e *Engine) notify(snaps ...Snapshot) {
	if e.sink == nil {
		return
	}
	for _, s := range snaps {
		e.sink(s)
	}
}

// =============================================================================
// COMMAND SURFACE
// =============================================================================

// Submit sends a user utterance to the assistant. It is legal from
// Idle, Settled and Error; while a request is outstanding it fails with
// ErrConcurrentSubmission and leaves the log untouched.
func (e *Engine) Submit(text string) (*Handle, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	e.mu.Lock()

	if !e.state.CanSubmit() {
		e.mu.Unlock()
		return nil, ErrConcurrentSubmission
	}

	// A fresh Submit from Error abandons the failed request; its handle
	// resolves with the failure the caller chose not to retry.
	var abandoned *pendingRequest
	if e.pending != nil {
		abandoned = e.pending
		e.pending = nil
	}

	msg, err := e.log.Append(model.NewUserMessage(text))
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	requestID := generateRequestID()
	handle := newHandle(requestID, msg.ID)
	e.pending = &pendingRequest{
		requestID: requestID,
		messageID: msg.ID,
		text:      text,
		attempt:   1,
		handle:    handle,
	}
	e.lastError = nil

	e.state = StateSending
	sending := e.snapshotLocked()

	e.state = StateAwaitingReply
	e.inFlightRequestID = requestID
	history := e.historyLocked(msg.ID)
	awaiting := e.snapshotLocked()

	ctx, cancel := context.WithCancel(context.Background())
	e.pending.cancel = cancel

	e.mu.Unlock()

	if abandoned != nil {
		abandoned.handle.resolveErr(e.abandonError(abandoned), nil)
	}

	e.notify(sending, awaiting)
	go e.dispatch(ctx, requestID, text, history, 0)

	return handle, nil
}

// Retry re-dispatches a failed request. Only legal while the session is
// in the Error state, bounded by MaxAttempts, with exponential backoff.
// The retry appends a new user message superseding the failed one.
func (e *Engine) Retry(requestID string) error {
	e.mu.Lock()

	if e.state != StateError {
		e.mu.Unlock()
		return ErrNotRetryable
	}
	if e.pending == nil || e.pending.requestID != requestID {
		e.mu.Unlock()
		return ErrUnknownRequest
	}
	if e.pending.attempt >= e.cfg.MaxAttempts {
		e.mu.Unlock()
		return ErrMaxRetriesExceeded
	}

	msg, err := e.log.Append(model.NewRetryMessage(e.pending.text, e.pending.messageID))
	if err != nil {
		e.mu.Unlock()
		return err
	}

	e.pending.attempt++
	newID := generateRequestID()
	e.pending.requestID = newID
	e.pending.messageID = msg.ID
	e.pending.handle.retarget(newID, msg.ID)
	e.lastError = nil

	e.state = StateSending
	sending := e.snapshotLocked()

	e.state = StateAwaitingReply
	e.inFlightRequestID = newID
	history := e.historyLocked(msg.ID)
	awaiting := e.snapshotLocked()

	backoff := e.backoff(e.pending.attempt)
	text := e.pending.text

	ctx, cancel := context.WithCancel(context.Background())
	e.pending.cancel = cancel

	e.mu.Unlock()

	e.notify(sending, awaiting)
	go e.dispatch(ctx, newID, text, history, backoff)

	return nil
}

// Cancel aborts the in-flight request. An empty requestID targets the
// current in-flight request; if there is none, Cancel is a no-op.
// Cancellation is client-authoritative: the session transitions to Idle
// immediately, and any late transport response is discarded as stale.
func (e *Engine) Cancel(requestID string) error {
	e.mu.Lock()

	if e.inFlightRequestID == "" {
		e.mu.Unlock()
		if requestID == "" {
			return nil
		}
		return ErrUnknownRequest
	}
	if requestID != "" && requestID != e.inFlightRequestID {
		e.mu.Unlock()
		return ErrUnknownRequest
	}

	pending := e.pending
	if pending != nil && pending.cancel != nil {
		pending.cancel()
	}

	// The user message will never be delivered.
	if pending != nil {
		e.log.UpdateStatus(pending.messageID, model.StatusFailed)
	}

	e.inFlightRequestID = ""
	e.pending = nil
	e.lastError = nil
	e.state = StateIdle
	snap := e.snapshotLocked()

	e.mu.Unlock()

	if pending != nil {
		pending.handle.resolveErr(
			&transport.Error{Kind: transport.KindCancelled, Message: "cancelled by user"},
			&transport.Error{Kind: transport.KindCancelled, Message: "cancelled by user"},
		)
	}
	e.notify(snap)
	return nil
}

// Reset starts a fresh conversation: new session ID, empty transcript
// (plus greeting), Idle state. Any outstanding request is cancelled and
// its late response discarded. Reset is idempotent.
func (e *Engine) Reset() {
	e.mu.Lock()

	pending := e.pending
	if pending != nil && pending.cancel != nil {
		pending.cancel()
	}

	e.sessionID = generateSessionID()
	e.log = store.NewLog()
	e.seedGreeting()
	e.inFlightRequestID = ""
	e.pending = nil
	e.lastError = nil
	e.state = StateIdle
	snap := e.snapshotLocked()

	e.mu.Unlock()

	if pending != nil {
		pending.handle.resolveErr(
			&transport.Error{Kind: transport.KindCancelled, Message: "session reset"},
			&transport.Error{Kind: transport.KindCancelled, Message: "session reset"},
		)
	}
	e.notify(snap)
}

// =============================================================================
// DISPATCH / COMPLETION
// =============================================================================

// sendOutcome is one transport attempt's result.
type sendOutcome struct {
	reply *transport.Reply
	err   error
}

// dispatch performs one transport attempt. It runs on its own
// goroutine; backoff applies before the call for retries. The deadline
// is enforced here, not delegated to the adapter: an adapter that
// ignores its context cannot hold the session in AwaitingReply past the
// timeout. A late return from such an adapter is then discarded by
// complete's stale-ID check.
func (e *Engine) dispatch(ctx context.Context, requestID, text, history string, backoff time.Duration) {
	if backoff > 0 {
		select {
		case <-ctx.Done():
			return // cancelled during backoff; state already transitioned
		case <-time.After(backoff):
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	e.mu.Lock()
	sessionID := e.sessionID
	e.mu.Unlock()

	// Buffered so the Send goroutine never leaks when the deadline wins.
	outcome := make(chan sendOutcome, 1)
	go func() {
		reply, err := e.adapter.Send(sendCtx, transport.Request{
			RequestID: requestID,
			SessionID: sessionID,
			Text:      text,
			History:   history,
		})
		outcome <- sendOutcome{reply: reply, err: err}
	}()

	select {
	case out := <-outcome:
		e.complete(requestID, out.reply, out.err)
	case <-sendCtx.Done():
		e.complete(requestID, nil, sendCtx.Err())
	}
}

// complete commits the outcome of a transport attempt. Responses whose
// request ID no longer matches the in-flight request are discarded
// silently so a slow, cancelled request cannot resurrect stale content.
func (e *Engine) complete(requestID string, reply *transport.Reply, err error) {
	e.mu.Lock()

	if requestID != e.inFlightRequestID {
		e.mu.Unlock()
		return // stale
	}
	e.inFlightRequestID = ""
	pending := e.pending

	if err != nil {
		terr := transport.Classify(err)

		if terr.Kind == transport.KindCancelled {
			// Cancel/reset normally clears the in-flight ID first, so a
			// cancellation surfacing here means the context was torn
			// down some other way. Treat it like a user cancel.
			e.log.UpdateStatus(pending.messageID, model.StatusFailed)
			e.pending = nil
			e.lastError = nil
			e.state = StateIdle
			snap := e.snapshotLocked()
			e.mu.Unlock()

			pending.handle.resolveErr(terr, terr)
			e.notify(snap)
			return
		}

		e.log.UpdateStatus(pending.messageID, model.StatusFailed)
		e.lastError = terr
		e.state = StateError
		exhausted := pending.attempt >= e.cfg.MaxAttempts
		snap := e.snapshotLocked()
		e.mu.Unlock()

		if exhausted {
			pending.handle.resolveErr(terr, terr)
		} else {
			pending.handle.noteFailure(terr)
		}
		e.notify(snap)
		return
	}

	// Success: deliver the user message, append the assistant reply.
	e.log.UpdateStatus(pending.messageID, model.StatusDelivered)
	assistant, appendErr := e.log.Append(model.NewAssistantMessage(reply.Text, reply.Suggestions))
	if appendErr != nil {
		// A duplicate assistant ID means a corrupted log; surface it as
		// a server failure rather than crashing the session.
		terr := &transport.Error{Kind: transport.KindServer, Message: appendErr.Error(), Err: appendErr}
		e.lastError = terr
		e.state = StateError
		snap := e.snapshotLocked()
		e.mu.Unlock()

		pending.handle.resolveErr(terr, terr)
		e.notify(snap)
		return
	}

	e.pending = nil
	e.lastError = nil
	e.state = StateSettled
	snap := e.snapshotLocked()
	e.mu.Unlock()

	pending.handle.resolveReply(assistant)
	e.notify(snap)
}

// =============================================================================
// HELPERS
// =============================================================================

// backoff returns the delay before attempt n (n ≥ 2).
func (e *Engine) backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	delay := e.cfg.BackoffBase * time.Duration(1<<uint(attempt-1))
	if delay > e.cfg.BackoffMax {
		delay = e.cfg.BackoffMax
	}
	return delay
}

// historyLocked renders recent delivered turns as backend context
// lines, excluding the message currently being submitted. Caller holds
// e.mu.
func (e *Engine) historyLocked(excludeID string) string {
	msgs := e.log.Snapshot()

	var lines []string
	for _, m := range msgs {
		if m.ID == excludeID || m.Status != model.StatusDelivered {
			continue
		}
		switch m.Role {
		case model.RoleUser:
			lines = append(lines, "ÉTUDIANT: "+m.Text)
		case model.RoleAssistant:
			lines = append(lines, "MEMOBOT: "+m.Text)
		}
	}

	maxLines := e.cfg.HistoryTurns * 2
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, "\n")
}

// abandonError picks the error for a handle abandoned by a new Submit.
func (e *Engine) abandonError(p *pendingRequest) error {
	if last := p.handle.LastError(); last != nil {
		return last
	}
	return ErrNotRetryable
}

// generateSessionID creates a unique session ID.
func generateSessionID() string {
	return "sess_" + uuid.NewString()
}

// generateRequestID creates a unique per-attempt request ID.
func generateRequestID() string {
	return uuid.NewString()
}
