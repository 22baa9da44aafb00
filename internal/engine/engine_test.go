// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memobot/memobot-tui/internal/model"
	"github.com/memobot/memobot-tui/internal/transport"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// stubResult is what the test feeds back for one adapter call.
type stubResult struct {
	reply *transport.Reply
	err   error
}

// stubAdapter hands each request to the test and blocks until the test
// provides the outcome or the context is torn down.
type stubAdapter struct {
	calls   chan transport.Request
	results chan stubResult
}

func newStubAdapter() *stubAdapter {
	return &stubAdapter{
		calls:   make(chan transport.Request, 16),
		results: make(chan stubResult, 16),
	}
}

func (a *stubAdapter) Send(ctx context.Context, req transport.Request) (*transport.Reply, error) {
	a.calls <- req
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-a.results:
		if r.err != nil {
			return nil, r.err
		}
		reply := *r.reply
		reply.RequestID = req.RequestID
		return &reply, nil
	}
}

// deafCall pairs a request with its private response channel so the
// test can answer a specific call, not whichever goroutine reads first.
type deafCall struct {
	req     transport.Request
	respond chan stubResult
}

// deafAdapter never notices cancellation: each call answers only when
// the test releases it, regardless of context state. Used to simulate a
// slow transport whose response arrives after the caller moved on.
type deafAdapter struct {
	calls chan deafCall
}

func newDeafAdapter() *deafAdapter {
	return &deafAdapter{calls: make(chan deafCall, 16)}
}

func (a *deafAdapter) Send(ctx context.Context, req transport.Request) (*transport.Reply, error) {
	call := deafCall{req: req, respond: make(chan stubResult, 1)}
	a.calls <- call
	r := <-call.respond
	if r.err != nil {
		return nil, r.err
	}
	reply := *r.reply
	reply.RequestID = req.RequestID
	return &reply, nil
}

// hangingAdapter blocks every call until the test releases it and never
// looks at the context, like a transport stuck on a dead socket.
type hangingAdapter struct {
	release chan struct{}
}

func newHangingAdapter() *hangingAdapter {
	return &hangingAdapter{release: make(chan struct{})}
}

func (a *hangingAdapter) Send(ctx context.Context, req transport.Request) (*transport.Reply, error) {
	<-a.release
	return &transport.Reply{RequestID: req.RequestID, Text: "TROP TARD"}, nil
}

// recordingSink collects every published snapshot.
type recordingSink struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (s *recordingSink) sink(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
}

func (s *recordingSink) states() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]State, len(s.snaps))
	for i, snap := range s.snaps {
		out[i] = snap.State
	}
	return out
}

// testConfig is DefaultConfig with fast policy and no greeting, so
// message counting in tests is exact.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Greeting = ""
	cfg.Timeout = 2 * time.Second
	cfg.BackoffBase = time.Millisecond
	return cfg
}

func waitHandle(t *testing.T, h *Handle) (model.Message, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return h.Wait(ctx)
}

func assistantMessages(msgs []model.Message) []model.Message {
	var out []model.Message
	for _, m := range msgs {
		if m.Role == model.RoleAssistant {
			out = append(out, m)
		}
	}
	return out
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestEngine_SubmitSettles(t *testing.T) {
	adapter := newStubAdapter()
	sink := &recordingSink{}
	e := New(adapter, sink.sink, testConfig())

	handle, err := e.Submit("Bonjour")
	require.NoError(t, err)

	req := <-adapter.calls
	assert.Equal(t, "Bonjour", req.Text)
	assert.Equal(t, e.SessionID(), req.SessionID)
	assert.Equal(t, handle.RequestID(), req.RequestID)

	adapter.results <- stubResult{reply: &transport.Reply{Text: "Salut !"}}

	reply, err := waitHandle(t, handle)
	require.NoError(t, err)
	assert.Equal(t, "Salut !", reply.Text)

	snap := e.Snapshot()
	assert.Equal(t, StateSettled, snap.State)
	assert.Nil(t, snap.LastError)

	require.Len(t, snap.Messages, 2)
	assert.Equal(t, model.RoleUser, snap.Messages[0].Role)
	assert.Equal(t, model.StatusDelivered, snap.Messages[0].Status)
	assert.Equal(t, "Bonjour", snap.Messages[0].Text)
	assert.Equal(t, model.RoleAssistant, snap.Messages[1].Role)
	assert.Equal(t, "Salut !", snap.Messages[1].Text)

	assert.Equal(t, []State{StateSending, StateAwaitingReply, StateSettled}, sink.states())
}

func TestEngine_SecondTurnCarriesHistory(t *testing.T) {
	adapter := newStubAdapter()
	e := New(adapter, nil, testConfig())

	h1, err := e.Submit("Bonjour")
	require.NoError(t, err)
	<-adapter.calls
	adapter.results <- stubResult{reply: &transport.Reply{Text: "Salut ! Quel est votre domaine ?"}}
	_, err = waitHandle(t, h1)
	require.NoError(t, err)

	_, err = e.Submit("L'IA en santé")
	require.NoError(t, err)

	req := <-adapter.calls
	assert.Contains(t, req.History, "ÉTUDIANT: Bonjour")
	assert.Contains(t, req.History, "MEMOBOT: Salut ! Quel est votre domaine ?")
	assert.NotContains(t, req.History, "L'IA en santé")
	adapter.results <- stubResult{reply: &transport.Reply{Text: "Excellent !"}}
}

func TestEngine_Greeting(t *testing.T) {
	cfg := testConfig()
	cfg.Greeting = DefaultGreeting
	e := New(newStubAdapter(), nil, cfg)

	snap := e.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, model.RoleAssistant, snap.Messages[0].Role)
	assert.Equal(t, DefaultGreeting, snap.Messages[0].Text)
	assert.Equal(t, StateIdle, snap.State)
}

// =============================================================================
// AT-MOST-ONE IN FLIGHT
// =============================================================================

func TestEngine_ConcurrentSubmissionRejected(t *testing.T) {
	adapter := newStubAdapter()
	e := New(adapter, nil, testConfig())

	_, err := e.Submit("premier")
	require.NoError(t, err)
	<-adapter.calls

	before := len(e.Snapshot().Messages)

	_, err = e.Submit("deuxième")
	assert.ErrorIs(t, err, ErrConcurrentSubmission)

	after := len(e.Snapshot().Messages)
	assert.Equal(t, before, after, "rejected submit must not touch the log")

	adapter.results <- stubResult{reply: &transport.Reply{Text: "ok"}}
}

func TestEngine_SubmitEmpty(t *testing.T) {
	e := New(newStubAdapter(), nil, testConfig())

	_, err := e.Submit("   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, StateIdle, e.State())
}

// =============================================================================
// FAILURE AND RETRY
// =============================================================================

func TestEngine_NetworkErrorThenRetry(t *testing.T) {
	adapter := newStubAdapter()
	e := New(adapter, nil, testConfig())

	handle, err := e.Submit("Test")
	require.NoError(t, err)
	<-adapter.calls
	adapter.results <- stubResult{err: &transport.Error{Kind: transport.KindNetwork, Message: "connexion refusée"}}

	require.Eventually(t, func() bool { return e.State() == StateError }, time.Second, 5*time.Millisecond)

	snap := e.Snapshot()
	require.NotNil(t, snap.LastError)
	assert.Equal(t, transport.KindNetwork, snap.LastError.Kind)
	assert.Equal(t, model.StatusFailed, snap.Messages[0].Status)

	failedID := snap.Messages[0].ID

	require.NoError(t, e.Retry(handle.RequestID()))

	req := <-adapter.calls
	assert.Equal(t, "Test", req.Text)
	adapter.results <- stubResult{reply: &transport.Reply{Text: "OK"}}

	reply, err := waitHandle(t, handle)
	require.NoError(t, err)
	assert.Equal(t, "OK", reply.Text)

	final := e.Snapshot()
	assert.Equal(t, StateSettled, final.State)
	assert.Nil(t, final.LastError)

	assistants := assistantMessages(final.Messages)
	require.Len(t, assistants, 1, "no duplicate assistant message from the failed attempt")

	// The retry appended a fresh user message superseding the failed one.
	require.Len(t, final.Messages, 3)
	assert.Equal(t, model.StatusFailed, final.Messages[0].Status)
	assert.Equal(t, failedID, final.Messages[1].Supersedes)
	assert.Equal(t, model.StatusDelivered, final.Messages[1].Status)
}

func TestEngine_RetryBounds(t *testing.T) {
	adapter := newStubAdapter()
	cfg := testConfig()
	cfg.MaxAttempts = 2
	e := New(adapter, nil, cfg)

	handle, err := e.Submit("Test")
	require.NoError(t, err)

	fail := stubResult{err: &transport.Error{Kind: transport.KindServer, Message: "boom"}}

	<-adapter.calls
	adapter.results <- fail
	require.Eventually(t, func() bool { return e.State() == StateError }, time.Second, 5*time.Millisecond)

	require.NoError(t, e.Retry(handle.RequestID()))
	<-adapter.calls
	adapter.results <- fail

	// Attempt budget spent: the handle resolves with the failure.
	_, err = waitHandle(t, handle)
	require.Error(t, err)

	assert.ErrorIs(t, e.Retry(handle.RequestID()), ErrMaxRetriesExceeded)
	assert.Equal(t, StateError, e.State())
}

func TestEngine_RetryWrongState(t *testing.T) {
	e := New(newStubAdapter(), nil, testConfig())
	assert.ErrorIs(t, e.Retry("whatever"), ErrNotRetryable)
}

func TestEngine_RetryUnknownRequest(t *testing.T) {
	adapter := newStubAdapter()
	e := New(adapter, nil, testConfig())

	_, err := e.Submit("Test")
	require.NoError(t, err)
	<-adapter.calls
	adapter.results <- stubResult{err: &transport.Error{Kind: transport.KindNetwork, Message: "down"}}
	require.Eventually(t, func() bool { return e.State() == StateError }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, e.Retry("not-a-request"), ErrUnknownRequest)
}

func TestEngine_SubmitFromErrorAbandonsFailedRequest(t *testing.T) {
	adapter := newStubAdapter()
	e := New(adapter, nil, testConfig())

	h1, err := e.Submit("premier")
	require.NoError(t, err)
	<-adapter.calls
	adapter.results <- stubResult{err: &transport.Error{Kind: transport.KindTimeout, Message: "trop lent"}}
	require.Eventually(t, func() bool { return e.State() == StateError }, time.Second, 5*time.Millisecond)

	h2, err := e.Submit("deuxième")
	require.NoError(t, err)

	// The abandoned handle resolves with its last failure.
	_, err = waitHandle(t, h1)
	require.Error(t, err)

	<-adapter.calls
	adapter.results <- stubResult{reply: &transport.Reply{Text: "ok"}}
	_, err = waitHandle(t, h2)
	require.NoError(t, err)
	assert.Equal(t, StateSettled, e.State())
}

// =============================================================================
// TIMEOUT
// =============================================================================

func TestEngine_Timeout(t *testing.T) {
	adapter := newStubAdapter()
	cfg := testConfig()
	cfg.Timeout = 30 * time.Millisecond
	e := New(adapter, nil, cfg)

	handle, err := e.Submit("Test")
	require.NoError(t, err)
	<-adapter.calls
	// Never feed a result: the engine's own deadline must fire.

	require.Eventually(t, func() bool { return e.State() == StateError }, time.Second, 5*time.Millisecond)

	snap := e.Snapshot()
	require.NotNil(t, snap.LastError)
	assert.Equal(t, transport.KindTimeout, snap.LastError.Kind)
	assert.Equal(t, model.StatusFailed, snap.Messages[0].Status)
	require.NotNil(t, handle.LastError())
	assert.Equal(t, transport.KindTimeout, handle.LastError().Kind)
}

func TestEngine_TimeoutWithUnresponsiveAdapter(t *testing.T) {
	adapter := newHangingAdapter()
	t.Cleanup(func() { close(adapter.release) })

	cfg := testConfig()
	cfg.Timeout = 30 * time.Millisecond
	e := New(adapter, nil, cfg)

	handle, err := e.Submit("Test")
	require.NoError(t, err)

	// The adapter never returns and never looks at its context; the
	// engine's own deadline must still move the session to Error.
	require.Eventually(t, func() bool { return e.State() == StateError }, time.Second, 5*time.Millisecond)

	snap := e.Snapshot()
	require.NotNil(t, snap.LastError)
	assert.Equal(t, transport.KindTimeout, snap.LastError.Kind)
	assert.Equal(t, model.StatusFailed, snap.Messages[0].Status)
	require.NotNil(t, handle.LastError())
	assert.Equal(t, transport.KindTimeout, handle.LastError().Kind)

	// The session is not wedged: a fresh Submit is accepted and the
	// abandoned handle resolves.
	h2, err := e.Submit("Deuxième essai")
	require.NoError(t, err)
	assert.NotEqual(t, handle.RequestID(), h2.RequestID())

	_, err = waitHandle(t, handle)
	require.Error(t, err)
}

// =============================================================================
// CANCELLATION AND STALENESS
// =============================================================================

func TestEngine_Cancel(t *testing.T) {
	adapter := newStubAdapter()
	e := New(adapter, nil, testConfig())

	handle, err := e.Submit("Test")
	require.NoError(t, err)
	<-adapter.calls

	require.NoError(t, e.Cancel(""))

	// Client-authoritative: Idle immediately, no error carried.
	snap := e.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.LastError)
	assert.Equal(t, model.StatusFailed, snap.Messages[0].Status)

	_, err = waitHandle(t, handle)
	var terr *transport.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, transport.KindCancelled, terr.Kind)
}

func TestEngine_CancelNoInFlight(t *testing.T) {
	e := New(newStubAdapter(), nil, testConfig())

	assert.NoError(t, e.Cancel(""), "cancel with nothing in flight is a no-op")
	assert.ErrorIs(t, e.Cancel("bogus"), ErrUnknownRequest)
}

func TestEngine_StaleResponseDiscarded(t *testing.T) {
	adapter := newDeafAdapter()
	e := New(adapter, nil, testConfig())

	// R1 goes out, the user cancels, R2 goes out.
	_, err := e.Submit("première question")
	require.NoError(t, err)
	call1 := <-adapter.calls

	require.NoError(t, e.Cancel(""))

	h2, err := e.Submit("deuxième question")
	require.NoError(t, err)
	call2 := <-adapter.calls

	// R1's transport finally answers, long after the cancel. The engine
	// must drop it: R1 is no longer the in-flight request.
	call1.respond <- stubResult{reply: &transport.Reply{Text: "RÉPONSE PÉRIMÉE"}}

	time.Sleep(50 * time.Millisecond)
	snap := e.Snapshot()
	assert.Equal(t, StateAwaitingReply, snap.State, "stale response must not change session state")
	for _, m := range snap.Messages {
		assert.NotEqual(t, "RÉPONSE PÉRIMÉE", m.Text, "stale payload must not enter the log")
	}

	// R2 settles normally.
	call2.respond <- stubResult{reply: &transport.Reply{Text: "RÉPONSE ACTUELLE"}}
	reply, err := waitHandle(t, h2)
	require.NoError(t, err)
	assert.Equal(t, "RÉPONSE ACTUELLE", reply.Text)
	assert.Equal(t, StateSettled, e.State())
}

// =============================================================================
// RESET
// =============================================================================

func TestEngine_ResetIdempotent(t *testing.T) {
	cfg := testConfig()
	cfg.Greeting = DefaultGreeting
	adapter := newStubAdapter()
	e := New(adapter, nil, cfg)

	_, err := e.Submit("Bonjour")
	require.NoError(t, err)
	<-adapter.calls

	e.Reset()
	e.Reset()

	snap := e.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.LastError)
	require.Len(t, snap.Messages, 1, "fresh conversation holds only the greeting")
	assert.Equal(t, DefaultGreeting, snap.Messages[0].Text)
}

func TestEngine_ResetStartsNewSession(t *testing.T) {
	e := New(newStubAdapter(), nil, testConfig())

	before := e.SessionID()
	e.Reset()
	assert.NotEqual(t, before, e.SessionID())
}

func TestEngine_ResetResolvesOutstandingHandle(t *testing.T) {
	adapter := newStubAdapter()
	e := New(adapter, nil, testConfig())

	handle, err := e.Submit("Test")
	require.NoError(t, err)
	<-adapter.calls

	e.Reset()

	_, err = waitHandle(t, handle)
	var terr *transport.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, transport.KindCancelled, terr.Kind)
}

// =============================================================================
// SNAPSHOT IMMUTABILITY
// =============================================================================

func TestEngine_SnapshotIsImmutable(t *testing.T) {
	adapter := newStubAdapter()
	e := New(adapter, nil, testConfig())

	h, err := e.Submit("original")
	require.NoError(t, err)
	<-adapter.calls
	adapter.results <- stubResult{reply: &transport.Reply{Text: "réponse"}}
	_, err = waitHandle(t, h)
	require.NoError(t, err)

	snap := e.Snapshot()
	snap.Messages[0].Text = "mutation"

	assert.Equal(t, "original", e.Snapshot().Messages[0].Text)
}

// =============================================================================
// STATE TYPE
// =============================================================================

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "Idle"},
		{StateSending, "Sending"},
		{StateAwaitingReply, "AwaitingReply"},
		{StateError, "Error"},
		{StateSettled, "Settled"},
		{State(99), "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestState_CanSubmit(t *testing.T) {
	assert.True(t, StateIdle.CanSubmit())
	assert.True(t, StateSettled.CanSubmit())
	assert.True(t, StateError.CanSubmit())
	assert.False(t, StateSending.CanSubmit())
	assert.False(t, StateAwaitingReply.CanSubmit())
}
