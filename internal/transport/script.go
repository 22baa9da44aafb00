// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"sync"
	"time"
)

// DefaultScriptDelay simulates backend latency in offline mode.
const DefaultScriptDelay = 400 * time.Millisecond

// defaultScript is what the hosted dashboard's mock bot used to answer
// with while the real backend was unavailable.
var defaultScript = []string{
	"Merci pour votre message. Pour mieux vous aider, pourriez-vous me dire quel est votre domaine d'études ?",
	"Très intéressant ! Quel niveau académique préparez-vous (L3, M1, M2, Doctorat) ?",
	"Je vois. Voici une piste : précisez les technologies ou méthodes qui vous attirent, et je vous proposerai des sujets de mémoire adaptés.",
}

// =============================================================================
// SCRIPTED ADAPTER
// =============================================================================

// ScriptAdapter answers every request from a fixed script, cycling when
// the script runs out. It honors context cancellation during its
// simulated latency, which makes it suitable both for offline mode and
// for exercising the engine's timeout/cancel paths in tests.
type ScriptAdapter struct {
	mu       sync.Mutex
	script   []string
	next     int
	delay    time.Duration
	calls    int
	failures int // remaining forced failures, for tests
	failWith *Error
}

// NewScriptAdapter creates an adapter with the default MemoBot script.
func NewScriptAdapter() *ScriptAdapter {
	return &ScriptAdapter{
		script: defaultScript,
		delay:  DefaultScriptDelay,
	}
}

// WithScript replaces the reply script.
func (a *ScriptAdapter) WithScript(replies []string) *ScriptAdapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(replies) > 0 {
		a.script = replies
		a.next = 0
	}
	return a
}

// WithDelay sets the simulated latency per request.
func (a *ScriptAdapter) WithDelay(d time.Duration) *ScriptAdapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.delay = d
	return a
}

// FailNext makes the next n calls fail with the given error before the
// script resumes.
func (a *ScriptAdapter) FailNext(n int, err *Error) *ScriptAdapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = n
	a.failWith = err
	return a
}

// Calls returns how many Send calls the adapter has served.
func (a *ScriptAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Send implements Adapter.
func (a *ScriptAdapter) Send(ctx context.Context, req Request) (*Reply, error) {
	a.mu.Lock()
	a.calls++
	delay := a.delay
	var forced *Error
	if a.failures > 0 {
		a.failures--
		forced = a.failWith
	}
	a.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, Classify(ctx.Err())
		case <-time.After(delay):
		}
	}

	if forced != nil {
		return nil, forced
	}

	a.mu.Lock()
	text := a.script[a.next%len(a.script)]
	a.next++
	a.mu.Unlock()

	return &Reply{
		RequestID:   req.RequestID,
		Text:        text,
		Suggestions: []string{"Sujets en IA médicale", "Méthodologies de recherche"},
	}, nil
}
