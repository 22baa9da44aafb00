// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestScriptAdapter_CyclesScript(t *testing.T) {
	adapter := NewScriptAdapter().
		WithScript([]string{"un", "deux"}).
		WithDelay(0)

	var got []string
	for i := 0; i < 3; i++ {
		reply, err := adapter.Send(context.Background(), Request{RequestID: "r"})
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		got = append(got, reply.Text)
	}

	want := []string{"un", "deux", "un"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("reply %d = %q, want %q", i, got[i], want[i])
		}
	}
	if adapter.Calls() != 3 {
		t.Errorf("Calls = %d, want 3", adapter.Calls())
	}
}

func TestScriptAdapter_EchoesRequestID(t *testing.T) {
	adapter := NewScriptAdapter().WithDelay(0)

	reply, err := adapter.Send(context.Background(), Request{RequestID: "req-42"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if reply.RequestID != "req-42" {
		t.Errorf("RequestID = %q, want req-42", reply.RequestID)
	}
}

func TestScriptAdapter_HonorsCancellation(t *testing.T) {
	adapter := NewScriptAdapter().WithDelay(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := adapter.Send(ctx, Request{RequestID: "r"})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Send did not return promptly after cancellation")
	}

	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != KindCancelled {
		t.Errorf("error = %v, want KindCancelled", err)
	}
}

func TestScriptAdapter_FailNext(t *testing.T) {
	adapter := NewScriptAdapter().
		WithDelay(0).
		FailNext(1, &Error{Kind: KindNetwork, Message: "simulated outage"})

	_, err := adapter.Send(context.Background(), Request{RequestID: "r1"})
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != KindNetwork {
		t.Fatalf("first call error = %v, want KindNetwork", err)
	}

	reply, err := adapter.Send(context.Background(), Request{RequestID: "r2"})
	if err != nil {
		t.Fatalf("second call should recover: %v", err)
	}
	if reply.Text == "" {
		t.Error("recovered reply should carry script text")
	}
}
