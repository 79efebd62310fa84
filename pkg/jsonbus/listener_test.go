package jsonbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-petinga/pkg/protocol"
)

func TestListenerRegistration(t *testing.T) {
	l := NewListener(newTestClient(t, DefaultConfig()), nil)

	if err := l.AddCallback(nil); err == nil {
		t.Error("nil callback should be rejected")
	}
	if err := l.AddCallback(func(protocol.Message) {}, ""); err == nil {
		t.Error("empty message name should be rejected")
	}
	if err := l.AddPeriodicTask(nil, time.Second); err == nil {
		t.Error("nil task should be rejected")
	}
	if err := l.AddPeriodicTask(func(context.Context) error { return nil }, 0); err == nil {
		t.Error("zero interval should be rejected")
	}
	if err := l.AddCallback(func(protocol.Message) {}, protocol.AbbrevEstimatedState); err != nil {
		t.Errorf("AddCallback() error = %v", err)
	}
}

func TestListenerSubscriptions(t *testing.T) {
	l := NewListener(newTestClient(t, DefaultConfig()), nil)
	l.AddCallback(func(protocol.Message) {}, protocol.AbbrevEstimatedState)
	l.AddCallback(func(protocol.Message) {}, protocol.AbbrevEstimatedState, protocol.AbbrevSimulatedState)

	abbrevs, all := l.subscriptions()
	if all {
		t.Error("filtered callbacks should not subscribe to all")
	}
	if len(abbrevs) != 2 {
		t.Errorf("subscriptions = %v, want 2 unique kinds", abbrevs)
	}

	l.AddCallback(func(protocol.Message) {})
	if _, all := l.subscriptions(); !all {
		t.Error("an unfiltered callback should subscribe to all")
	}
}

func TestListenerDispatch(t *testing.T) {
	srv := newStubServer(t, testWelcome)
	client := newTestClient(t, srv.config())
	l := NewListener(client, nil)
	l.SetPollInterval(20 * time.Millisecond)

	var mu sync.Mutex
	var states, sims []protocol.Message
	l.AddCallback(func(m protocol.Message) {
		mu.Lock()
		states = append(states, m)
		mu.Unlock()
	}, protocol.AbbrevEstimatedState)
	l.AddCallback(func(m protocol.Message) {
		mu.Lock()
		sims = append(sims, m)
		mu.Unlock()
	}, protocol.AbbrevSimulatedState)

	var ticks atomic.Int32
	l.AddPeriodicTask(func(context.Context) error {
		ticks.Add(1)
		return nil
	}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	conn := srv.accept(t)
	if got := conn.readLine(t); got != `{"command":"subscribe","messages":["EstimatedState","SimulatedState"]}` &&
		got != `{"command":"subscribe","messages":["SimulatedState","EstimatedState"]}` {
		t.Fatalf("subscribe frame = %s", got)
	}

	conn.write(t, "{\"abbrev\":\"EstimatedState\",\"depth\":3}\n{\"abbrev\":\"SimulatedState\"}\n{\"abbrev\":\"Voltage\"}\n")
	time.Sleep(100 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if got := conn.readLine(t); got != `{"command":"unsubscribe"}` {
		t.Errorf("expected unsubscribe on shutdown, got %s", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 1 || len(sims) != 1 {
		t.Errorf("dispatched %d EstimatedState and %d SimulatedState, want 1 each", len(states), len(sims))
	}
	if ticks.Load() < 2 {
		t.Errorf("periodic task ran %d times, want at least 2", ticks.Load())
	}
	if client.State() != StateClosed {
		t.Error("Run should close the client on exit")
	}
}

func TestListenerStopsOnDisconnect(t *testing.T) {
	srv := newStubServer(t, testWelcome)
	client := newTestClient(t, srv.config())
	l := NewListener(client, nil)
	l.SetPollInterval(20 * time.Millisecond)
	l.AddCallback(func(protocol.Message) {})

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()

	conn := srv.accept(t)
	conn.readLine(t) // subscribe_all
	conn.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrConnectionClosed) {
			t.Errorf("Run() error = %v, want ErrConnectionClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after disconnect")
	}
}
