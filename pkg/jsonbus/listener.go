package jsonbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-petinga/pkg/protocol"
)

// DefaultPollInterval bounds how long the listener blocks in Receive before
// checking for cancellation.
const DefaultPollInterval = 100 * time.Millisecond

// Callback handles one received frame.
type Callback func(msg protocol.Message)

// PeriodicTask runs on a fixed interval while the listener is running.
type PeriodicTask func(ctx context.Context) error

type callback struct {
	fn     Callback
	filter map[protocol.Abbrev]bool // nil = every frame
}

type periodicTask struct {
	fn       PeriodicTask
	interval time.Duration
}

// Listener subscribes to telemetry on its own Client and dispatches incoming
// frames to callbacks. It is the only reader of that client while running.
type Listener struct {
	client       *Client
	logger       *slog.Logger
	pollInterval time.Duration

	mu        sync.Mutex
	callbacks []callback
	tasks     []periodicTask
	running   bool
}

// NewListener creates a listener driving client.
func NewListener(client *Client, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		client:       client,
		logger:       logger.With("component", "listener"),
		pollInterval: DefaultPollInterval,
	}
}

// SetPollInterval changes how often Run checks for cancellation.
func (l *Listener) SetPollInterval(d time.Duration) {
	if d > 0 {
		l.pollInterval = d
	}
}

// AddCallback registers fn for the given message kinds. With no kinds fn
// receives every frame. Register before Run.
func (l *Listener) AddCallback(fn Callback, abbrevs ...protocol.Abbrev) error {
	if fn == nil {
		return errors.New("callback must not be nil")
	}

	var filter map[protocol.Abbrev]bool
	if len(abbrevs) > 0 {
		filter = make(map[protocol.Abbrev]bool, len(abbrevs))
		for _, a := range abbrevs {
			if a == "" {
				return errors.New("message filter contains an empty name")
			}
			filter[a] = true
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return errors.New("listener already running")
	}
	l.callbacks = append(l.callbacks, callback{fn: fn, filter: filter})
	l.logger.Debug("callback registered", "messages", abbrevs)
	return nil
}

// AddPeriodicTask registers fn to run every interval, starting when Run starts.
func (l *Listener) AddPeriodicTask(fn PeriodicTask, interval time.Duration) error {
	if fn == nil {
		return errors.New("task must not be nil")
	}
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return errors.New("listener already running")
	}
	l.tasks = append(l.tasks, periodicTask{fn: fn, interval: interval})
	l.logger.Debug("periodic task registered", "interval", interval)
	return nil
}

// subscriptions returns the kinds to subscribe to; all is true when any
// callback is unfiltered.
func (l *Listener) subscriptions() (abbrevs []protocol.Abbrev, all bool) {
	seen := make(map[protocol.Abbrev]bool)
	for _, cb := range l.callbacks {
		if cb.filter == nil {
			return nil, true
		}
		for a := range cb.filter {
			if !seen[a] {
				seen[a] = true
				abbrevs = append(abbrevs, a)
			}
		}
	}
	return abbrevs, false
}

// Run connects (if needed), subscribes, and dispatches frames until ctx is
// cancelled or the connection fails. On return it unsubscribes and closes
// the client. Cancellation returns nil.
func (l *Listener) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("listener already running")
	}
	l.running = true
	callbacks := append([]callback(nil), l.callbacks...)
	tasks := append([]periodicTask(nil), l.tasks...)
	abbrevs, all := l.subscriptions()
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	if l.client.State() == StateClosed {
		if err := l.client.Connect(ctx); err != nil {
			return err
		}
		if err := l.client.Handshake(0); err != nil {
			return err
		}
	}
	defer l.client.Close()

	switch {
	case all:
		if err := l.client.Subscribe(); err != nil {
			return err
		}
		l.logger.Info("subscribed to all messages")
	case len(abbrevs) > 0:
		if err := l.client.Subscribe(abbrevs...); err != nil {
			return err
		}
		l.logger.Info("subscribed", "messages", abbrevs)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task periodicTask) {
			defer wg.Done()
			l.runPeriodic(taskCtx, task)
		}(task)
	}
	defer func() {
		cancel()
		wg.Wait()
		if l.client.State() == StateOpen {
			if err := l.client.Unsubscribe(); err != nil {
				l.logger.Warn("unsubscribe failed", "error", err)
			}
		}
	}()

	l.logger.Info("listening for messages", "callbacks", len(callbacks), "tasks", len(tasks))

	for {
		if ctx.Err() != nil {
			l.logger.Info("listener stopped")
			return nil
		}

		msg, err := l.client.Receive(l.pollInterval)
		if err != nil {
			if IsTimeout(err) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("listener receive: %w", err)
		}

		abbrev := msg.Abbrev()
		for _, cb := range callbacks {
			if cb.filter == nil || cb.filter[abbrev] {
				cb.fn(msg)
			}
		}
	}
}

func (l *Listener) runPeriodic(ctx context.Context, task periodicTask) {
	ticker := time.NewTicker(task.interval)
	defer ticker.Stop()

	for {
		if err := task.fn(ctx); err != nil {
			l.logger.Warn("periodic task failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
