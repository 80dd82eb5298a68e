// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/killfeed/internal/logging"
)

type countingProcessor struct {
	processed atomic.Int64
	gate      chan struct{}
	panicOn   int64

	mu             sync.Mutex
	correlationIDs []string
}

func (c *countingProcessor) Process(ctx context.Context, raw map[string]interface{}) (*Result, error) {
	if c.gate != nil {
		<-c.gate
	}
	if id, _ := raw["id"].(int64); id != 0 && id == c.panicOn {
		panic("boom")
	}
	c.mu.Lock()
	c.correlationIDs = append(c.correlationIDs, logging.CorrelationIDFromContext(ctx))
	c.mu.Unlock()
	c.processed.Add(1)
	return &Result{}, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestNewPool_Validation(t *testing.T) {
	if _, err := NewPool(&countingProcessor{}, PoolConfig{Backpressure: "drop-oldest"}); err == nil {
		t.Error("unknown policy should be rejected")
	}

	p, err := NewPool(&countingProcessor{}, PoolConfig{})
	if err != nil {
		t.Fatal(err)
	}
	stats := p.Stats()
	if stats.Workers != 4 || stats.QueueSize != 256 || stats.Policy != PolicyBlock {
		t.Errorf("defaults = %+v", stats)
	}
}

func TestPool_ProcessesSubmittedEvents(t *testing.T) {
	proc := &countingProcessor{}
	p, err := NewPool(proc, PoolConfig{Workers: 3, QueueSize: 10, Backpressure: PolicyBlock})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	for i := 0; i < 20; i++ {
		if err := p.Submit(ctx, map[string]interface{}{"killmail_id": i}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	waitFor(t, func() bool { return proc.processed.Load() == 20 })

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v", err)
	}
	if p.Stats().Submitted != 20 {
		t.Errorf("submitted = %d", p.Stats().Submitted)
	}
}

func TestPool_RejectPolicy(t *testing.T) {
	p, err := NewPool(&countingProcessor{}, PoolConfig{Workers: 1, QueueSize: 2, Backpressure: PolicyReject})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	// No workers running, so the queue fills.
	for i := 0; i < 2; i++ {
		if err := p.Submit(ctx, map[string]interface{}{}); err != nil {
			t.Fatalf("Submit(%d) error = %v", i, err)
		}
	}
	if err := p.Submit(ctx, map[string]interface{}{}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Submit() on full queue = %v, want ErrQueueFull", err)
	}

	stats := p.Stats()
	if stats.Rejected != 1 || stats.QueueDepth != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPool_BlockPolicyWaitsForContext(t *testing.T) {
	p, err := NewPool(&countingProcessor{}, PoolConfig{Workers: 1, QueueSize: 1, Backpressure: PolicyBlock})
	if err != nil {
		t.Fatal(err)
	}

	if err := p.Submit(context.Background(), map[string]interface{}{}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Submit(ctx, map[string]interface{}{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Submit() on full queue = %v, want deadline exceeded", err)
	}
	if p.Stats().Rejected != 0 {
		t.Error("block policy should not count rejections")
	}
}

func TestPool_BlockPolicyResumesWhenDrained(t *testing.T) {
	proc := &countingProcessor{gate: make(chan struct{})}
	p, err := NewPool(proc, PoolConfig{Workers: 1, QueueSize: 1, Backpressure: PolicyBlock})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	// One event held by the worker, one in the queue, the third blocks.
	for i := 0; i < 2; i++ {
		if err := p.Submit(ctx, map[string]interface{}{}); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, func() bool { return p.QueueDepth() <= 1 })

	submitted := make(chan error, 1)
	go func() { submitted <- p.Submit(ctx, map[string]interface{}{}) }()

	close(proc.gate)
	select {
	case err := <-submitted:
		if err != nil {
			t.Errorf("blocked Submit() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("blocked Submit() never resumed")
	}
	waitFor(t, func() bool { return proc.processed.Load() == 3 })
}

func TestPool_RecoversFromPanics(t *testing.T) {
	proc := &countingProcessor{panicOn: 13}
	p, err := NewPool(proc, PoolConfig{Workers: 1, QueueSize: 4})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	_ = p.Submit(ctx, map[string]interface{}{"id": int64(13)})
	_ = p.Submit(ctx, map[string]interface{}{"id": int64(14)})

	waitFor(t, func() bool { return proc.processed.Load() == 1 })
}

func TestPool_PropagatesCorrelationID(t *testing.T) {
	proc := &countingProcessor{}
	p, err := NewPool(proc, PoolConfig{Workers: 1, QueueSize: 4})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	if err := p.Submit(logging.ContextWithCorrelationID(ctx, "feed-42"), map[string]interface{}{}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return proc.processed.Load() == 1 })

	proc.mu.Lock()
	defer proc.mu.Unlock()
	if proc.correlationIDs[0] != "feed-42" {
		t.Errorf("correlation id = %q", proc.correlationIDs[0])
	}
}

func TestPool_RunTwice(t *testing.T) {
	p, err := NewPool(&countingProcessor{}, PoolConfig{Workers: 1, QueueSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()
	waitFor(t, func() bool { return p.running.Load() })

	if err := p.Run(ctx); err == nil {
		t.Error("second Run() should fail while the first is active")
	}
}

func TestPool_SubmitBytes(t *testing.T) {
	p, err := NewPool(&countingProcessor{}, PoolConfig{Workers: 1, QueueSize: 1, Backpressure: PolicyReject})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SubmitBytes(context.Background(), []byte("{")); err == nil {
		t.Error("malformed JSON should fail")
	}
	if err := p.SubmitBytes(context.Background(), []byte(`{"killmail_id": 1}`)); err != nil {
		t.Errorf("SubmitBytes() = %v", err)
	}
}
