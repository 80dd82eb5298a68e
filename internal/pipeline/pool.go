// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/tomtom215/killfeed/internal/canonical"
	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
)

// Backpressure policies.
const (
	PolicyBlock  = "block"
	PolicyReject = "reject"
)

// ErrQueueFull is returned by Submit under the reject policy when no queue
// slot is free.
var ErrQueueFull = errors.New("pipeline queue is full")

// Processor handles one decoded payload.
type Processor interface {
	Process(ctx context.Context, raw map[string]interface{}) (*Result, error)
}

// PoolConfig sizes the pool.
type PoolConfig struct {
	Workers      int
	QueueSize    int
	Backpressure string
}

// PoolConfigFrom extracts pool settings from the application config.
func PoolConfigFrom(cfg config.PipelineConfig) PoolConfig {
	return PoolConfig{Workers: cfg.Workers, QueueSize: cfg.QueueSize, Backpressure: cfg.Backpressure}
}

type job struct {
	raw           map[string]interface{}
	correlationID string
}

// Pool is a bounded queue drained by a fixed set of workers. The queue
// outlives Run, so a supervisor restart keeps queued events.
type Pool struct {
	processor Processor
	jobs      chan job
	workers   int
	policy    string
	log       zerolog.Logger

	submitted atomic.Int64
	rejected  atomic.Int64
	running   atomic.Bool
}

// NewPool creates a Pool. Workers and QueueSize default to 4 and 256.
func NewPool(processor Processor, cfg PoolConfig) (*Pool, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	switch cfg.Backpressure {
	case "":
		cfg.Backpressure = PolicyBlock
	case PolicyBlock, PolicyReject:
	default:
		return nil, fmt.Errorf("unknown backpressure policy %q", cfg.Backpressure)
	}
	return &Pool{
		processor: processor,
		jobs:      make(chan job, cfg.QueueSize),
		workers:   cfg.Workers,
		policy:    cfg.Backpressure,
		log:       logging.WithComponent("pool"),
	}, nil
}

// Submit enqueues raw for processing. Under the block policy it waits for a
// free slot or ctx; under the reject policy it fails fast with ErrQueueFull.
func (p *Pool) Submit(ctx context.Context, raw map[string]interface{}) error {
	j := job{raw: raw, correlationID: logging.CorrelationIDFromContext(ctx)}

	if p.policy == PolicyReject {
		select {
		case p.jobs <- j:
		default:
			p.rejected.Add(1)
			metrics.RecordEventRejected("queue_full")
			logging.Ctx(ctx).Warn().
				Int("queue_size", cap(p.jobs)).
				Msg("Pipeline queue full, dropping event")
			return ErrQueueFull
		}
	} else {
		select {
		case p.jobs <- j:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.submitted.Add(1)
	metrics.EventsSubmitted.Inc()
	metrics.QueueDepth.Set(float64(len(p.jobs)))
	return nil
}

// SubmitBytes decodes a JSON payload and submits it.
func (p *Pool) SubmitBytes(ctx context.Context, data []byte) error {
	raw, err := canonical.DecodeJSON(data)
	if err != nil {
		metrics.RecordEventRejected("decode_error")
		return err
	}
	return p.Submit(ctx, raw)
}

// Run starts the workers and blocks until ctx is done. Events still queued
// stay in the queue for the next Run.
func (p *Pool) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("pipeline pool already running")
	}
	defer p.running.Store(false)

	p.log.Info().
		Int("workers", p.workers).
		Int("queue_size", cap(p.jobs)).
		Str("backpressure", p.policy).
		Msg("Pipeline workers started")

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx)
		}()
	}
	wg.Wait()

	p.log.Info().Int("queued", len(p.jobs)).Msg("Pipeline workers stopped")
	return ctx.Err()
}

func (p *Pool) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			metrics.QueueDepth.Set(float64(len(p.jobs)))
			p.handle(ctx, j)
		}
	}
}

func (p *Pool) handle(ctx context.Context, j job) {
	if j.correlationID != "" {
		ctx = logging.ContextWithCorrelationID(ctx, j.correlationID)
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().
				Interface("panic", r).
				Msg("Recovered from panic in pipeline worker")
		}
	}()

	if _, err := p.processor.Process(ctx, j.raw); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Event not processed")
	}
}

// QueueDepth returns the number of queued events.
func (p *Pool) QueueDepth() int {
	return len(p.jobs)
}

// PoolStats are cumulative admission counters.
type PoolStats struct {
	Submitted  int64  `json:"submitted"`
	Rejected   int64  `json:"rejected"`
	QueueDepth int    `json:"queue_depth"`
	QueueSize  int    `json:"queue_size"`
	Workers    int    `json:"workers"`
	Policy     string `json:"backpressure"`
}

// Stats returns admission counters and queue occupancy.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Submitted:  p.submitted.Load(),
		Rejected:   p.rejected.Load(),
		QueueDepth: len(p.jobs),
		QueueSize:  cap(p.jobs),
		Workers:    p.workers,
		Policy:     p.policy,
	}
}

// String implements fmt.Stringer for supervision logs.
func (p *Pool) String() string {
	return "pipeline-pool"
}

// Serve implements suture.Service.
func (p *Pool) Serve(ctx context.Context) error {
	return p.Run(ctx)
}
