// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package esi

import (
	"context"
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/killfeed/internal/breaker"
	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/models"
)

// BreakerResolver wraps a Resolver with a circuit breaker. Permanent errors
// (unknown ids, malformed bodies, 4xx) count as successes so a burst of bad
// ids cannot open the circuit.
type BreakerResolver struct {
	next Resolver
	cb   *gobreaker.CircuitBreaker[string]
}

// NewBreakerResolver wraps next with a breaker configured from cfg.
func NewBreakerResolver(next Resolver, cfg config.BreakerConfig) *BreakerResolver {
	settings := breaker.FromConfig("esi-api", cfg)
	settings.IsSuccessful = func(err error) bool {
		return err == nil || (!Retryable(err) && !errors.Is(err, context.Canceled))
	}
	return &BreakerResolver{
		next: next,
		cb:   breaker.New[string](settings),
	}
}

// Resolve implements Resolver.
func (b *BreakerResolver) Resolve(ctx context.Context, kind models.EntityKind, id int64) (string, error) {
	return breaker.Execute(b.cb, func() (string, error) {
		return b.next.Resolve(ctx, kind, id)
	})
}

// State returns the breaker state name.
func (b *BreakerResolver) State() string {
	return breaker.StateString(b.cb.State())
}
