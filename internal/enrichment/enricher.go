// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package enrichment

import (
	"context"
	"time"

	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/esi"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
	"github.com/tomtom215/killfeed/internal/models"
)

// Config bounds the retry behaviour of the enricher.
type Config struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	SystemMaxAttempts int
}

// ConfigFromESI extracts enricher settings from the ESI config section.
func ConfigFromESI(cfg config.ESIConfig) Config {
	return Config{
		MaxAttempts:       cfg.MaxAttempts,
		BackoffBase:       cfg.BackoffBase,
		SystemMaxAttempts: cfg.SystemMaxAttempts,
	}
}

// Report summarizes one enrichment pass.
type Report struct {
	Total            int     `json:"total"`
	CacheHits        int     `json:"cache_hits"`
	Resolved         int     `json:"resolved"`
	Failed           int     `json:"failed"`
	Retries          int     `json:"retries"`
	SystemReverified bool    `json:"system_reverified"`
	Quality          float64 `json:"quality"`
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Enricher fills unresolved entity names on a killmail.
type Enricher struct {
	resolver esi.Resolver
	cache    *EntityCache
	cfg      Config
	sleep    SleepFunc
	now      func() time.Time
}

// New creates an Enricher. Zero config values fall back to 3 attempts,
// a 100ms backoff base and 5 system re-verification attempts.
func New(resolver esi.Resolver, entityCache *EntityCache, cfg Config) *Enricher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 100 * time.Millisecond
	}
	if cfg.SystemMaxAttempts <= 0 {
		cfg.SystemMaxAttempts = 5
	}
	return &Enricher{
		resolver: resolver,
		cache:    entityCache,
		cfg:      cfg,
		sleep:    sleepContext,
		now:      time.Now,
	}
}

// WithSleep replaces the backoff wait.
func (e *Enricher) WithSleep(fn SleepFunc) *Enricher {
	e.sleep = fn
	return e
}

// Cache returns the entity cache.
func (e *Enricher) Cache() *EntityCache {
	return e.cache
}

type entityRef struct {
	kind models.EntityKind
	id   int64
	name *models.Name
}

type lookupKey struct {
	kind models.EntityKind
	id   int64
}

// Enrich returns a copy of km with every referenced entity name either
// resolved or marked unresolved. Names that are already resolved are never
// touched. Enrich does not fail; unresolvable names degrade to sentinels.
func (e *Enricher) Enrich(ctx context.Context, km *models.Killmail) (*models.Killmail, Report) {
	out := km.Clone()
	var report Report
	memo := make(map[lookupKey]models.Name)

	for _, ref := range references(out) {
		if ref.id <= 0 || ref.name.Resolved {
			continue
		}
		key := lookupKey{kind: ref.kind, id: ref.id}
		if name, ok := memo[key]; ok {
			*ref.name = name
			continue
		}
		report.Total++
		name := e.lookup(ctx, ref.kind, ref.id, e.cfg.MaxAttempts, &report)
		memo[key] = name
		*ref.name = name
	}

	if out.SystemID > 0 && !out.SystemName.Resolved && ctx.Err() == nil {
		report.SystemReverified = true
		report.Failed--
		name := e.lookup(ctx, models.EntitySystem, out.SystemID, e.cfg.SystemMaxAttempts, &report)
		out.SystemName = name
		if name.Resolved {
			logging.Ctx(ctx).Info().Int64("system_id", out.SystemID).Str("system", name.Value).
				Msg("System name recovered on re-verification")
		}
	}

	out.Victim.SystemName = out.SystemName
	for i := range out.Attackers {
		out.Attackers[i].SystemName = out.SystemName
	}

	// The timestamp moves only when this pass filled a name, so enriching an
	// enriched killmail returns it unchanged.
	if out.EnrichedAt == nil || report.Resolved+report.CacheHits > 0 {
		enrichedAt := e.now().UTC()
		out.EnrichedAt = &enrichedAt
	}

	report.Quality = 1
	if report.Total > 0 {
		report.Quality = float64(report.Total-report.Failed) / float64(report.Total)
	}
	metrics.EnrichmentQuality.Observe(report.Quality)

	event := logging.Ctx(ctx).Debug()
	if report.Failed > 0 {
		event = logging.Ctx(ctx).Info()
	}
	event.Int64("killmail_id", out.ID).
		Int("lookups", report.Total).
		Int("cache_hits", report.CacheHits).
		Int("resolved", report.Resolved).
		Int("failed", report.Failed).
		Int("retries", report.Retries).
		Float64("quality", report.Quality).
		Msg("Killmail enriched")

	return out, report
}

// references lists every name slot on km in a fixed order: system first so
// a resolved system name is available to the consistency pass.
func references(km *models.Killmail) []entityRef {
	refs := make([]entityRef, 0, 1+4*(len(km.Attackers)+1))
	refs = append(refs, entityRef{models.EntitySystem, km.SystemID, &km.SystemName})
	refs = appendParticipant(refs, &km.Victim.Participant)
	for i := range km.Attackers {
		refs = appendParticipant(refs, &km.Attackers[i].Participant)
	}
	return refs
}

func appendParticipant(refs []entityRef, p *models.Participant) []entityRef {
	return append(refs,
		entityRef{models.EntityCharacter, p.CharacterID, &p.CharacterName},
		entityRef{models.EntityCorporation, p.CorporationID, &p.CorporationName},
		entityRef{models.EntityAlliance, p.AllianceID, &p.AllianceName},
		entityRef{models.EntityShipType, p.ShipTypeID, &p.ShipName},
	)
}

// lookup resolves one entity through the cache and then the resolver with
// exponential backoff. Failures return an unresolved Name and count in
// report.Failed.
func (e *Enricher) lookup(ctx context.Context, kind models.EntityKind, id int64, attempts int, report *Report) models.Name {
	if name, ok := e.cache.Get(kind, id); ok {
		report.CacheHits++
		metrics.RecordLookup(string(kind), "cache_hit")
		return models.ResolvedName(name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		name, err := e.resolver.Resolve(ctx, kind, id)
		if err == nil {
			e.cache.Set(kind, id, name)
			report.Resolved++
			metrics.RecordLookup(string(kind), "resolved")
			return models.ResolvedName(name)
		}
		lastErr = err

		if !esi.Retryable(err) || attempt == attempts {
			break
		}

		delay := e.cfg.BackoffBase << (attempt - 1)
		report.Retries++
		metrics.EnrichmentRetries.WithLabelValues(string(kind)).Inc()
		logging.Ctx(ctx).Debug().Err(err).
			Str("kind", string(kind)).
			Int64("id", id).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("delay", delay).
			Msg("Retrying name lookup")
		if err := e.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	report.Failed++
	metrics.RecordLookup(string(kind), "failed")
	logging.Ctx(ctx).Warn().Err(lastErr).
		Str("kind", string(kind)).
		Int64("id", id).
		Str("fallback", kind.Sentinel()).
		Msg("Name lookup failed, using fallback")
	return models.UnresolvedName()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
