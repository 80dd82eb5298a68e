// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package enrichment

import (
	"strconv"
	"time"

	"github.com/tomtom215/killfeed/internal/cache"
	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/models"
)

const defaultEntityTTL = 24 * time.Hour

// CachedName is one resolved entity name.
type CachedName struct {
	Name       string
	ResolvedAt time.Time
}

// EntityCache caches resolved names keyed by kind and id. Each kind has its
// own lifetime: static universe data (systems, ship types) lives far longer
// than mutable player data (corporation and alliance names).
type EntityCache struct {
	entries *cache.TTLCache[CachedName]
	ttls    map[models.EntityKind]time.Duration
	now     func() time.Time
}

// NewEntityCache creates an entity cache with per-kind TTLs from cfg.
func NewEntityCache(cfg config.CacheConfig) *EntityCache {
	return &EntityCache{
		entries: cache.New[CachedName](defaultEntityTTL),
		ttls: map[models.EntityKind]time.Duration{
			models.EntitySystem:      cfg.SystemTTL,
			models.EntityShipType:    cfg.ShipTypeTTL,
			models.EntityCharacter:   cfg.CharacterTTL,
			models.EntityCorporation: cfg.CorporationTTL,
			models.EntityAlliance:    cfg.AllianceTTL,
		},
		now: time.Now,
	}
}

func (c *EntityCache) withClock(now func() time.Time) *EntityCache {
	c.entries.WithClock(now)
	c.now = now
	return c
}

func cacheKey(kind models.EntityKind, id int64) string {
	return string(kind) + ":" + strconv.FormatInt(id, 10)
}

// TTL returns the lifetime used for kind.
func (c *EntityCache) TTL(kind models.EntityKind) time.Duration {
	if ttl := c.ttls[kind]; ttl > 0 {
		return ttl
	}
	return defaultEntityTTL
}

// Get returns a cached name.
func (c *EntityCache) Get(kind models.EntityKind, id int64) (string, bool) {
	entry, ok := c.entries.Get(cacheKey(kind, id))
	if !ok {
		return "", false
	}
	return entry.Name, true
}

// Set stores a resolved name. Concurrent writers for the same key are
// last-write-wins.
func (c *EntityCache) Set(kind models.EntityKind, id int64, name string) {
	c.entries.SetWithTTL(cacheKey(kind, id), CachedName{Name: name, ResolvedAt: c.now()}, c.TTL(kind))
}

// Cleanup removes expired entries and returns how many were removed.
func (c *EntityCache) Cleanup() int {
	return c.entries.Cleanup()
}

// Len returns the number of entries, expired ones included until Cleanup.
func (c *EntityCache) Len() int {
	return c.entries.Len()
}

// Stats returns hit/miss counters.
func (c *EntityCache) Stats() cache.Stats {
	return c.entries.GetStats()
}
