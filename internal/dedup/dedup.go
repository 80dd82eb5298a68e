// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package dedup records which (scope, killmail) pairs have already been
// notified. MarkIfNew is an atomic compare-and-set: among concurrent callers
// for the same pair exactly one sees true.
package dedup

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/killfeed/internal/cache"
	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/logging"
)

// Store marks killmails as seen within a scope.
type Store interface {
	// MarkIfNew returns true when (scope, id) had not been seen within the
	// store's TTL, recording it in the same step.
	MarkIfNew(ctx context.Context, scope string, id int64) (bool, error)
}

// Key builds the storage key for (scope, id).
func Key(scope string, id int64) string {
	return scope + ":" + strconv.FormatInt(id, 10)
}

// MemoryStore is a bounded in-process store backed by an LRU set.
type MemoryStore struct {
	seen *cache.LRUCache
}

// NewMemoryStore creates an in-process store.
func NewMemoryStore(cfg config.DedupConfig) *MemoryStore {
	return &MemoryStore{seen: cache.NewLRUCache(cfg.Capacity, cfg.TTL)}
}

// MarkIfNew implements Store.
func (s *MemoryStore) MarkIfNew(_ context.Context, scope string, id int64) (bool, error) {
	return !s.seen.IsDuplicate(Key(scope, id)), nil
}

// Cleanup drops expired keys.
func (s *MemoryStore) Cleanup() int {
	return s.seen.CleanupExpired()
}

// Len returns the number of remembered keys.
func (s *MemoryStore) Len() int {
	return s.seen.Len()
}

// New builds the store selected by cfg.Driver. The returned close function
// releases backend connections and is never nil.
func New(ctx context.Context, cfg config.DedupConfig) (Store, func() error, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(cfg), func() error { return nil }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		logging.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("Using Redis deduplication store")
		return NewRedisStore(client, cfg), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown dedup driver %q", cfg.Driver)
	}
}
