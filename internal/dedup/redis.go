// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/killfeed/internal/config"
)

// setNXClient is the subset of redis.Cmdable the store needs.
type setNXClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisStore shares dedup state between processes using SET NX with expiry.
type RedisStore struct {
	client setNXClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps client. Keys are "<prefix><scope>:<id>".
func NewRedisStore(client setNXClient, cfg config.DedupConfig) *RedisStore {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, prefix: cfg.KeyPrefix, ttl: ttl}
}

// MarkIfNew implements Store.
func (s *RedisStore) MarkIfNew(ctx context.Context, scope string, id int64) (bool, error) {
	key := s.prefix + Key(scope, id)
	created, err := s.client.SetNX(ctx, key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX %s: %w", key, err)
	}
	return created, nil
}
