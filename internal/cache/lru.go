// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package cache

import (
	"container/list"
	"sync"
	"time"
)

type lruItem struct {
	key       string
	expiresAt time.Time
}

// LRUCache is a bounded set of keys with per-key expiry, evicting the least
// recently seen key when full. Its main use is IsDuplicate, an atomic
// check-and-set for deduplication.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List // front = most recent
	items    map[string]*list.Element
	now      func() time.Time

	hits   int64
	misses int64
}

// NewLRUCache creates a cache holding at most capacity keys for ttl each.
// Non-positive values fall back to 10000 keys and 5 minutes.
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
		now:      time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (c *LRUCache) WithClock(now func() time.Time) *LRUCache {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

// IsDuplicate reports whether key was recorded within the TTL. When it was
// not, the key is recorded before returning, under the same lock, so exactly
// one of any number of concurrent callers observes false.
func (c *LRUCache) IsDuplicate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.items[key]; ok {
		item := el.Value.(*lruItem)
		if !now.After(item.expiresAt) {
			c.order.MoveToFront(el)
			c.hits++
			return true
		}
		c.remove(el)
	}

	c.items[key] = c.order.PushFront(&lruItem{key: key, expiresAt: now.Add(c.ttl)})
	for len(c.items) > c.capacity {
		c.remove(c.order.Back())
	}
	c.misses++
	return false
}

// CleanupExpired drops expired keys and returns how many were removed.
func (c *LRUCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*lruItem).expiresAt) {
			c.remove(el)
			removed++
		}
		el = prev
	}
	return removed
}

// Len returns the number of stored keys.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns duplicate hits, first sightings and current size.
func (c *LRUCache) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// remove must be called with mu held.
func (c *LRUCache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*lruItem).key)
}
