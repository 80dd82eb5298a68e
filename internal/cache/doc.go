// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package cache provides the two in-memory structures the pipeline is built on:
//
//   - TTLCache: a generic key/value map with per-entry expiry. Backs the entity
//     name cache, where each entity kind has its own lifetime.
//   - LRUCache: a bounded, expiring key set whose IsDuplicate performs an atomic
//     check-and-set. Backs the in-process deduplication store.
//
// Both are safe for concurrent use and accept an injected clock for tests.
package cache
