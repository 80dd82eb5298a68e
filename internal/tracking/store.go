// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package tracking answers which systems and characters are watched and which
// corporations are excluded from system notifications.
package tracking

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/killfeed/internal/config"
)

// Store is consulted by the determiner for every killmail. Implementations
// must be safe for concurrent use.
type Store interface {
	IsTrackedSystem(ctx context.Context, systemID int64) (bool, error)
	IsTrackedCharacter(ctx context.Context, characterID int64) (bool, error)
	IsExcludedCorporation(ctx context.Context, corporationID int64) (bool, error)
}

// Snapshot is a sorted copy of the tracked sets.
type Snapshot struct {
	Systems              []int64 `json:"systems"`
	Characters           []int64 `json:"characters"`
	ExcludedCorporations []int64 `json:"excluded_corporations"`
}

// MemoryStore keeps the tracked sets in memory. Sets are replaced wholesale
// so readers never observe a partially updated list.
type MemoryStore struct {
	mu           sync.RWMutex
	systems      map[int64]struct{}
	characters   map[int64]struct{}
	excludedCorp map[int64]struct{}
}

// NewMemoryStore creates a store seeded from configuration.
func NewMemoryStore(cfg config.TrackingConfig) *MemoryStore {
	return &MemoryStore{
		systems:      toSet(cfg.Systems),
		characters:   toSet(cfg.Characters),
		excludedCorp: toSet(cfg.ExcludedCorporations),
	}
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id > 0 {
			set[id] = struct{}{}
		}
	}
	return set
}

// contains reads the set chosen by pick under the read lock.
func (s *MemoryStore) contains(pick func(*MemoryStore) map[int64]struct{}, id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := pick(s)[id]
	return ok
}

func systemsSet(s *MemoryStore) map[int64]struct{}    { return s.systems }
func charactersSet(s *MemoryStore) map[int64]struct{} { return s.characters }
func excludedSet(s *MemoryStore) map[int64]struct{}   { return s.excludedCorp }

// IsTrackedSystem implements Store.
func (s *MemoryStore) IsTrackedSystem(_ context.Context, systemID int64) (bool, error) {
	return s.contains(systemsSet, systemID), nil
}

// IsTrackedCharacter implements Store.
func (s *MemoryStore) IsTrackedCharacter(_ context.Context, characterID int64) (bool, error) {
	return s.contains(charactersSet, characterID), nil
}

// IsExcludedCorporation implements Store.
func (s *MemoryStore) IsExcludedCorporation(_ context.Context, corporationID int64) (bool, error) {
	return s.contains(excludedSet, corporationID), nil
}

// ReplaceSystems swaps the tracked system set.
func (s *MemoryStore) ReplaceSystems(ids []int64) {
	set := toSet(ids)
	s.mu.Lock()
	s.systems = set
	s.mu.Unlock()
}

// ReplaceCharacters swaps the tracked character set.
func (s *MemoryStore) ReplaceCharacters(ids []int64) {
	set := toSet(ids)
	s.mu.Lock()
	s.characters = set
	s.mu.Unlock()
}

// ReplaceExcludedCorporations swaps the excluded corporation set.
func (s *MemoryStore) ReplaceExcludedCorporations(ids []int64) {
	set := toSet(ids)
	s.mu.Lock()
	s.excludedCorp = set
	s.mu.Unlock()
}

// Snapshot returns sorted copies of all sets.
func (s *MemoryStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Systems:              sortedKeys(s.systems),
		Characters:           sortedKeys(s.characters),
		ExcludedCorporations: sortedKeys(s.excludedCorp),
	}
}

func sortedKeys(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
