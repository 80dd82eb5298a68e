// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package tracking

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/tomtom215/killfeed/internal/config"
)

func TestMemoryStore_Seeded(t *testing.T) {
	s := NewMemoryStore(config.TrackingConfig{
		Systems:              []int64{31000005, 30000142, 0, -1},
		Characters:           []int64{100},
		ExcludedCorporations: []int64{1000125},
	})
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func(context.Context, int64) (bool, error)
		id   int64
		want bool
	}{
		{"tracked system", s.IsTrackedSystem, 31000005, true},
		{"untracked system", s.IsTrackedSystem, 30002187, false},
		{"tracked character", s.IsTrackedCharacter, 100, true},
		{"untracked character", s.IsTrackedCharacter, 101, false},
		{"excluded corp", s.IsExcludedCorporation, 1000125, true},
		{"included corp", s.IsExcludedCorporation, 200, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(ctx, tt.id)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	snap := s.Snapshot()
	if fmt.Sprint(snap.Systems) != "[30000142 31000005]" {
		t.Errorf("Systems = %v, non-positive ids must be dropped and the rest sorted", snap.Systems)
	}
}

func TestMemoryStore_Replace(t *testing.T) {
	s := NewMemoryStore(config.TrackingConfig{Systems: []int64{1}})
	ctx := context.Background()

	s.ReplaceSystems([]int64{2, 3})
	s.ReplaceCharacters([]int64{4})
	s.ReplaceExcludedCorporations(nil)

	if ok, _ := s.IsTrackedSystem(ctx, 1); ok {
		t.Error("system 1 should no longer be tracked")
	}
	if ok, _ := s.IsTrackedSystem(ctx, 3); !ok {
		t.Error("system 3 should be tracked")
	}
	if ok, _ := s.IsTrackedCharacter(ctx, 4); !ok {
		t.Error("character 4 should be tracked")
	}
	if snap := s.Snapshot(); len(snap.ExcludedCorporations) != 0 {
		t.Errorf("ExcludedCorporations = %v", snap.ExcludedCorporations)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore(config.TrackingConfig{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int64) {
			defer wg.Done()
			s.ReplaceSystems([]int64{n})
		}(int64(i + 1))
		go func(n int64) {
			defer wg.Done()
			_, _ = s.IsTrackedSystem(ctx, n)
			_ = s.Snapshot()
		}(int64(i + 1))
	}
	wg.Wait()

	if got := len(s.Snapshot().Systems); got != 1 {
		t.Errorf("len(Systems) = %d, want 1", got)
	}
}
