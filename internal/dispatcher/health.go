// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package dispatcher

import (
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/killfeed/internal/models"
)

// UnhealthyThreshold is the number of consecutive failures after which a
// channel is reported unhealthy.
const UnhealthyThreshold = 5

// ChannelHealth summarizes deliveries to one channel.
type ChannelHealth struct {
	ChannelID           string             `json:"channel_id"`
	Kind                models.ChannelKind `json:"kind"`
	Successes           int64              `json:"successes"`
	Failures            int64              `json:"failures"`
	FormatErrors        int64              `json:"format_errors"`
	ConsecutiveFailures int                `json:"consecutive_failures"`
	LastError           string             `json:"last_error,omitempty"`
	LastSuccessAt       *time.Time         `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time         `json:"last_failure_at,omitempty"`
	Healthy             bool               `json:"healthy"`
}

// Health tracks per-channel delivery outcomes.
type Health struct {
	mu       sync.RWMutex
	channels map[string]*ChannelHealth
	notified int64
}

// NewHealth creates an empty tracker.
func NewHealth() *Health {
	return &Health{channels: make(map[string]*ChannelHealth)}
}

// Record folds one outcome into the channel's summary.
func (h *Health) Record(o models.Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.channels[o.ChannelID]
	if !ok {
		ch = &ChannelHealth{ChannelID: o.ChannelID, Kind: o.Kind}
		h.channels[o.ChannelID] = ch
	}

	ts := o.Timestamp
	switch {
	case o.Success:
		ch.Successes++
		ch.ConsecutiveFailures = 0
		ch.LastSuccessAt = &ts
		h.notified++
	case o.Class == models.OutcomeFormatError:
		// The channel itself is fine; the document never reached it.
		ch.FormatErrors++
		ch.LastError = o.Reason
	default:
		ch.Failures++
		ch.ConsecutiveFailures++
		ch.LastError = o.Reason
		ch.LastFailureAt = &ts
	}
}

// Notified returns the number of successful deliveries.
func (h *Health) Notified() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.notified
}

// Snapshot returns a copy of every channel summary sorted by channel id.
func (h *Health) Snapshot() []ChannelHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ChannelHealth, 0, len(h.channels))
	for _, ch := range h.channels {
		c := *ch
		c.Healthy = c.ConsecutiveFailures < UnhealthyThreshold
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out
}

// Healthy reports whether every channel is below the failure threshold.
func (h *Health) Healthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.channels {
		if ch.ConsecutiveFailures >= UnhealthyThreshold {
			return false
		}
	}
	return true
}
