// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/killfeed/internal/cache"
	"github.com/tomtom215/killfeed/internal/dispatcher"
	"github.com/tomtom215/killfeed/internal/feed"
	"github.com/tomtom215/killfeed/internal/models"
	"github.com/tomtom215/killfeed/internal/pipeline"
	"github.com/tomtom215/killfeed/internal/storage"
	"github.com/tomtom215/killfeed/internal/tracking"
)

// ChannelHealthSource reports per-channel delivery health.
type ChannelHealthSource interface {
	Snapshot() []dispatcher.ChannelHealth
	Healthy() bool
	Notified() int64
}

// KillmailReader looks up persisted killmails.
type KillmailReader interface {
	Get(ctx context.Context, id int64) (*models.Killmail, error)
}

// Dependencies are the read-only views the handlers serve. Nil optional
// fields are omitted from responses.
type Dependencies struct {
	Version string

	Health   ChannelHealthSource
	Tracking interface{ Snapshot() tracking.Snapshot }

	Pipeline    interface{ Stats() pipeline.Stats }
	Pool        interface{ Stats() pipeline.PoolStats }
	EntityCache interface {
		Stats() cache.Stats
		Len() int
	}
	Feed interface{ Stats() feed.Stats }

	// Killmails is nil when storage is disabled.
	Killmails KillmailReader

	// Live serves the WebSocket kill stream on /ws when set.
	Live LiveStream
}

// LiveStream upgrades requests to the live kill stream.
type LiveStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	ClientCount() int
}

// Handler serves the HTTP endpoints.
type Handler struct {
	deps      Dependencies
	startTime time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Dependencies) *Handler {
	if deps.Version == "" {
		deps.Version = "dev"
	}
	return &Handler{deps: deps, startTime: time.Now()}
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	status := models.HealthStatus{
		Status:  "ok",
		Version: h.deps.Version,
		Uptime:  time.Since(h.startTime).Seconds(),
	}
	if h.deps.Feed != nil {
		status.FeedConnected = h.deps.Feed.Stats().Connected
	}
	respondData(w, http.StatusOK, status, started)
}

// ChannelHealthResponse is the body of GET /health/channels.
type ChannelHealthResponse struct {
	Healthy  bool                       `json:"healthy"`
	Notified int64                      `json:"notified"`
	Channels []dispatcher.ChannelHealth `json:"channels"`
}

// ChannelHealth reports delivery health per channel.
func (h *Handler) ChannelHealth(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if h.deps.Health == nil {
		respondData(w, http.StatusOK, ChannelHealthResponse{Healthy: true, Channels: []dispatcher.ChannelHealth{}}, started)
		return
	}

	body := ChannelHealthResponse{
		Healthy:  h.deps.Health.Healthy(),
		Notified: h.deps.Health.Notified(),
		Channels: h.deps.Health.Snapshot(),
	}
	status := http.StatusOK
	if !body.Healthy {
		status = http.StatusServiceUnavailable
	}
	respondData(w, status, body, started)
}

// CacheStats is the entity cache section of GET /api/v1/stats.
type CacheStats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	Pipeline *pipeline.Stats     `json:"pipeline,omitempty"`
	Queue    *pipeline.PoolStats `json:"queue,omitempty"`
	Cache    *CacheStats         `json:"entity_cache,omitempty"`
	Feed     *feed.Stats         `json:"feed,omitempty"`
	Notified int64               `json:"notified"`
	Live     int                 `json:"live_clients"`
	Uptime   float64             `json:"uptime_seconds"`
}

// Stats reports pipeline counters.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	resp := StatsResponse{Uptime: time.Since(h.startTime).Seconds()}

	if h.deps.Pipeline != nil {
		s := h.deps.Pipeline.Stats()
		resp.Pipeline = &s
	}
	if h.deps.Pool != nil {
		s := h.deps.Pool.Stats()
		resp.Queue = &s
	}
	if h.deps.EntityCache != nil {
		s := h.deps.EntityCache.Stats()
		resp.Cache = &CacheStats{
			Entries: h.deps.EntityCache.Len(),
			Hits:    s.Hits,
			Misses:  s.Misses,
			HitRate: s.HitRate(),
		}
	}
	if h.deps.Feed != nil {
		s := h.deps.Feed.Stats()
		resp.Feed = &s
	}
	if h.deps.Health != nil {
		resp.Notified = h.deps.Health.Notified()
	}
	if h.deps.Live != nil {
		resp.Live = h.deps.Live.ClientCount()
	}

	respondData(w, http.StatusOK, resp, started)
}

// Tracking returns the tracked sets.
func (h *Handler) Tracking(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if h.deps.Tracking == nil {
		respondData(w, http.StatusOK, tracking.Snapshot{Systems: []int64{}, Characters: []int64{}, ExcludedCorporations: []int64{}}, started)
		return
	}
	respondData(w, http.StatusOK, h.deps.Tracking.Snapshot(), started)
}

// Killmail returns one persisted killmail.
func (h *Handler) Killmail(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if h.deps.Killmails == nil {
		respondError(w, r, http.StatusServiceUnavailable, "STORAGE_DISABLED", "Killmail storage is disabled", nil)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Killmail id must be a positive integer", nil)
		return
	}

	km, err := h.deps.Killmails.Get(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Killmail not found", nil)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to read killmail", err)
		return
	}
	respondData(w, http.StatusOK, km, started)
}
