// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/killfeed/internal/middleware"
)

// RouterConfig configures middleware on the router.
type RouterConfig struct {
	// RateLimitReqs is the number of requests allowed per window per IP on
	// /api routes. Zero disables rate limiting.
	RateLimitReqs   int
	RateLimitWindow time.Duration
}

// RateLimit returns an httprate limiter keyed by client IP, or a no-op
// middleware when reqs is zero.
func RateLimit(reqs int, window time.Duration) func(http.Handler) http.Handler {
	if reqs <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		reqs,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests", nil)
		}),
	)
}

// NewRouter builds the chi router for all endpoints.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.Health)
		r.Get("/channels", h.ChannelHealth)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimit(cfg.RateLimitReqs, cfg.RateLimitWindow))

		r.Get("/stats", h.Stats)
		r.Get("/tracking", h.Tracking)
		r.Get("/killmails/{id}", h.Killmail)
	})

	if h.deps.Live != nil {
		r.Get("/ws", h.deps.Live.ServeWS)
	}

	r.Handle("/metrics", promhttp.Handler())

	return r
}
