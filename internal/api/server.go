// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/killfeed/internal/config"
)

// NewServer builds the http.Server for the API. Supervise it with
// services.NewHTTPServerService.
func NewServer(cfg config.ServerConfig, h *Handler) *http.Server {
	return &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: NewRouter(h, RouterConfig{
			RateLimitReqs:   cfg.RateLimitReqs,
			RateLimitWindow: cfg.RateLimitWindow,
		}),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
