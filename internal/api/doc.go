// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package api serves the read-only HTTP surface of the pipeline using the chi
router.

Routes:

	GET /health                  liveness, always 200 while the process runs
	GET /health/channels         per-channel delivery health, 503 if any channel is unhealthy
	GET /api/v1/stats            pipeline, queue, cache and feed counters
	GET /api/v1/tracking         tracked systems, characters and excluded corporations
	GET /api/v1/killmails/{id}   a persisted killmail (requires storage)
	GET /ws                      live kill stream (WebSocket)
	GET /metrics                 Prometheus metrics

Every JSON body uses the models.APIResponse envelope. Routes under /api are
rate limited per client IP with go-chi/httprate.
*/
package api
