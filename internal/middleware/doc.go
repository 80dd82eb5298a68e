// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package middleware provides chi-compatible HTTP middleware for the API.

  - RequestID: accepts or generates X-Request-Id and seeds the logging
    context with request and correlation IDs
  - PrometheusMetrics: request counts, latency and in-flight gauge, labelled
    by chi route pattern

Both keep http.Hijacker working so the live WebSocket endpoint can upgrade
through them.
*/
package middleware
