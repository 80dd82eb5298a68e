// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package metrics declares the Prometheus collectors for Killfeed. Collectors
// are registered on the default registry through promauto and exposed on
// /metrics by the api package. Record* helpers keep label handling in one place.
package metrics
