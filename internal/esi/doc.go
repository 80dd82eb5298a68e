// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package esi resolves EVE Online entity ids to names through the ESI REST API.

Client issues one GET per lookup against the per-kind endpoint
(/characters/{id}/, /corporations/{id}/, /alliances/{id}/, /universe/types/{id}/,
/universe/systems/{id}/). A 404 is reported as ErrNotFound and is permanent;
other non-2xx responses are *StatusError values. Retryable classifies errors
for the enricher's retry loop.

BreakerResolver adds a gobreaker circuit breaker in front of any Resolver.
While the circuit is open lookups fail fast and Retryable reports false, so
the enricher falls back to sentinel names without waiting on a dead upstream.
*/
package esi
