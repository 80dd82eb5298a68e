// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package dispatcher delivers notification documents to their target channels.

Dispatch is fire-and-forget: it starts one goroutine per target and returns a
*Delivery immediately. Callers that need the per-channel outcomes (tests, the
end-to-end pipeline result) call Delivery.Wait. The dispatcher never retries;
transport-level retries such as Discord 429 handling belong to the Deliverer.

Every outcome is folded into Health, which backs the /health/channels endpoint
and the "notified" counter.
*/
package dispatcher
