// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package determiner routes an enriched killmail to notification channels.

Routing runs in four steps:

 1. Gate: when notifications or kill notifications are disabled the decision
    is empty with reason "disabled".
 2. Relevance: the system or at least one participant character must be
    tracked, otherwise the decision is empty with reason "Not tracked".
 3. Candidacy: a tracked system selects the dedicated system channel unless
    the wormhole-only or corporation-exclusion filter removes it. Without a
    dedicated system channel the default channel is used and the filters do
    not apply. A tracked character selects the character channel, or the
    default channel when none is configured. Targets are collapsed by channel
    id; an empty set falls back to the default channel.
 4. Dedup: each target is marked in the dedup store under
    "<scope>:<channel kind>". Targets already marked are dropped with reason
    "Duplicate kill".
*/
package determiner
