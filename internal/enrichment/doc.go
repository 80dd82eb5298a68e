// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package enrichment resolves the entity names referenced by a killmail.

For each system, character, corporation, alliance and ship type id whose name
is not yet resolved, the Enricher consults the EntityCache, then the
esi.Resolver with up to three attempts and exponential backoff (100ms, 200ms).
Permanent failures skip the remaining attempts. Whatever cannot be resolved is
marked unresolved and renders as the kind's sentinel ("Unknown Pilot",
"Unknown System", ...).

A failed system lookup gets a second cycle of up to five attempts, since the
system name drives both the notification title and the wormhole check. A final
consistency pass copies the system name onto the victim and every attacker.
*/
package enrichment
