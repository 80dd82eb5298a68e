// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package canonical turns raw killmail payloads into models.Killmail values.

Payloads arrive from several sources (the zKillboard websocket, RedisQ, ESI
directly) and disagree on key names, numeric representation and nesting.
Canonicalize reads each field through an alias list and coerces numbers from
float64, json.Number, integer and string forms. Names that are already present
in the payload are carried over as resolved so enrichment can skip them.

Only the killmail ID is mandatory:

	raw, err := canonical.DecodeJSON(frame)
	if err != nil {
		return err
	}
	km, err := canonical.Canonicalize(raw)
	if errors.Is(err, canonical.ErrInvalidPayload) {
		// drop the event
	}
*/
package canonical
