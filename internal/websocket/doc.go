// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package websocket streams notified kills to dashboard clients over
WebSocket.

The pipeline calls Hub.BroadcastKillmail after a killmail has been dispatched
to at least one channel. The hub fans a compact KillSummary out to every
connected client:

	{"type":"killmail","data":{"killmail_id":12345,"system":"Jita","victim":"Tracked Pilot",...}}

Clients may send {"type":"ping"} and receive {"type":"pong"}; the server also
sends WebSocket ping frames every pingPeriod.

Broadcasts never block the pipeline. When the hub buffer is full the message
is dropped; a client whose send buffer is full is disconnected. Both are
counted in killfeed_live_messages_dropped_total.
*/
package websocket
