// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package feed connects to a killmail WebSocket stream (zKillboard's killstream
by default) and publishes every text frame, unparsed, onto the event bus.

The client keeps one connection open at a time:
  - dials with a handshake timeout and sends the optional subscribe message
  - extends the read deadline on every frame and pong
  - pings at PingInterval so half-open connections are detected
  - reconnects with exponential backoff (InitialBackoff doubling up to
    MaxBackoff), resetting the delay after a successful connection

Run blocks until its context is done and is meant to be supervised.
*/
package feed
