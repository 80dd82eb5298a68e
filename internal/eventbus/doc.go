// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package eventbus builds the Watermill publisher/subscriber pair that carries
raw killmail payloads from the feed to the processing pipeline.

Drivers:
  - gochannel (default): in-process, no external broker
  - nats: core NATS with an optional queue group, for running the feed and
    the pipeline in separate processes. Compiled only with -tags nats.

Delivery is at-most-once in both drivers. The consumer acknowledges every
message once it has been handed to the worker pool.
*/
package eventbus
