// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package pipeline runs raw killmail payloads through the processing stages:

	raw payload -> canonicalize -> enrich -> persist -> determine -> format -> dispatch

Components:
  - Pipeline: Process handles one event under a per-event deadline. Stages
    run sequentially; only the dispatcher fans out.
  - Pool: bounded queue plus a fixed number of workers. When the queue is
    full, Submit either blocks (block policy) or drops the event with
    ErrQueueFull (reject policy).
  - Consumer: Watermill router handler that decodes bus messages and submits
    them to the pool. Messages are always acknowledged, giving at-most-once
    processing.

Failures are contained per event. A malformed payload is rejected and
counted, a storage error is logged, a formatting error is recorded as a
format_error outcome; none of them stop the worker.
*/
package pipeline
