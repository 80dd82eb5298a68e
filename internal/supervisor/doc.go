// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package supervisor runs every long-lived killfeed service under a suture v4
supervisor tree.

	RootSupervisor ("killfeed")
	├── IngestSupervisor ("ingest-layer")
	│   ├── feed.Client           (WebSocket feed -> event bus)
	│   └── pipeline.Consumer     (event bus -> worker pool)
	├── ProcessingSupervisor ("processing-layer")
	│   ├── pipeline.Pool         (bounded workers)
	│   ├── MaintenanceService    (cache and dedup cleanup, gauges)
	│   ├── websocket.Hub         (live kill stream fan-out)
	│   └── storage.KillmailStore (value-log GC, if storage is enabled)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A feed outage restarts only the ingest layer; workers keep draining the queue
and the API keeps answering health checks. Restart backoff and failure decay
come from config.SupervisorConfig. Supervisor events are logged through
sutureslog onto the zerolog-backed slog handler from the logging package.
*/
package supervisor
