// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package storage persists enriched killmails in BadgerDB.

Each killmail is stored once under "killmail:<id>" with an entry TTL equal to
the configured retention, so expired kills disappear without a sweep. Value-log
space is reclaimed by RunGC, which the supervisor runs as a background service.

Persistence is best-effort from the pipeline's point of view: a failed Save is
logged and counted but never blocks notification.

Usage:

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(ctx, km); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to persist killmail")
	}
*/
package storage
