// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package logging provides the process-wide zerolog logger for Killfeed.
//
// Initialize once from main, then log with structured fields:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("channel_id", id).Msg("Notification delivered")
//
// Pipeline stages log through Ctx so every line carries the correlation ID and
// the killmail being processed:
//
//	ctx = logging.ContextWithKillmailID(ctx, km.ID)
//	logging.Ctx(ctx).Debug().Msg("Enrichment complete")
//
// Two adapters route third-party loggers into zerolog: SlogHandler (used by the
// suture supervisor via sutureslog) and WatermillAdapter (event bus and router).
package logging
