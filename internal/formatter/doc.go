// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package formatter renders enriched killmails into models.NotificationDocument
// values. Documents are platform-agnostic; the delivery package converts them
// into Discord embeds.
package formatter
