// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package models defines the data passed between pipeline stages: the canonical
// Killmail, the resolved-or-not Name, routing Decisions, rendered
// NotificationDocuments and delivery Outcomes.
package models
