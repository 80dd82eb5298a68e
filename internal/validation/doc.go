// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package validation wraps go-playground/validator with a shared instance,
// readable messages and a "snowflake" rule for Discord IDs. Configuration and
// notification documents are both checked through ValidateStruct.
package validation
