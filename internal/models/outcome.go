// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package models

import "time"

// OutcomeClass groups delivery results for accounting.
type OutcomeClass string

const (
	OutcomeOK            OutcomeClass = "ok"
	OutcomeFormatError   OutcomeClass = "format_error"
	OutcomeDeliveryError OutcomeClass = "delivery_error"
)

// Outcome records the result of one delivery attempt to one channel.
type Outcome struct {
	ChannelID  string        `json:"channel_id"`
	Kind       ChannelKind   `json:"kind"`
	KillmailID int64         `json:"killmail_id"`
	Success    bool          `json:"success"`
	Class      OutcomeClass  `json:"class"`
	Reason     string        `json:"reason,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	Timestamp  time.Time     `json:"timestamp"`
}
