// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package models

// ChannelKind describes why a channel was selected. It changes presentation
// only.
type ChannelKind string

const (
	ChannelDefault   ChannelKind = "default"
	ChannelSystem    ChannelKind = "system"
	ChannelCharacter ChannelKind = "character"
)

// Decision reason texts.
const (
	ReasonDisabled            = "disabled"
	ReasonNotTracked          = "Not tracked"
	ReasonSystemTracked       = "System tracked"
	ReasonCharacterTracked    = "Character tracked"
	ReasonDuplicate           = "Duplicate kill"
	ReasonCorporationExcluded = "Corporation excluded"
	ReasonNonWormhole         = "Non-wormhole system"
	ReasonDefaultFallback     = "Default channel fallback"
)

// Target is one destination channel.
type Target struct {
	ChannelID string      `json:"channel_id"`
	Kind      ChannelKind `json:"kind"`
}

// Reason explains one step of a routing decision. Kind is empty for reasons
// not tied to a channel.
type Reason struct {
	Kind ChannelKind `json:"kind,omitempty"`
	Text string      `json:"text"`
}

// Decision is the routing result for one killmail. An empty Targets slice
// means no notification is sent.
type Decision struct {
	KillmailID int64    `json:"killmail_id"`
	Targets    []Target `json:"targets"`
	Reasons    []Reason `json:"reasons"`
}

// Empty reports whether no channel was selected.
func (d Decision) Empty() bool {
	return len(d.Targets) == 0
}

// HasReason reports whether any reason carries text.
func (d Decision) HasReason(text string) bool {
	for _, r := range d.Reasons {
		if r.Text == text {
			return true
		}
	}
	return false
}

// HasTarget reports whether channelID was selected.
func (d Decision) HasTarget(channelID string) bool {
	for _, t := range d.Targets {
		if t.ChannelID == channelID {
			return true
		}
	}
	return false
}
