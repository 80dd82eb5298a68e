// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package models

// EntityKind identifies which namespace of EVE identifiers an ID belongs to.
type EntityKind string

const (
	EntityCharacter   EntityKind = "character"
	EntityCorporation EntityKind = "corporation"
	EntityAlliance    EntityKind = "alliance"
	EntityShipType    EntityKind = "ship_type"
	EntitySystem      EntityKind = "system"
)

// EntityKinds lists every kind in a stable order.
var EntityKinds = []EntityKind{EntityCharacter, EntityCorporation, EntityAlliance, EntityShipType, EntitySystem}

// Sentinel returns the display placeholder used when a name of this kind
// could not be resolved.
func (k EntityKind) Sentinel() string {
	switch k {
	case EntityCharacter:
		return "Unknown Pilot"
	case EntityCorporation:
		return "Unknown Corp"
	case EntityAlliance:
		return "Unknown Alliance"
	case EntityShipType:
		return "Unknown Ship"
	case EntitySystem:
		return "Unknown System"
	default:
		return "Unknown"
	}
}

// Name is the outcome of resolving an entity ID to a display name.
//
// The zero value means resolution has not been attempted. A resolved Name
// carries the real name; an unresolved one records that resolution was tried
// and failed, and renders as the kind's sentinel via Display. Placeholder text
// is never stored in Value, so a resolved name can always be told apart from
// a failure.
type Name struct {
	Value     string `json:"value,omitempty"`
	Resolved  bool   `json:"resolved"`
	Attempted bool   `json:"attempted,omitempty"`
}

// ResolvedName returns a Name holding a real value.
func ResolvedName(value string) Name {
	return Name{Value: value, Resolved: true, Attempted: true}
}

// UnresolvedName returns a Name marking a failed resolution.
func UnresolvedName() Name {
	return Name{Attempted: true}
}

// IsSet reports whether resolution has been attempted.
func (n Name) IsSet() bool {
	return n.Attempted || n.Resolved
}

// Display returns the resolved value or the sentinel for kind.
func (n Name) Display(kind EntityKind) string {
	if n.Resolved && n.Value != "" {
		return n.Value
	}
	return kind.Sentinel()
}
