// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package models

import "time"

// Wormhole systems occupy a contiguous ID range.
const (
	WormholeSystemMin int64 = 31000000
	WormholeSystemMax int64 = 31999999
)

// IsWormholeSystem reports whether systemID falls in the wormhole range.
func IsWormholeSystem(systemID int64) bool {
	return systemID >= WormholeSystemMin && systemID <= WormholeSystemMax
}

// Participant is the identity block shared by victims and attackers.
// An ID of 0 means absent (NPCs have no character, many corporations have
// no alliance).
type Participant struct {
	CharacterID     int64 `json:"character_id,omitempty"`
	CharacterName   Name  `json:"character_name"`
	CorporationID   int64 `json:"corporation_id,omitempty"`
	CorporationName Name  `json:"corporation_name"`
	AllianceID      int64 `json:"alliance_id,omitempty"`
	AllianceName    Name  `json:"alliance_name"`
	ShipTypeID      int64 `json:"ship_type_id,omitempty"`
	ShipName        Name  `json:"ship_name"`

	// SystemName mirrors Killmail.SystemName so formatters working on a single
	// participant see the same value.
	SystemName Name `json:"system_name"`
}

// Victim is the destroyed party.
type Victim struct {
	Participant
	DamageTaken int64 `json:"damage_taken,omitempty"`
}

// Attacker is one participant credited on the killmail.
type Attacker struct {
	Participant
	FinalBlow    bool  `json:"final_blow"`
	DamageDone   int64 `json:"damage_done,omitempty"`
	WeaponTypeID int64 `json:"weapon_type_id,omitempty"`
}

// ZKB carries the zKillboard valuation block when the feed provides it.
type ZKB struct {
	Hash        string  `json:"hash,omitempty"`
	TotalValue  float64 `json:"total_value,omitempty"`
	FittedValue float64 `json:"fitted_value,omitempty"`
	Points      int64   `json:"points,omitempty"`
	NPC         bool    `json:"npc,omitempty"`
	Solo        bool    `json:"solo,omitempty"`
}

// Killmail is the canonical record of a ship destruction.
type Killmail struct {
	ID         int64      `json:"killmail_id"`
	Hash       string     `json:"hash,omitempty"`
	KillTime   time.Time  `json:"killmail_time"`
	SystemID   int64      `json:"solar_system_id,omitempty"`
	SystemName Name       `json:"system_name"`
	Victim     Victim     `json:"victim"`
	Attackers  []Attacker `json:"attackers"`
	ZKB        ZKB        `json:"zkb"`
	EnrichedAt *time.Time `json:"enriched_at,omitempty"`

	// Raw is the source payload as received, kept for diagnostics. It is
	// shared between clones and must be treated as read-only.
	Raw map[string]interface{} `json:"-"`
}

// IsWormhole reports whether the kill happened in wormhole space.
func (k *Killmail) IsWormhole() bool {
	return IsWormholeSystem(k.SystemID)
}

// FinalBlow returns the attacker credited with the final blow, falling back to
// the first attacker. Nil when there are no attackers.
func (k *Killmail) FinalBlow() *Attacker {
	for i := range k.Attackers {
		if k.Attackers[i].FinalBlow {
			return &k.Attackers[i]
		}
	}
	if len(k.Attackers) > 0 {
		return &k.Attackers[0]
	}
	return nil
}

// CharacterIDs returns the victim and attacker character IDs, victim first,
// skipping absent ones.
func (k *Killmail) CharacterIDs() []int64 {
	ids := make([]int64, 0, len(k.Attackers)+1)
	if k.Victim.CharacterID > 0 {
		ids = append(ids, k.Victim.CharacterID)
	}
	for i := range k.Attackers {
		if id := k.Attackers[i].CharacterID; id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// CorporationIDs returns the victim and attacker corporation IDs, victim first.
func (k *Killmail) CorporationIDs() []int64 {
	ids := make([]int64, 0, len(k.Attackers)+1)
	if k.Victim.CorporationID > 0 {
		ids = append(ids, k.Victim.CorporationID)
	}
	for i := range k.Attackers {
		if id := k.Attackers[i].CorporationID; id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Clone returns a deep copy of everything except Raw, which is shared. The
// pipeline clones before enrichment so the caller's value is never mutated.
func (k *Killmail) Clone() *Killmail {
	if k == nil {
		return nil
	}
	out := *k
	if k.Attackers != nil {
		out.Attackers = make([]Attacker, len(k.Attackers))
		copy(out.Attackers, k.Attackers)
	}
	if k.EnrichedAt != nil {
		t := *k.EnrichedAt
		out.EnrichedAt = &t
	}
	return &out
}
