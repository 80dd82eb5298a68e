// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package models

import (
	"strings"
	"testing"
	"time"
)

func TestIsWormholeSystem(t *testing.T) {
	tests := []struct {
		id   int64
		want bool
	}{
		{30000142, false},
		{30999999, false},
		{31000000, true},
		{31000500, true},
		{31999999, true},
		{32000000, false},
		{0, false},
	}
	for _, tt := range tests {
		if got := IsWormholeSystem(tt.id); got != tt.want {
			t.Errorf("IsWormholeSystem(%d) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestName_Display(t *testing.T) {
	tests := []struct {
		name string
		n    Name
		kind EntityKind
		want string
	}{
		{"resolved", ResolvedName("Jita"), EntitySystem, "Jita"},
		{"unresolved system", UnresolvedName(), EntitySystem, "Unknown System"},
		{"unresolved pilot", UnresolvedName(), EntityCharacter, "Unknown Pilot"},
		{"unset corp", Name{}, EntityCorporation, "Unknown Corp"},
		{"unset alliance", Name{}, EntityAlliance, "Unknown Alliance"},
		{"unset ship", Name{}, EntityShipType, "Unknown Ship"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.n.Display(tt.kind); got != tt.want {
				t.Errorf("Display() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestName_States(t *testing.T) {
	if (Name{}).IsSet() {
		t.Error("zero Name must be unset")
	}
	if !UnresolvedName().IsSet() || UnresolvedName().Resolved {
		t.Error("unresolved Name must be set but not resolved")
	}
	if !ResolvedName("x").Resolved {
		t.Error("resolved Name must be resolved")
	}
}

func TestKillmail_Helpers(t *testing.T) {
	km := &Killmail{
		ID:       1,
		SystemID: 31000500,
		Victim:   Victim{Participant: Participant{CharacterID: 10, CorporationID: 100}},
		Attackers: []Attacker{
			{Participant: Participant{CharacterID: 20, CorporationID: 200}},
			{Participant: Participant{CorporationID: 300}, FinalBlow: true},
		},
	}

	if !km.IsWormhole() {
		t.Error("expected wormhole")
	}
	if fb := km.FinalBlow(); fb == nil || fb.CorporationID != 300 {
		t.Errorf("FinalBlow() = %+v", fb)
	}
	if ids := km.CharacterIDs(); len(ids) != 2 || ids[0] != 10 || ids[1] != 20 {
		t.Errorf("CharacterIDs() = %v", ids)
	}
	if ids := km.CorporationIDs(); len(ids) != 3 {
		t.Errorf("CorporationIDs() = %v", ids)
	}

	if (&Killmail{}).FinalBlow() != nil {
		t.Error("expected nil final blow without attackers")
	}
}

func TestKillmail_CloneIsDeep(t *testing.T) {
	now := time.Now()
	raw := map[string]interface{}{"killmail_id": 1}
	km := &Killmail{ID: 1, Attackers: []Attacker{{FinalBlow: true}}, EnrichedAt: &now, Raw: raw}
	cp := km.Clone()

	if cp.Raw["killmail_id"] != 1 {
		t.Errorf("clone Raw = %v, want source payload", cp.Raw)
	}

	cp.Attackers[0].FinalBlow = false
	*cp.EnrichedAt = now.Add(time.Hour)

	if !km.Attackers[0].FinalBlow {
		t.Error("clone shares attackers slice")
	}
	if !km.EnrichedAt.Equal(now) {
		t.Error("clone shares EnrichedAt")
	}
}

func TestDecision_Helpers(t *testing.T) {
	d := Decision{
		KillmailID: 1,
		Targets:    []Target{{ChannelID: "c1", Kind: ChannelCharacter}},
		Reasons:    []Reason{{Kind: ChannelCharacter, Text: ReasonCharacterTracked}},
	}
	if d.Empty() || !d.HasTarget("c1") || d.HasTarget("c2") {
		t.Error("target helpers wrong")
	}
	if !d.HasReason(ReasonCharacterTracked) || d.HasReason(ReasonDuplicate) {
		t.Error("reason helpers wrong")
	}
}

func TestNotificationDocument_Validate(t *testing.T) {
	valid := &NotificationDocument{
		Title:     "Rifter destroyed in Jita",
		URL:       "https://zkillboard.com/kill/12345/",
		Color:     0xFF0000,
		Thumbnail: &DocumentImage{URL: "https://images.evetech.net/types/587/render?size=128"},
		Fields:    []DocumentField{{Name: "Value", Value: "1.2M ISK", Inline: true}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(d *NotificationDocument)
	}{
		{"missing title", func(d *NotificationDocument) { d.Title = "" }},
		{"long title", func(d *NotificationDocument) { d.Title = strings.Repeat("x", 257) }},
		{"bad url", func(d *NotificationDocument) { d.URL = "not a url" }},
		{"color overflow", func(d *NotificationDocument) { d.Color = 0x1000000 }},
		{"empty field value", func(d *NotificationDocument) { d.Fields[0].Value = "" }},
		{"too many fields", func(d *NotificationDocument) {
			d.Fields = make([]DocumentField, 26)
			for i := range d.Fields {
				d.Fields[i] = DocumentField{Name: "n", Value: "v"}
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := *valid
			d.Fields = append([]DocumentField(nil), valid.Fields...)
			tt.mutate(&d)
			if err := d.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	var nilDoc *NotificationDocument
	if err := nilDoc.Validate(); err == nil {
		t.Error("expected error for nil document")
	}
}
