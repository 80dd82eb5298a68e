// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package canonical

import (
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

const esiPayload = `{
	"killmail_id": 12345,
	"killmail_time": "2026-03-01T18:22:05Z",
	"solar_system_id": 31000005,
	"victim": {
		"character_id": 100,
		"corporation_id": 200,
		"alliance_id": 300,
		"ship_type_id": 587,
		"damage_taken": 4210
	},
	"attackers": [
		{"character_id": 101, "corporation_id": 201, "ship_type_id": 11202, "damage_done": 4000, "final_blow": true},
		{"corporation_id": 1000125, "ship_type_id": 3754, "damage_done": 210, "final_blow": false}
	],
	"zkb": {"hash": "abc123", "totalValue": 15250000.5, "points": 4, "npc": false, "solo": false}
}`

func TestCanonicalize_ESIPayload(t *testing.T) {
	raw, err := DecodeJSON([]byte(esiPayload))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	km, err := Canonicalize(raw)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}

	if km.ID != 12345 {
		t.Errorf("ID = %d, want 12345", km.ID)
	}
	if _, ok := km.Raw["victim"]; !ok || len(km.Raw) != len(raw) {
		t.Errorf("Raw = %v, want the source payload", km.Raw)
	}
	if km.SystemID != 31000005 {
		t.Errorf("SystemID = %d", km.SystemID)
	}
	want := time.Date(2026, 3, 1, 18, 22, 5, 0, time.UTC)
	if !km.KillTime.Equal(want) {
		t.Errorf("KillTime = %v, want %v", km.KillTime, want)
	}
	if km.Victim.CharacterID != 100 || km.Victim.CorporationID != 200 || km.Victim.AllianceID != 300 {
		t.Errorf("victim ids = %+v", km.Victim.Participant)
	}
	if km.Victim.ShipTypeID != 587 || km.Victim.DamageTaken != 4210 {
		t.Errorf("victim ship/damage = %d/%d", km.Victim.ShipTypeID, km.Victim.DamageTaken)
	}
	if len(km.Attackers) != 2 {
		t.Fatalf("len(Attackers) = %d, want 2", len(km.Attackers))
	}
	if !km.Attackers[0].FinalBlow || km.Attackers[1].FinalBlow {
		t.Error("final blow flags not preserved")
	}
	if km.Attackers[1].CharacterID != 0 {
		t.Errorf("NPC attacker CharacterID = %d, want 0", km.Attackers[1].CharacterID)
	}
	if km.ZKB.TotalValue != 15250000.5 || km.ZKB.Points != 4 {
		t.Errorf("zkb = %+v", km.ZKB)
	}
	if km.Hash != "abc123" {
		t.Errorf("Hash = %q, want hash from zkb", km.Hash)
	}
	if km.Victim.CharacterName.IsSet() || km.SystemName.IsSet() {
		t.Error("names must stay unset when absent from the payload")
	}
}

func TestCanonicalize_Envelopes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "redisq package",
			raw:  `{"package": {"killID": 777, "killmail": {"killmail_id": 777, "solar_system_id": 30000142}, "zkb": {"totalValue": 10}}}`,
		},
		{
			name: "killmail with sibling zkb",
			raw:  `{"killmail": {"solar_system_id": 30000142}, "killID": 777, "zkb": {"totalValue": 10}}`,
		},
		{
			name: "websocket flat",
			raw:  `{"killmail_id": 777, "solar_system_id": 30000142, "zkb": {"totalValue": 10}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := DecodeJSON([]byte(tt.raw))
			if err != nil {
				t.Fatalf("DecodeJSON: %v", err)
			}
			km, err := Canonicalize(raw)
			if err != nil {
				t.Fatalf("Canonicalize: %v", err)
			}
			if km.ID != 777 || km.SystemID != 30000142 {
				t.Errorf("got id=%d system=%d", km.ID, km.SystemID)
			}
			if km.ZKB.TotalValue != 10 {
				t.Errorf("TotalValue = %v, want 10", km.ZKB.TotalValue)
			}
		})
	}
}

func TestCanonicalize_NumericCoercion(t *testing.T) {
	tests := []struct {
		name string
		id   interface{}
	}{
		{"float64", float64(42)},
		{"json.Number", json.Number("42")},
		{"int", 42},
		{"int64", int64(42)},
		{"string", "42"},
		{"padded string", " 42 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			km, err := Canonicalize(map[string]interface{}{"killmail_id": tt.id, "system_id": tt.id})
			if err != nil {
				t.Fatalf("Canonicalize: %v", err)
			}
			if km.ID != 42 || km.SystemID != 42 {
				t.Errorf("got id=%d system=%d, want 42", km.ID, km.SystemID)
			}
		})
	}
}

func TestCanonicalize_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
	}{
		{"nil", nil},
		{"missing id", map[string]interface{}{"solar_system_id": 30000142}},
		{"zero id", map[string]interface{}{"killmail_id": 0}},
		{"negative id", map[string]interface{}{"killmail_id": -5}},
		{"fractional id", map[string]interface{}{"killmail_id": 1.5}},
		{"garbage id", map[string]interface{}{"killmail_id": "abc"}},
		{"package not object", map[string]interface{}{"package": "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Canonicalize(tt.raw)
			if !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("err = %v, want ErrInvalidPayload", err)
			}
		})
	}
}

func TestCanonicalize_Lenient(t *testing.T) {
	raw := map[string]interface{}{
		"kill_id":   "99",
		"kill_time": "not a time",
		"victim":    "not an object",
		"attackers": []interface{}{"junk", map[string]interface{}{"characterID": 5, "finalBlow": "true"}},
		"zkb":       map[interface{}]interface{}{"totalValue": "1500.25", 1: "ignored"},
	}

	km, err := Canonicalize(raw)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if km.ID != 99 {
		t.Errorf("ID = %d, want 99", km.ID)
	}
	if !km.KillTime.IsZero() {
		t.Errorf("KillTime = %v, want zero", km.KillTime)
	}
	if km.Victim.CharacterID != 0 {
		t.Errorf("victim should be empty, got %+v", km.Victim)
	}
	if len(km.Attackers) != 1 || km.Attackers[0].CharacterID != 5 || !km.Attackers[0].FinalBlow {
		t.Errorf("attackers = %+v", km.Attackers)
	}
	if km.ZKB.TotalValue != 1500.25 {
		t.Errorf("TotalValue = %v", km.ZKB.TotalValue)
	}
}

func TestCanonicalize_PreResolvedNames(t *testing.T) {
	raw := map[string]interface{}{
		"killmail_id":       int64(1),
		"solar_system_name": "J123456",
		"victim": map[string]interface{}{
			"character_id":   100,
			"character_name": "Some Pilot",
			"ship_type_id":   587,
		},
	}

	km, err := Canonicalize(raw)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if !km.SystemName.Resolved || km.SystemName.Value != "J123456" {
		t.Errorf("SystemName = %+v", km.SystemName)
	}
	if !km.Victim.CharacterName.Resolved || km.Victim.CharacterName.Value != "Some Pilot" {
		t.Errorf("CharacterName = %+v", km.Victim.CharacterName)
	}
	if km.Victim.ShipName.IsSet() {
		t.Errorf("ShipName = %+v, want unset", km.Victim.ShipName)
	}
}

func TestCanonicalize_TimeLayouts(t *testing.T) {
	want := time.Date(2026, 3, 1, 18, 22, 5, 0, time.UTC)
	for _, v := range []interface{}{
		"2026-03-01T18:22:05Z",
		"2026.03.01 18:22:05",
		"2026-03-01 18:22:05",
		json.Number("1772389325"),
	} {
		got := parseTime(v)
		if !got.Equal(want) {
			t.Errorf("parseTime(%v) = %v, want %v", v, got, want)
		}
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	for _, in := range []string{``, `not json`, `[1,2]`, `null`} {
		if _, err := DecodeJSON([]byte(in)); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("DecodeJSON(%q) err = %v, want ErrInvalidPayload", in, err)
		}
	}
}

func TestDecodeJSON_PreservesLargeIDs(t *testing.T) {
	raw, err := DecodeJSON([]byte(`{"killmail_id": 9007199254740993}`))
	if err != nil {
		t.Fatal(err)
	}
	km, err := Canonicalize(raw)
	if err != nil {
		t.Fatal(err)
	}
	if km.ID != 9007199254740993 {
		t.Errorf("ID = %d, want 9007199254740993", km.ID)
	}
}
