// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package canonical

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/killfeed/internal/models"
)

// ErrInvalidPayload is returned when a payload has no usable killmail ID.
var ErrInvalidPayload = errors.New("invalid killmail payload")

var (
	idKeys        = []string{"killmail_id", "killID", "kill_id", "killmailID", "id"}
	timeKeys      = []string{"killmail_time", "kill_time", "killTime", "killmailTime"}
	systemKeys    = []string{"solar_system_id", "system_id", "solarSystemID", "systemID"}
	systemNames   = []string{"solar_system_name", "system_name", "solarSystemName"}
	charKeys      = []string{"character_id", "characterID"}
	charNames     = []string{"character_name", "characterName"}
	corpKeys      = []string{"corporation_id", "corporationID"}
	corpNames     = []string{"corporation_name", "corporationName"}
	allianceKeys  = []string{"alliance_id", "allianceID"}
	allianceNames = []string{"alliance_name", "allianceName"}
	shipKeys      = []string{"ship_type_id", "shipTypeID"}
	shipNames     = []string{"ship_name", "ship_type_name", "shipTypeName"}
)

// DecodeJSON decodes a raw feed message, keeping numbers as json.Number so
// 64-bit identifiers are not rounded through float64.
func DecodeJSON(data []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrInvalidPayload)
	}
	return raw, nil
}

// Canonicalize converts a loosely-shaped payload into a Killmail.
//
// Accepted shapes are a bare ESI killmail, ESI with a sibling "zkb" block, the
// zKillboard RedisQ envelope {"package": {...}} and the zKillboard websocket
// form where zkb sits alongside the killmail fields. Only a positive killmail
// ID is required; anything else missing or malformed is left empty.
// Names already present in the payload are taken as resolved.
func Canonicalize(raw map[string]interface{}) (*models.Killmail, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}

	envelope := raw
	if pkg, ok := lookup(raw, "package"); ok {
		m, isMap := asMap(pkg)
		if !isMap {
			return nil, fmt.Errorf("%w: package is not an object", ErrInvalidPayload)
		}
		envelope = m
	}

	body := envelope
	if inner, ok := lookup(envelope, "killmail", "killMail"); ok {
		if m, isMap := asMap(inner); isMap {
			body = m
		}
	}

	id := int64Field(body, idKeys...)
	if id == 0 {
		id = int64Field(envelope, idKeys...)
	}
	if id <= 0 {
		return nil, fmt.Errorf("%w: missing killmail id", ErrInvalidPayload)
	}

	km := &models.Killmail{
		ID:       id,
		SystemID: int64Field(body, systemKeys...),
		Raw:      raw,
	}
	if v, ok := lookup(body, timeKeys...); ok {
		km.KillTime = parseTime(v)
	}
	km.SystemName = presetName(body, systemNames...)

	if v, ok := lookup(body, "victim"); ok {
		if m, isMap := asMap(v); isMap {
			km.Victim = models.Victim{
				Participant: participant(m),
				DamageTaken: int64Field(m, "damage_taken", "damageTaken"),
			}
		}
	}

	if v, ok := lookup(body, "attackers"); ok {
		for _, a := range asSlice(v) {
			m, isMap := asMap(a)
			if !isMap {
				continue
			}
			fb, _ := lookup(m, "final_blow", "finalBlow")
			km.Attackers = append(km.Attackers, models.Attacker{
				Participant:  participant(m),
				FinalBlow:    asBool(fb),
				DamageDone:   int64Field(m, "damage_done", "damageDone"),
				WeaponTypeID: int64Field(m, "weapon_type_id", "weaponTypeID"),
			})
		}
	}

	zkbSource, ok := lookup(envelope, "zkb")
	if !ok {
		zkbSource, ok = lookup(body, "zkb")
	}
	if ok {
		if m, isMap := asMap(zkbSource); isMap {
			km.ZKB = zkb(m)
		}
	}

	km.Hash = stringField(body, "killmail_hash", "hash")
	if km.Hash == "" {
		km.Hash = km.ZKB.Hash
	}

	return km, nil
}

func participant(m map[string]interface{}) models.Participant {
	return models.Participant{
		CharacterID:     int64Field(m, charKeys...),
		CharacterName:   presetName(m, charNames...),
		CorporationID:   int64Field(m, corpKeys...),
		CorporationName: presetName(m, corpNames...),
		AllianceID:      int64Field(m, allianceKeys...),
		AllianceName:    presetName(m, allianceNames...),
		ShipTypeID:      int64Field(m, shipKeys...),
		ShipName:        presetName(m, shipNames...),
	}
}

func presetName(m map[string]interface{}, keys ...string) models.Name {
	if s := stringField(m, keys...); s != "" {
		return models.ResolvedName(s)
	}
	return models.Name{}
}

func zkb(m map[string]interface{}) models.ZKB {
	out := models.ZKB{
		Hash:   stringField(m, "hash"),
		Points: int64Field(m, "points"),
	}
	if v, ok := lookup(m, "totalValue", "total_value"); ok {
		out.TotalValue, _ = asFloat64(v)
	}
	if v, ok := lookup(m, "fittedValue", "fitted_value"); ok {
		out.FittedValue, _ = asFloat64(v)
	}
	if v, ok := lookup(m, "npc"); ok {
		out.NPC = asBool(v)
	}
	if v, ok := lookup(m, "solo"); ok {
		out.Solo = asBool(v)
	}
	return out
}
