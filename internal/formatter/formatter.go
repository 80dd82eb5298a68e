// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package formatter

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/killfeed/internal/models"
)

// ErrInvalidDocument is returned when a killmail cannot be rendered into a
// valid notification document.
var ErrInvalidDocument = errors.New("invalid notification document")

const (
	zkillKillURL      = "https://zkillboard.com/kill/%d/"
	zkillCharacterURL = "https://zkillboard.com/character/%d/"
	shipRenderURL     = "https://images.evetech.net/types/%d/render?size=128"
	portraitURL       = "https://images.evetech.net/characters/%d/portrait?size=64"
	corpLogoURL       = "https://images.evetech.net/corporations/%d/logo?size=64"

	maxTitleLength = 256
)

// Value tiers, highest first.
var colorTiers = []struct {
	min   float64
	color int
}{
	{10e9, 0x8E44AD},
	{1e9, 0xE74C3C},
	{100e6, 0xE67E22},
	{10e6, 0xF1C40F},
	{0, 0x95A5A6},
}

// Formatter renders killmails into platform-agnostic notification documents.
type Formatter struct {
	now func() time.Time
}

// New creates a Formatter.
func New() *Formatter {
	return &Formatter{now: time.Now}
}

// Format renders km for a channel of the given kind. Character channels lead
// with the victim's name; system and default channels lead with the location.
func (f *Formatter) Format(km *models.Killmail, kind models.ChannelKind) (*models.NotificationDocument, error) {
	if km == nil || km.ID <= 0 {
		return nil, fmt.Errorf("%w: missing killmail", ErrInvalidDocument)
	}

	victim := km.Victim
	ship := victim.ShipName.Display(models.EntityShipType)
	system := systemDisplay(km)
	pilot := victimDisplay(victim)

	doc := &models.NotificationDocument{
		Kind:        kind,
		Title:       truncate(title(kind, pilot, ship, system), maxTitleLength),
		Description: description(km, pilot, ship, system),
		URL:         fmt.Sprintf(zkillKillURL, km.ID),
		Color:       ValueColor(km.ZKB.TotalValue),
		Timestamp:   km.KillTime,
		Footer:      &models.DocumentFooter{Text: fmt.Sprintf("Kill ID: %d", km.ID)},
	}
	if doc.Timestamp.IsZero() {
		doc.Timestamp = f.now().UTC()
	}

	if victim.ShipTypeID > 0 {
		doc.Thumbnail = &models.DocumentImage{URL: fmt.Sprintf(shipRenderURL, victim.ShipTypeID)}
	}

	doc.Author = &models.DocumentAuthor{Name: truncate(pilot, maxTitleLength)}
	switch {
	case victim.CharacterID > 0:
		doc.Author.URL = fmt.Sprintf(zkillCharacterURL, victim.CharacterID)
		doc.Author.IconURL = fmt.Sprintf(portraitURL, victim.CharacterID)
	case victim.CorporationID > 0:
		doc.Author.IconURL = fmt.Sprintf(corpLogoURL, victim.CorporationID)
	}

	doc.Fields = append(doc.Fields,
		models.DocumentField{Name: "Value", Value: FormatISK(km.ZKB.TotalValue), Inline: true},
		models.DocumentField{Name: "Attackers", Value: fmt.Sprintf("%d", len(km.Attackers)), Inline: true},
	)
	if fb := km.FinalBlow(); fb != nil {
		doc.Fields = append(doc.Fields, models.DocumentField{Name: "Final Blow", Value: finalBlowDisplay(fb), Inline: true})
	}
	if victim.CorporationID > 0 {
		doc.Fields = append(doc.Fields, models.DocumentField{Name: "Corporation", Value: affiliation(victim.Participant)})
	}
	doc.Fields = append(doc.Fields, models.DocumentField{Name: "System", Value: system})

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: killmail %d: %v", ErrInvalidDocument, km.ID, err)
	}
	return doc, nil
}

func title(kind models.ChannelKind, pilot, ship, system string) string {
	if kind == models.ChannelCharacter {
		return fmt.Sprintf("%s lost a %s", pilot, ship)
	}
	return fmt.Sprintf("%s destroyed in %s", ship, system)
}

func description(km *models.Killmail, pilot, ship, system string) string {
	attackers := "1 attacker"
	if n := len(km.Attackers); n != 1 {
		attackers = fmt.Sprintf("%d attackers", n)
	}
	desc := fmt.Sprintf("**%s** (%s) lost their **%s** to %s in **%s**.",
		pilot, affiliation(km.Victim.Participant), ship, attackers, system)
	if km.ZKB.Solo {
		desc += " Solo kill."
	}
	return desc
}

func systemDisplay(km *models.Killmail) string {
	name := km.SystemName.Display(models.EntitySystem)
	if km.IsWormhole() {
		return name + " (J-space)"
	}
	return name
}

// victimDisplay names the victim, falling back to the corporation for NPC
// structures and deployables without a pilot.
func victimDisplay(v models.Victim) string {
	if v.CharacterID > 0 {
		return v.CharacterName.Display(models.EntityCharacter)
	}
	if v.CorporationID > 0 {
		return v.CorporationName.Display(models.EntityCorporation)
	}
	return models.EntityCharacter.Sentinel()
}

func affiliation(p models.Participant) string {
	corp := p.CorporationName.Display(models.EntityCorporation)
	if p.AllianceID > 0 {
		return fmt.Sprintf("%s [%s]", corp, p.AllianceName.Display(models.EntityAlliance))
	}
	return corp
}

func finalBlowDisplay(a *models.Attacker) string {
	name := a.CorporationName.Display(models.EntityCorporation)
	if a.CharacterID > 0 {
		name = a.CharacterName.Display(models.EntityCharacter)
	}
	if a.ShipTypeID > 0 {
		return fmt.Sprintf("%s (%s)", name, a.ShipName.Display(models.EntityShipType))
	}
	return name
}

// ValueColor maps an ISK value to an embed colour.
func ValueColor(value float64) int {
	for _, tier := range colorTiers {
		if value >= tier.min {
			return tier.color
		}
	}
	return colorTiers[len(colorTiers)-1].color
}

// FormatISK renders an ISK amount in short form, e.g. "15.25M ISK".
func FormatISK(value float64) string {
	switch {
	case value >= 1e12:
		return fmt.Sprintf("%.2fT ISK", value/1e12)
	case value >= 1e9:
		return fmt.Sprintf("%.2fB ISK", value/1e9)
	case value >= 1e6:
		return fmt.Sprintf("%.2fM ISK", value/1e6)
	case value >= 1e3:
		return fmt.Sprintf("%.2fK ISK", value/1e3)
	default:
		return fmt.Sprintf("%.0f ISK", value)
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
