// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package determiner

import (
	"context"

	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/dedup"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
	"github.com/tomtom215/killfeed/internal/models"
	"github.com/tomtom215/killfeed/internal/tracking"
)

// DefaultScope is the dedup scope for kill notifications.
const DefaultScope = "kill"

// Config holds the routing switches and channel ids.
type Config struct {
	NotificationsEnabled     bool
	KillNotificationsEnabled bool
	WormholeOnly             bool
	CorporationExclusion     bool

	DefaultChannel   string
	SystemChannel    string
	CharacterChannel string

	Scope string
}

// ConfigFrom extracts determiner settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		NotificationsEnabled:     cfg.Notifications.Enabled,
		KillNotificationsEnabled: cfg.Notifications.KillsEnabled,
		WormholeOnly:             cfg.Notifications.WormholeOnly,
		CorporationExclusion:     cfg.Notifications.CorporationExclusion,
		DefaultChannel:           cfg.Discord.ChannelID,
		SystemChannel:            cfg.Discord.SystemChannelID,
		CharacterChannel:         cfg.Discord.CharacterChannelID,
		Scope:                    cfg.Notifications.DedupScope,
	}
}

// Determiner decides which channels a killmail is sent to.
type Determiner struct {
	cfg      Config
	tracking tracking.Store
	dedup    dedup.Store
}

// New creates a Determiner.
func New(cfg Config, trackingStore tracking.Store, dedupStore dedup.Store) *Determiner {
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	return &Determiner{cfg: cfg, tracking: trackingStore, dedup: dedupStore}
}

// Determine returns the channels that should receive km. Every target in the
// returned Decision has already been recorded in the dedup store, so calling
// Determine twice for the same killmail yields an empty second decision.
func (d *Determiner) Determine(ctx context.Context, km *models.Killmail) models.Decision {
	decision := d.determine(ctx, km)

	texts := make([]string, len(decision.Reasons))
	for i, r := range decision.Reasons {
		texts[i] = r.Text
	}
	metrics.RecordDecision(texts...)

	logging.Ctx(ctx).Debug().
		Int64("killmail_id", km.ID).
		Int("targets", len(decision.Targets)).
		Strs("reasons", texts).
		Msg("Notification decision")

	return decision
}

func (d *Determiner) determine(ctx context.Context, km *models.Killmail) models.Decision {
	decision := models.Decision{KillmailID: km.ID}

	if !d.cfg.NotificationsEnabled || !d.cfg.KillNotificationsEnabled {
		decision.Reasons = append(decision.Reasons, models.Reason{Text: models.ReasonDisabled})
		return decision
	}

	systemTracked := km.SystemID > 0 && d.check(ctx, "system", km.SystemID, d.tracking.IsTrackedSystem, true)
	characterTracked := d.anyTrackedCharacter(ctx, km)
	if !systemTracked && !characterTracked {
		decision.Reasons = append(decision.Reasons, models.Reason{Text: models.ReasonNotTracked})
		return decision
	}

	candidates := newTargetSet()

	if systemTracked {
		if d.cfg.SystemChannel != "" {
			if reason, excluded := d.systemExclusion(ctx, km); excluded {
				decision.Reasons = append(decision.Reasons, models.Reason{Kind: models.ChannelSystem, Text: reason})
			} else {
				candidates.add(models.Target{ChannelID: d.cfg.SystemChannel, Kind: models.ChannelSystem}, models.ReasonSystemTracked)
			}
		} else if d.cfg.DefaultChannel != "" {
			candidates.add(models.Target{ChannelID: d.cfg.DefaultChannel, Kind: models.ChannelDefault}, models.ReasonSystemTracked)
		}
	}

	if characterTracked {
		if d.cfg.CharacterChannel != "" {
			candidates.add(models.Target{ChannelID: d.cfg.CharacterChannel, Kind: models.ChannelCharacter}, models.ReasonCharacterTracked)
		} else if d.cfg.DefaultChannel != "" {
			candidates.add(models.Target{ChannelID: d.cfg.DefaultChannel, Kind: models.ChannelDefault}, models.ReasonCharacterTracked)
		}
	}

	if candidates.empty() && d.cfg.DefaultChannel != "" {
		candidates.add(models.Target{ChannelID: d.cfg.DefaultChannel, Kind: models.ChannelDefault}, models.ReasonDefaultFallback)
	}

	for _, c := range candidates.list {
		if !d.markIfNew(ctx, c.target, km.ID) {
			decision.Reasons = append(decision.Reasons, models.Reason{Kind: c.target.Kind, Text: models.ReasonDuplicate})
			continue
		}
		decision.Targets = append(decision.Targets, c.target)
		for _, text := range c.reasons {
			decision.Reasons = append(decision.Reasons, models.Reason{Kind: c.target.Kind, Text: text})
		}
	}

	return decision
}

// systemExclusion applies the wormhole-only and corporation filters to the
// dedicated system channel.
func (d *Determiner) systemExclusion(ctx context.Context, km *models.Killmail) (string, bool) {
	if d.cfg.WormholeOnly && !km.IsWormhole() {
		return models.ReasonNonWormhole, true
	}
	if d.cfg.CorporationExclusion {
		for _, corpID := range km.CorporationIDs() {
			if d.check(ctx, "corporation", corpID, d.tracking.IsExcludedCorporation, false) {
				return models.ReasonCorporationExcluded, true
			}
		}
	}
	return "", false
}

func (d *Determiner) anyTrackedCharacter(ctx context.Context, km *models.Killmail) bool {
	for _, id := range km.CharacterIDs() {
		if d.check(ctx, "character", id, d.tracking.IsTrackedCharacter, true) {
			return true
		}
	}
	return false
}

// check evaluates a tracking predicate. Store errors are logged and yield
// onError: callers pass the answer that leads to a notification rather than
// a silent drop (tracked, not excluded).
func (d *Determiner) check(ctx context.Context, predicate string, id int64, fn func(context.Context, int64) (bool, error), onError bool) bool {
	ok, err := fn(ctx, id)
	if err != nil {
		metrics.TrackingErrors.WithLabelValues(predicate).Inc()
		logging.Ctx(ctx).Error().Err(err).Str("predicate", predicate).Int64("id", id).
			Bool("assumed", onError).
			Msg("Tracking store lookup failed")
		return onError
	}
	return ok
}

// markIfNew records the target in the dedup store. Store errors favour
// delivery over suppression.
func (d *Determiner) markIfNew(ctx context.Context, target models.Target, killmailID int64) bool {
	scope := d.cfg.Scope + ":" + string(target.Kind)
	isNew, err := d.dedup.MarkIfNew(ctx, scope, killmailID)
	if err != nil {
		metrics.DedupErrors.Inc()
		logging.Ctx(ctx).Error().Err(err).Str("scope", scope).Int64("killmail_id", killmailID).
			Msg("Dedup store failed, treating killmail as new")
		return true
	}
	return isNew
}

type candidate struct {
	target  models.Target
	reasons []string
}

// targetSet collapses candidates by channel id, keeping insertion order.
type targetSet struct {
	list  []*candidate
	index map[string]*candidate
}

func newTargetSet() *targetSet {
	return &targetSet{index: make(map[string]*candidate)}
}

func (s *targetSet) add(target models.Target, reason string) {
	if c, ok := s.index[target.ChannelID]; ok {
		c.reasons = append(c.reasons, reason)
		return
	}
	c := &candidate{target: target, reasons: []string{reason}}
	s.index[target.ChannelID] = c
	s.list = append(s.list, c)
}

func (s *targetSet) empty() bool {
	return len(s.list) == 0
}
