// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/killfeed/internal/canonical"
	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/dedup"
	"github.com/tomtom215/killfeed/internal/determiner"
	"github.com/tomtom215/killfeed/internal/dispatcher"
	"github.com/tomtom215/killfeed/internal/enrichment"
	"github.com/tomtom215/killfeed/internal/esi"
	"github.com/tomtom215/killfeed/internal/formatter"
	"github.com/tomtom215/killfeed/internal/models"
	"github.com/tomtom215/killfeed/internal/tracking"
)

type nameResolver struct {
	names map[string]string
}

func (r nameResolver) Resolve(_ context.Context, kind models.EntityKind, id int64) (string, error) {
	if name, ok := r.names[fmt.Sprintf("%s:%d", kind, id)]; ok {
		return name, nil
	}
	return "", esi.ErrNotFound
}

type recordingDeliverer struct {
	mu   sync.Mutex
	sent []sentDocument
	fail map[string]error
}

type sentDocument struct {
	channelID string
	doc       *models.NotificationDocument
}

func (d *recordingDeliverer) Deliver(_ context.Context, channelID string, doc *models.NotificationDocument) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail[channelID]; err != nil {
		return err
	}
	d.sent = append(d.sent, sentDocument{channelID: channelID, doc: doc})
	return nil
}

func (d *recordingDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

type memorySaver struct {
	mu    sync.Mutex
	saved map[int64]*models.Killmail
	err   error
}

func (s *memorySaver) Save(_ context.Context, km *models.Killmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.saved == nil {
		s.saved = make(map[int64]*models.Killmail)
	}
	s.saved[km.ID] = km
	return nil
}

type harness struct {
	pipeline  *Pipeline
	deliverer *recordingDeliverer
	tracking  *tracking.MemoryStore
	saver     *memorySaver
}

func newHarness(t *testing.T, trackingCfg config.TrackingConfig, cfg Config) *harness {
	t.Helper()

	resolver := nameResolver{names: map[string]string{
		"system:30000142":    "Jita",
		"character:999":      "Tracked Pilot",
		"character:555":      "Attacker Pilot",
		"corporation:2001":   "Victim Corp",
		"corporation:2002":   "Attacker Corp",
		"ship_type:587":      "Rifter",
		"ship_type:17738":    "Machariel",
		"system:31000500":    "J100500",
		"alliance:99000001":  "Victim Alliance",
		"ship_type:11202":    "Ares",
		"character:12345678": "Other Pilot",
	}}
	enricher := enrichment.New(resolver, enrichment.NewEntityCache(config.CacheConfig{}), enrichment.Config{}).
		WithSleep(func(context.Context, time.Duration) error { return nil })

	trackingStore := tracking.NewMemoryStore(trackingCfg)
	dedupStore := dedup.NewMemoryStore(config.DedupConfig{Capacity: 1000, TTL: time.Hour})
	det := determiner.New(determiner.Config{
		NotificationsEnabled:     true,
		KillNotificationsEnabled: true,
		DefaultChannel:           "default-channel",
		SystemChannel:            "system-channel",
		CharacterChannel:         "character-channel",
	}, trackingStore, dedupStore)

	deliverer := &recordingDeliverer{}
	saver := &memorySaver{}
	p := New(enricher, det, formatter.New(), dispatcher.New(deliverer, time.Second), saver, cfg)

	return &harness{pipeline: p, deliverer: deliverer, tracking: trackingStore, saver: saver}
}

func killmailPayload() map[string]interface{} {
	raw, err := canonical.DecodeJSON([]byte(`{
		"killmail_id": 12345,
		"killmail_time": "2026-03-01T12:00:00Z",
		"solar_system_id": 30000142,
		"victim": {"character_id": 999, "corporation_id": 2001, "ship_type_id": 587, "damage_taken": 3000},
		"attackers": [
			{"character_id": 555, "corporation_id": 2002, "ship_type_id": 17738, "final_blow": true, "damage_done": 3000}
		],
		"zkb": {"totalValue": 15000000, "hash": "abc"}
	}`))
	if err != nil {
		panic(err)
	}
	return raw
}

func TestProcess_CharacterTrackedEndToEnd(t *testing.T) {
	h := newHarness(t, config.TrackingConfig{Characters: []int64{999}}, Config{})

	result, err := h.pipeline.Process(context.Background(), killmailPayload())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if got := result.Decision.Targets; len(got) != 1 || got[0].ChannelID != "character-channel" {
		t.Fatalf("targets = %+v, want character channel only", got)
	}
	if !result.Decision.HasReason(models.ReasonCharacterTracked) {
		t.Errorf("reasons = %+v", result.Decision.Reasons)
	}

	outcomes := result.Outcomes()
	if len(outcomes) != 1 || !outcomes[0].Success || outcomes[0].ChannelID != "character-channel" {
		t.Fatalf("outcomes = %+v", outcomes)
	}

	if h.deliverer.count() != 1 {
		t.Fatalf("deliveries = %d, want 1", h.deliverer.count())
	}
	sent := h.deliverer.sent[0]
	if !strings.Contains(sent.doc.Description, "Tracked Pilot") {
		t.Errorf("document should name the victim: %q", sent.doc.Description)
	}
	if sent.doc.Author == nil || sent.doc.Author.Name != "Tracked Pilot" {
		t.Errorf("author = %+v", sent.doc.Author)
	}
	if result.Killmail.SystemName.Value != "Jita" {
		t.Errorf("system name = %+v", result.Killmail.SystemName)
	}
}

func TestProcess_DuplicateSubmission(t *testing.T) {
	h := newHarness(t, config.TrackingConfig{Characters: []int64{999}}, Config{})
	ctx := context.Background()

	first, err := h.pipeline.Process(ctx, killmailPayload())
	if err != nil {
		t.Fatal(err)
	}
	first.Outcomes()

	second, err := h.pipeline.Process(ctx, killmailPayload())
	if err != nil {
		t.Fatal(err)
	}
	if !second.Decision.Empty() {
		t.Errorf("second decision targets = %+v", second.Decision.Targets)
	}
	if !second.Decision.HasReason(models.ReasonDuplicate) {
		t.Errorf("second decision reasons = %+v", second.Decision.Reasons)
	}
	if n := len(second.Outcomes()); n != 0 {
		t.Errorf("second submission outcomes = %d", n)
	}
	if h.deliverer.count() != 1 {
		t.Errorf("deliveries = %d, want 1", h.deliverer.count())
	}

	stats := h.pipeline.Stats()
	if stats.Processed != 2 || stats.Notified != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestProcess_NotTracked(t *testing.T) {
	h := newHarness(t, config.TrackingConfig{}, Config{})

	result, err := h.pipeline.Process(context.Background(), killmailPayload())
	if err != nil {
		t.Fatal(err)
	}
	if !result.Decision.Empty() || !result.Decision.HasReason(models.ReasonNotTracked) {
		t.Errorf("decision = %+v", result.Decision)
	}
	if h.deliverer.count() != 0 {
		t.Error("untracked killmail should not be delivered")
	}
	if _, ok := h.saver.saved[12345]; !ok {
		t.Error("killmail should be persisted even when not notified")
	}
}

func TestProcess_SystemAndCharacterFormattedPerKind(t *testing.T) {
	h := newHarness(t, config.TrackingConfig{Systems: []int64{30000142}, Characters: []int64{999}}, Config{})

	result, err := h.pipeline.Process(context.Background(), killmailPayload())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Deliveries) != 2 {
		t.Fatalf("deliveries = %d, want one per channel kind", len(result.Deliveries))
	}

	titles := map[string]string{}
	for _, o := range result.Outcomes() {
		if !o.Success {
			t.Errorf("outcome = %+v", o)
		}
	}
	for _, s := range h.deliverer.sent {
		titles[s.channelID] = s.doc.Title
	}
	if titles["system-channel"] != "Rifter destroyed in Jita" {
		t.Errorf("system title = %q", titles["system-channel"])
	}
	if titles["character-channel"] != "Tracked Pilot lost a Rifter" {
		t.Errorf("character title = %q", titles["character-channel"])
	}
}

func TestProcess_DeliveryFailureIsolated(t *testing.T) {
	h := newHarness(t, config.TrackingConfig{Systems: []int64{30000142}, Characters: []int64{999}}, Config{})
	h.deliverer.fail = map[string]error{"system-channel": errors.New("discord unavailable")}

	result, err := h.pipeline.Process(context.Background(), killmailPayload())
	if err != nil {
		t.Fatal(err)
	}

	var ok, failed int
	for _, o := range result.Outcomes() {
		if o.Success {
			ok++
		} else {
			failed++
			if o.Class != models.OutcomeDeliveryError || o.KillmailID != 12345 {
				t.Errorf("failed outcome = %+v", o)
			}
		}
	}
	if ok != 1 || failed != 1 {
		t.Errorf("ok=%d failed=%d, want 1/1", ok, failed)
	}
}

func TestProcess_InvalidPayload(t *testing.T) {
	h := newHarness(t, config.TrackingConfig{Characters: []int64{999}}, Config{})

	_, err := h.pipeline.Process(context.Background(), map[string]interface{}{"victim": map[string]interface{}{}})
	if !errors.Is(err, canonical.ErrInvalidPayload) {
		t.Errorf("Process() error = %v, want ErrInvalidPayload", err)
	}
	if h.pipeline.Stats().Invalid != 1 {
		t.Errorf("invalid = %d", h.pipeline.Stats().Invalid)
	}

	if _, err := h.pipeline.ProcessBytes(context.Background(), []byte("not json")); !errors.Is(err, canonical.ErrInvalidPayload) {
		t.Errorf("ProcessBytes() error = %v", err)
	}
}

func TestProcess_StaleFilter(t *testing.T) {
	h := newHarness(t, config.TrackingConfig{Characters: []int64{999}}, Config{MaxKillAge: time.Hour})
	h.pipeline.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }

	_, err := h.pipeline.Process(context.Background(), killmailPayload())
	if !errors.Is(err, ErrStaleKillmail) {
		t.Errorf("Process() error = %v, want ErrStaleKillmail", err)
	}
	if h.deliverer.count() != 0 {
		t.Error("stale killmail should not be delivered")
	}

	h.pipeline.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) }
	if _, err := h.pipeline.Process(context.Background(), killmailPayload()); err != nil {
		t.Errorf("fresh killmail rejected: %v", err)
	}
}

func TestProcess_StoreFailureDoesNotBlockDelivery(t *testing.T) {
	h := newHarness(t, config.TrackingConfig{Characters: []int64{999}}, Config{})
	h.saver.err = errors.New("disk full")

	result, err := h.pipeline.Process(context.Background(), killmailPayload())
	if err != nil {
		t.Fatal(err)
	}
	if n := len(result.Outcomes()); n != 1 {
		t.Errorf("outcomes = %d, want 1", n)
	}
	if h.pipeline.Stats().StoreErrors != 1 {
		t.Errorf("store errors = %d", h.pipeline.Stats().StoreErrors)
	}
}

type failingFormatter struct{}

func (failingFormatter) Format(*models.Killmail, models.ChannelKind) (*models.NotificationDocument, error) {
	return nil, formatter.ErrInvalidDocument
}

func TestProcess_FormatError(t *testing.T) {
	h := newHarness(t, config.TrackingConfig{Characters: []int64{999}}, Config{})
	h.pipeline.formatter = failingFormatter{}

	result, err := h.pipeline.Process(context.Background(), killmailPayload())
	if err != nil {
		t.Fatal(err)
	}
	outcomes := result.Outcomes()
	if len(outcomes) != 1 || outcomes[0].Class != models.OutcomeFormatError {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	if h.deliverer.count() != 0 {
		t.Error("nothing should be delivered after a format error")
	}
	if h.pipeline.Stats().FormatErrors != 1 {
		t.Errorf("format errors = %d", h.pipeline.Stats().FormatErrors)
	}
}

func TestGroupByKind(t *testing.T) {
	groups := groupByKind([]models.Target{
		{ChannelID: "a", Kind: models.ChannelCharacter},
		{ChannelID: "b", Kind: models.ChannelSystem},
		{ChannelID: "c", Kind: models.ChannelCharacter},
	})
	if len(groups) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[0].kind != models.ChannelCharacter || len(groups[0].targets) != 2 {
		t.Errorf("first group = %+v", groups[0])
	}
	if groups[1].kind != models.ChannelSystem {
		t.Errorf("second group = %+v", groups[1])
	}
}

type recordingBroadcaster struct {
	mu  sync.Mutex
	ids []int64
}

func (b *recordingBroadcaster) BroadcastKillmail(km *models.Killmail, _ models.Decision) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ids = append(b.ids, km.ID)
}

func TestProcess_BroadcastsOnlyNotified(t *testing.T) {
	h := newHarness(t, config.TrackingConfig{Characters: []int64{999}}, Config{})
	live := &recordingBroadcaster{}
	h.pipeline.WithBroadcaster(live)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := h.pipeline.Process(ctx, killmailPayload())
		if err != nil {
			t.Fatal(err)
		}
		result.Outcomes()
	}

	if len(live.ids) != 1 || live.ids[0] != 12345 {
		t.Errorf("broadcast ids = %v, want [12345] (duplicate must not be broadcast)", live.ids)
	}
}

// contextDedup fails on a done context the way a network-backed store does.
type contextDedup struct {
	inner *dedup.MemoryStore
}

func (d contextDedup) MarkIfNew(ctx context.Context, scope string, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return d.inner.MarkIfNew(ctx, scope, id)
}

// slowResolver answers after delay or when ctx ends, whichever comes first.
type slowResolver struct {
	delay time.Duration
}

func (r slowResolver) Resolve(ctx context.Context, _ models.EntityKind, _ int64) (string, error) {
	select {
	case <-time.After(r.delay):
		return "", esi.ErrNotFound
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type contextSaver struct {
	mu      sync.Mutex
	ctxErrs []error
}

func (s *contextSaver) Save(ctx context.Context, _ *models.Killmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return ctx.Err()
}

func TestProcess_DedupSurvivesEventDeadline(t *testing.T) {
	enricher := enrichment.New(slowResolver{delay: 40 * time.Millisecond},
		enrichment.NewEntityCache(config.CacheConfig{}), enrichment.Config{})
	det := determiner.New(determiner.Config{
		NotificationsEnabled:     true,
		KillNotificationsEnabled: true,
		DefaultChannel:           "default-channel",
		CharacterChannel:         "character-channel",
	},
		tracking.NewMemoryStore(config.TrackingConfig{Characters: []int64{999}}),
		contextDedup{inner: dedup.NewMemoryStore(config.DedupConfig{Capacity: 100, TTL: time.Hour})},
	)
	deliverer := &recordingDeliverer{}
	saver := &contextSaver{}
	p := New(enricher, det, formatter.New(), dispatcher.New(deliverer, time.Second), saver,
		Config{EventTimeout: 30 * time.Millisecond, DecisionTimeout: time.Second})

	for i := 0; i < 2; i++ {
		result, err := p.Process(context.Background(), killmailPayload())
		if err != nil {
			t.Fatalf("Process() #%d error = %v", i+1, err)
		}
		result.Outcomes()
	}

	if got := deliverer.count(); got != 1 {
		t.Errorf("deliveries for a killmail submitted twice = %d, want 1", got)
	}
	for i, err := range saver.ctxErrs {
		if err != nil {
			t.Errorf("Save #%d ran on a done context: %v", i+1, err)
		}
	}
	if len(saver.ctxErrs) != 2 {
		t.Errorf("saves = %d, want 2", len(saver.ctxErrs))
	}
}
