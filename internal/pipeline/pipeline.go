// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tomtom215/killfeed/internal/canonical"
	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/dispatcher"
	"github.com/tomtom215/killfeed/internal/enrichment"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
	"github.com/tomtom215/killfeed/internal/models"
)

// Defaults applied when the configured timeouts are zero.
const (
	DefaultEventTimeout    = 60 * time.Second
	DefaultDecisionTimeout = 10 * time.Second
)

// ErrStaleKillmail is returned for kills older than the configured maximum age.
var ErrStaleKillmail = errors.New("killmail older than max age")

// Event results for killfeed_events_processed_total.
const (
	ResultNotified    = "notified"
	ResultSkipped     = "skipped"
	ResultFormatError = "format_error"
)

// Enricher resolves entity names on a killmail.
type Enricher interface {
	Enrich(ctx context.Context, km *models.Killmail) (*models.Killmail, enrichment.Report)
}

// Determiner selects target channels.
type Determiner interface {
	Determine(ctx context.Context, km *models.Killmail) models.Decision
}

// Formatter renders a killmail for a channel kind.
type Formatter interface {
	Format(km *models.Killmail, kind models.ChannelKind) (*models.NotificationDocument, error)
}

// Dispatcher fans documents out to channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, killmailID int64, doc *models.NotificationDocument, targets []models.Target) *dispatcher.Delivery
	RecordFormatError(ctx context.Context, killmailID int64, targets []models.Target, err error) []models.Outcome
}

// Broadcaster publishes notified killmails to live observers.
type Broadcaster interface {
	BroadcastKillmail(km *models.Killmail, decision models.Decision)
}

// Store persists enriched killmails.
type Store interface {
	Save(ctx context.Context, km *models.Killmail) error
}

// Config bounds per-event work.
type Config struct {
	// EventTimeout bounds canonicalization and enrichment.
	EventTimeout time.Duration
	// DecisionTimeout bounds persistence and routing. They run on a context
	// detached from the event deadline so an exhausted deadline cannot make
	// the dedup store fail open.
	DecisionTimeout time.Duration
	// MaxKillAge drops kills older than this. Zero disables the filter.
	MaxKillAge time.Duration
}

// ConfigFrom extracts pipeline settings from the application config.
func ConfigFrom(cfg config.PipelineConfig) Config {
	return Config{
		EventTimeout:    cfg.EventTimeout,
		DecisionTimeout: cfg.DecisionTimeout,
		MaxKillAge:      cfg.MaxKillAge,
	}
}

// Stats are cumulative event counters.
type Stats struct {
	Processed    int64 `json:"processed"`
	Notified     int64 `json:"notified"`
	Skipped      int64 `json:"skipped"`
	Invalid      int64 `json:"invalid"`
	Stale        int64 `json:"stale"`
	FormatErrors int64 `json:"format_errors"`
	StoreErrors  int64 `json:"store_errors"`
}

// Result describes what happened to one event.
type Result struct {
	KillmailID   int64
	Killmail     *models.Killmail
	Enrichment   enrichment.Report
	Decision     models.Decision
	Deliveries   []*dispatcher.Delivery
	FormatErrors []models.Outcome
}

// Outcomes waits for every dispatched delivery and returns all per-channel
// outcomes, format errors last.
func (r *Result) Outcomes() []models.Outcome {
	var out []models.Outcome
	for _, dl := range r.Deliveries {
		out = append(out, dl.Wait()...)
	}
	return append(out, r.FormatErrors...)
}

// Pipeline wires the processing stages together.
type Pipeline struct {
	enricher   Enricher
	determiner Determiner
	formatter  Formatter
	dispatcher Dispatcher
	store      Store
	live       Broadcaster
	cfg        Config
	now        func() time.Time

	processed    atomic.Int64
	notified     atomic.Int64
	skipped      atomic.Int64
	invalid      atomic.Int64
	stale        atomic.Int64
	formatErrors atomic.Int64
	storeErrors  atomic.Int64
}

// New creates a Pipeline. store may be nil to disable persistence.
func New(enricher Enricher, determiner Determiner, formatter Formatter, disp Dispatcher, store Store, cfg Config) *Pipeline {
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = DefaultEventTimeout
	}
	if cfg.DecisionTimeout <= 0 {
		cfg.DecisionTimeout = DefaultDecisionTimeout
	}
	return &Pipeline{
		enricher:   enricher,
		determiner: determiner,
		formatter:  formatter,
		dispatcher: disp,
		store:      store,
		cfg:        cfg,
		now:        time.Now,
	}
}

// WithBroadcaster sets a live observer for notified killmails.
func (p *Pipeline) WithBroadcaster(b Broadcaster) *Pipeline {
	p.live = b
	return p
}

// ProcessBytes decodes a JSON payload and processes it.
func (p *Pipeline) ProcessBytes(ctx context.Context, data []byte) (*Result, error) {
	raw, err := canonical.DecodeJSON(data)
	if err != nil {
		metrics.RecordEventRejected("decode_error")
		p.invalid.Add(1)
		return nil, err
	}
	return p.Process(ctx, raw)
}

// Process runs one raw payload through every stage. It returns once the
// deliveries have been started; use Result.Outcomes to wait for them.
func (p *Pipeline) Process(ctx context.Context, raw map[string]interface{}) (*Result, error) {
	start := p.now()

	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.EventTimeout)
	defer cancel()

	km, err := canonical.Canonicalize(raw)
	if err != nil {
		metrics.RecordEventRejected("invalid_payload")
		p.invalid.Add(1)
		logging.Ctx(ctx).Warn().Err(err).Msg("Rejected killmail payload")
		return nil, err
	}
	ctx = logging.ContextWithKillmailID(ctx, km.ID)

	if p.isStale(km) {
		metrics.RecordEventRejected("stale")
		p.stale.Add(1)
		logging.Ctx(ctx).Debug().
			Time("kill_time", km.KillTime).
			Dur("max_age", p.cfg.MaxKillAge).
			Msg("Skipping stale killmail")
		return nil, fmt.Errorf("%w: killmail %d from %s", ErrStaleKillmail, km.ID, km.KillTime.Format(time.RFC3339))
	}

	enriched, report := p.enricher.Enrich(ctx, km)
	if ctx.Err() != nil {
		logging.Ctx(ctx).Warn().
			Int("failed", report.Failed).
			Msg("Event deadline reached during enrichment, continuing with placeholders")
	}

	decideCtx, cancelDecide := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.DecisionTimeout)
	defer cancelDecide()
	ctx = decideCtx

	if p.store != nil {
		if err := p.store.Save(ctx, enriched); err != nil {
			p.storeErrors.Add(1)
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to persist killmail")
		}
	}

	result := &Result{
		KillmailID: km.ID,
		Killmail:   enriched,
		Enrichment: report,
	}
	result.Decision = p.determiner.Determine(ctx, enriched)
	p.processed.Add(1)

	if result.Decision.Empty() {
		p.skipped.Add(1)
		metrics.RecordEventProcessed(ResultSkipped, p.now().Sub(start))
		logging.Ctx(ctx).Info().
			Strs("reasons", reasonTexts(result.Decision)).
			Msg("Killmail not notified")
		return result, nil
	}

	for _, group := range groupByKind(result.Decision.Targets) {
		doc, err := p.formatter.Format(enriched, group.kind)
		if err != nil {
			result.FormatErrors = append(result.FormatErrors,
				p.dispatcher.RecordFormatError(ctx, km.ID, group.targets, err)...)
			continue
		}
		result.Deliveries = append(result.Deliveries, p.dispatcher.Dispatch(ctx, km.ID, doc, group.targets))
	}

	outcome := ResultNotified
	if len(result.Deliveries) == 0 {
		outcome = ResultFormatError
		p.formatErrors.Add(1)
	} else {
		p.notified.Add(1)
		if p.live != nil {
			p.live.BroadcastKillmail(enriched, result.Decision)
		}
	}
	metrics.RecordEventProcessed(outcome, p.now().Sub(start))

	logging.Ctx(ctx).Info().
		Int("targets", len(result.Decision.Targets)).
		Strs("reasons", reasonTexts(result.Decision)).
		Float64("enrichment_quality", report.Quality).
		Msg("Killmail dispatched")
	return result, nil
}

func (p *Pipeline) isStale(km *models.Killmail) bool {
	if p.cfg.MaxKillAge <= 0 || km.KillTime.IsZero() {
		return false
	}
	return p.now().Sub(km.KillTime) > p.cfg.MaxKillAge
}

// Stats returns a snapshot of the event counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Processed:    p.processed.Load(),
		Notified:     p.notified.Load(),
		Skipped:      p.skipped.Load(),
		Invalid:      p.invalid.Load(),
		Stale:        p.stale.Load(),
		FormatErrors: p.formatErrors.Load(),
		StoreErrors:  p.storeErrors.Load(),
	}
}

type kindGroup struct {
	kind    models.ChannelKind
	targets []models.Target
}

// groupByKind splits targets by channel kind in first-seen order, since each
// kind gets its own rendering.
func groupByKind(targets []models.Target) []kindGroup {
	var groups []kindGroup
	index := make(map[models.ChannelKind]int)
	for _, t := range targets {
		i, ok := index[t.Kind]
		if !ok {
			i = len(groups)
			index[t.Kind] = i
			groups = append(groups, kindGroup{kind: t.Kind})
		}
		groups[i].targets = append(groups[i].targets, t)
	}
	return groups
}

func reasonTexts(d models.Decision) []string {
	texts := make([]string, len(d.Reasons))
	for i, r := range d.Reasons {
		texts[i] = r.Text
	}
	return texts
}
