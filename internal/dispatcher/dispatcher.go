// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
	"github.com/tomtom215/killfeed/internal/models"
)

// DefaultDeliveryTimeout bounds a single channel delivery.
const DefaultDeliveryTimeout = 15 * time.Second

// Deliverer sends one document to one channel.
type Deliverer interface {
	Deliver(ctx context.Context, channelID string, doc *models.NotificationDocument) error
}

// Dispatcher fans a document out to its target channels. Each channel is
// delivered independently; a failure on one never affects another.
type Dispatcher struct {
	deliverer Deliverer
	timeout   time.Duration
	health    *Health
	now       func() time.Time

	wg sync.WaitGroup
}

// New creates a Dispatcher. A non-positive timeout uses DefaultDeliveryTimeout.
func New(deliverer Deliverer, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	return &Dispatcher{
		deliverer: deliverer,
		timeout:   timeout,
		health:    NewHealth(),
		now:       time.Now,
	}
}

// Health returns the per-channel delivery health tracker.
func (d *Dispatcher) Health() *Health {
	return d.health
}

// Delivery is the pending result of one Dispatch call.
type Delivery struct {
	done     chan struct{}
	outcomes []models.Outcome
}

// Wait blocks until every channel delivery has finished and returns the
// outcomes in target order.
func (dl *Delivery) Wait() []models.Outcome {
	<-dl.done
	return dl.outcomes
}

// Done is closed once every channel delivery has finished.
func (dl *Delivery) Done() <-chan struct{} {
	return dl.done
}

// Dispatch starts one delivery per target and returns without waiting.
// Deliveries run on a context detached from ctx's cancellation so an event
// deadline does not abort notifications already handed off; each carries its
// own timeout instead.
func (d *Dispatcher) Dispatch(ctx context.Context, killmailID int64, doc *models.NotificationDocument, targets []models.Target) *Delivery {
	dl := &Delivery{
		done:     make(chan struct{}),
		outcomes: make([]models.Outcome, len(targets)),
	}
	if len(targets) == 0 {
		close(dl.done)
		return dl
	}

	base := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(len(targets))
	d.wg.Add(len(targets))
	for i, target := range targets {
		go func(i int, target models.Target) {
			defer d.wg.Done()
			defer wg.Done()
			dl.outcomes[i] = d.deliver(base, killmailID, doc, target)
		}(i, target)
	}

	go func() {
		wg.Wait()
		close(dl.done)
	}()
	return dl
}

func (d *Dispatcher) deliver(ctx context.Context, killmailID int64, doc *models.NotificationDocument, target models.Target) models.Outcome {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := d.now()
	err := d.deliverer.Deliver(ctx, target.ChannelID, doc)
	elapsed := d.now().Sub(start)

	outcome := models.Outcome{
		ChannelID:  target.ChannelID,
		Kind:       target.Kind,
		KillmailID: killmailID,
		Duration:   elapsed,
		Timestamp:  d.now().UTC(),
	}

	if err != nil {
		outcome.Class = models.OutcomeDeliveryError
		outcome.Reason = err.Error()
		logging.Ctx(ctx).Error().Err(err).
			Int64("killmail_id", killmailID).
			Str("channel_id", target.ChannelID).
			Str("kind", string(target.Kind)).
			Msg("Notification delivery failed")
	} else {
		outcome.Success = true
		outcome.Class = models.OutcomeOK
		logging.Ctx(ctx).Info().
			Int64("killmail_id", killmailID).
			Str("channel_id", target.ChannelID).
			Str("kind", string(target.Kind)).
			Dur("duration", elapsed).
			Msg("Notification delivered")
	}

	metrics.RecordDelivery(string(target.Kind), outcome.Success, string(outcome.Class), elapsed)
	d.health.Record(outcome)
	return outcome
}

// RecordFormatError records a format_error outcome for every target of a
// killmail that could not be rendered. Nothing is delivered.
func (d *Dispatcher) RecordFormatError(ctx context.Context, killmailID int64, targets []models.Target, err error) []models.Outcome {
	outcomes := make([]models.Outcome, 0, len(targets))
	for _, target := range targets {
		outcome := models.Outcome{
			ChannelID:  target.ChannelID,
			Kind:       target.Kind,
			KillmailID: killmailID,
			Class:      models.OutcomeFormatError,
			Reason:     err.Error(),
			Timestamp:  d.now().UTC(),
		}
		metrics.RecordDelivery(string(target.Kind), false, string(outcome.Class), 0)
		d.health.Record(outcome)
		outcomes = append(outcomes, outcome)
	}
	logging.Ctx(ctx).Error().Err(err).
		Int64("killmail_id", killmailID).
		Int("targets", len(targets)).
		Msg("Failed to format notification")
	return outcomes
}

// Drain waits for in-flight deliveries, giving up when ctx is done.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
