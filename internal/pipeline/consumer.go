// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/killfeed/internal/canonical"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
)

// CorrelationIDMetadataKey carries the correlation ID assigned by the feed.
const CorrelationIDMetadataKey = "correlation_id"

// Submitter accepts decoded payloads.
type Submitter interface {
	Submit(ctx context.Context, raw map[string]interface{}) error
}

// ConsumerConfig configures the bus consumer.
type ConsumerConfig struct {
	Topic        string
	CloseTimeout time.Duration
}

// Consumer moves raw payloads from the event bus into the worker pool.
type Consumer struct {
	subscriber message.Subscriber
	submitter  Submitter
	logger     watermill.LoggerAdapter
	cfg        ConsumerConfig
}

// NewConsumer creates a Consumer. The subscriber's lifecycle stays with the
// caller; stopping the consumer does not close it.
func NewConsumer(subscriber message.Subscriber, submitter Submitter, logger watermill.LoggerAdapter, cfg ConsumerConfig) (*Consumer, error) {
	if subscriber == nil {
		return nil, errors.New("consumer requires a subscriber")
	}
	if cfg.Topic == "" {
		return nil, errors.New("consumer requires a topic")
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Consumer{subscriber: subscriber, submitter: submitter, logger: logger, cfg: cfg}, nil
}

// Serve runs a Watermill router until ctx is done. A router cannot be reused
// after it stops, so every call builds a new one.
func (c *Consumer) Serve(ctx context.Context) error {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: c.cfg.CloseTimeout}, c.logger)
	if err != nil {
		return fmt.Errorf("create watermill router: %w", err)
	}

	// Outer to inner: ackAlways turns any handler error, including a
	// recovered panic, into an ack.
	router.AddMiddleware(ackAlways, middleware.Recoverer)

	router.AddConsumerHandler(
		"killmail_consumer",
		c.cfg.Topic,
		nonClosingSubscriber{c.subscriber},
		func(msg *message.Message) error {
			return c.handle(ctx, msg)
		},
	)

	logging.Info().Str("topic", c.cfg.Topic).Msg("Killmail consumer started")
	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("consumer router: %w", err)
	}
	return ctx.Err()
}

func (c *Consumer) handle(ctx context.Context, msg *message.Message) error {
	correlationID := msg.Metadata.Get(CorrelationIDMetadataKey)
	if correlationID == "" {
		correlationID = msg.UUID
	}
	ctx = logging.ContextWithCorrelationID(ctx, correlationID)

	raw, err := canonical.DecodeJSON(msg.Payload)
	if err != nil {
		metrics.RecordEventRejected("decode_error")
		logging.Ctx(ctx).Warn().
			Str("message_uuid", msg.UUID).
			Int("bytes", len(msg.Payload)).
			Err(err).
			Msg("Failed to decode killmail message")
		return nil
	}

	if err := c.submitter.Submit(ctx, raw); err != nil && !errors.Is(err, ErrQueueFull) {
		logging.Ctx(ctx).Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Failed to submit killmail")
	}
	return nil
}

// String implements fmt.Stringer for supervision logs.
func (c *Consumer) String() string {
	return "killmail-consumer"
}

// ackAlways acknowledges every message regardless of the handler result.
// Redelivering a half-processed killmail could notify twice.
func ackAlways(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		produced, err := h(msg)
		if err != nil {
			logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Killmail handler failed, message acknowledged")
		}
		return produced, nil
	}
}

// nonClosingSubscriber keeps the router from closing the shared bus when it
// stops.
type nonClosingSubscriber struct {
	message.Subscriber
}

func (nonClosingSubscriber) Close() error { return nil }
