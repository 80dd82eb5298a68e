// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package feed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
)

const (
	// DefaultURL is the public zKillboard killstream.
	DefaultURL = "wss://zkillboard.com/websocket/"

	// DefaultSubscribeMessage subscribes to every kill.
	DefaultSubscribeMessage = `{"action":"sub","channel":"killstream"}`

	// CorrelationIDMetadataKey matches the key read by the pipeline consumer.
	CorrelationIDMetadataKey = "correlation_id"

	writeTimeout = 10 * time.Second
)

// Client streams killmails from a WebSocket endpoint onto a topic.
type Client struct {
	cfg       config.FeedConfig
	publisher message.Publisher
	topic     string
	dialer    *websocket.Dialer
	log       zerolog.Logger

	received   atomic.Int64
	reconnects atomic.Int64
	connected  atomic.Bool
}

// NewClient creates a feed client. Zero timing values fall back to
// 10s handshake, 90s read timeout, 30s pings and 1s..32s backoff.
func NewClient(cfg config.FeedConfig, publisher message.Publisher, topic string) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 90 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 32 * time.Second
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 1 << 20
	}
	return &Client{
		cfg:       cfg,
		publisher: publisher,
		topic:     topic,
		log:       logging.WithComponent("feed"),
		dialer: &websocket.Dialer{
			HandshakeTimeout:  cfg.HandshakeTimeout,
			EnableCompression: true,
		},
	}
}

// Run keeps a connection open until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	delay := c.cfg.InitialBackoff

	for {
		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			delay = c.cfg.InitialBackoff
		}

		c.reconnects.Add(1)
		metrics.FeedReconnects.Inc()
		c.log.Warn().Err(err).Dur("retry_in", delay).Str("url", c.cfg.URL).Msg("Killmail feed disconnected, reconnecting")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = nextBackoff(delay, c.cfg.MaxBackoff)
	}
}

// nextBackoff doubles d up to limit.
func nextBackoff(d, limit time.Duration) time.Duration {
	d *= 2
	if d > limit {
		return limit
	}
	return d
}

// session runs one connection until it fails or ctx is done. connected
// reports whether the handshake and subscription succeeded.
func (c *Client) session(ctx context.Context) (connected bool, err error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return false, fmt.Errorf("websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return false, fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	conn.SetReadLimit(c.cfg.MaxMessageBytes)
	if c.cfg.SubscribeMessage != "" {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(c.cfg.SubscribeMessage)); err != nil {
			return false, fmt.Errorf("send subscribe message: %w", err)
		}
	}

	extend := func() error { return conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)) }
	_ = extend()
	conn.SetPongHandler(func(string) error { return extend() })

	c.connected.Store(true)
	metrics.FeedConnected.Set(1)
	defer func() {
		c.connected.Store(false)
		metrics.FeedConnected.Set(0)
	}()
	c.log.Info().Str("url", c.cfg.URL).Msg("Killmail feed connected")

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Unblock ReadMessage on shutdown.
	go func() {
		<-sessionCtx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()
	go c.pingLoop(sessionCtx, conn, cancel)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true, fmt.Errorf("closed by server: %w", err)
			}
			return true, fmt.Errorf("read: %w", err)
		}
		_ = extend()

		if msgType != websocket.TextMessage {
			continue
		}
		c.publish(data)
	}
}

func (c *Client) publish(data []byte) {
	c.received.Add(1)
	metrics.FeedMessagesReceived.Inc()

	id := uuid.NewString()
	msg := message.NewMessage(id, data)
	msg.Metadata.Set(CorrelationIDMetadataKey, id[:8])

	if err := c.publisher.Publish(c.topic, msg); err != nil {
		c.log.Error().Err(err).Str("topic", c.topic).Msg("Failed to publish killmail to event bus")
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn, fail context.CancelFunc) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.log.Warn().Err(err).Msg("Killmail feed ping failed")
				}
				fail()
				return
			}
		}
	}
}

// Stats are cumulative feed counters.
type Stats struct {
	Connected  bool  `json:"connected"`
	Received   int64 `json:"received"`
	Reconnects int64 `json:"reconnects"`
}

// Stats returns a snapshot of the feed counters.
func (c *Client) Stats() Stats {
	return Stats{
		Connected:  c.connected.Load(),
		Received:   c.received.Load(),
		Reconnects: c.reconnects.Load(),
	}
}

// Serve implements suture.Service.
func (c *Client) Serve(ctx context.Context) error {
	return c.Run(ctx)
}

// String implements fmt.Stringer for supervision logs.
func (c *Client) String() string {
	return "killmail-feed"
}
