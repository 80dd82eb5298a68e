// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/models"
)

// ErrUnknownChannel is returned when no route exists for a channel id.
var ErrUnknownChannel = errors.New("no delivery route for channel")

// Deliverer sends one document to one channel.
type Deliverer interface {
	Deliver(ctx context.Context, channelID string, doc *models.NotificationDocument) error
}

// New builds the deliverer selected by cfg.Mode.
func New(cfg config.DiscordConfig) (Deliverer, error) {
	switch cfg.Mode {
	case "bot":
		return NewDiscordBot(cfg), nil
	case "webhook":
		return NewDiscordWebhook(cfg), nil
	case "log":
		return NewLog(), nil
	default:
		return nil, fmt.Errorf("unknown discord mode %q", cfg.Mode)
	}
}

// DiscordBot posts messages through the bot API.
type DiscordBot struct {
	baseURL string
	t       *transport
}

// NewDiscordBot creates a bot-token deliverer.
func NewDiscordBot(cfg config.DiscordConfig) *DiscordBot {
	headers := http.Header{}
	headers.Set("Authorization", "Bot "+cfg.BotToken)
	return &DiscordBot{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		t:       newTransport("discord-bot", cfg, headers),
	}
}

// Deliver implements Deliverer.
func (b *DiscordBot) Deliver(ctx context.Context, channelID string, doc *models.NotificationDocument) error {
	if channelID == "" {
		return ErrUnknownChannel
	}
	url := b.baseURL + "/channels/" + channelID + "/messages"
	return b.t.post(ctx, url, MessagePayload{Embeds: []Embed{ToEmbed(doc)}})
}

// DiscordWebhook posts messages through per-channel webhooks.
type DiscordWebhook struct {
	webhooks map[string]string
	t        *transport
}

// NewDiscordWebhook creates a webhook deliverer. cfg.Webhooks maps channel
// ids to webhook URLs.
func NewDiscordWebhook(cfg config.DiscordConfig) *DiscordWebhook {
	hooks := make(map[string]string, len(cfg.Webhooks))
	for ch, url := range cfg.Webhooks {
		hooks[ch] = url
	}
	return &DiscordWebhook{
		webhooks: hooks,
		t:        newTransport("discord-webhook", cfg, nil),
	}
}

// Deliver implements Deliverer.
func (w *DiscordWebhook) Deliver(ctx context.Context, channelID string, doc *models.NotificationDocument) error {
	url, ok := w.webhooks[channelID]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownChannel, channelID)
	}
	return w.t.post(ctx, url, MessagePayload{Username: "Killfeed", Embeds: []Embed{ToEmbed(doc)}})
}

// Log writes documents to the log instead of sending them.
type Log struct{}

// NewLog creates a dry-run deliverer.
func NewLog() *Log {
	return &Log{}
}

// Deliver implements Deliverer.
func (Log) Deliver(ctx context.Context, channelID string, doc *models.NotificationDocument) error {
	embed, err := json.Marshal(ToEmbed(doc))
	if err != nil {
		return fmt.Errorf("failed to marshal embed: %w", err)
	}
	logging.Ctx(ctx).Info().
		Str("channel_id", channelID).
		RawJSON("embed", embed).
		Msg("Notification (dry run)")
	return nil
}
