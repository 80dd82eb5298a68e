// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package config

import (
	"fmt"

	"github.com/tomtom215/killfeed/internal/validation"
)

// Validate runs struct-tag rules first, then the cross-field checks tags
// cannot express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	checks := []func() error{
		c.validateFeed,
		c.validateBus,
		c.validateESI,
		c.validateDedup,
		c.validateDiscord,
		c.validateStorage,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateFeed() error {
	if !c.Feed.Enabled {
		return nil
	}
	if err := validateWebSocketURL(c.Feed.URL); err != nil {
		return fmt.Errorf("FEED_URL is invalid: %w", err)
	}
	if c.Feed.InitialBackoff > c.Feed.MaxBackoff {
		return fmt.Errorf("feed.initial_backoff (%s) must not exceed feed.max_backoff (%s)",
			c.Feed.InitialBackoff, c.Feed.MaxBackoff)
	}
	return nil
}

func (c *Config) validateBus() error {
	if c.Bus.Driver != "nats" {
		return nil
	}
	if err := validateNATSURL(c.Bus.NATSURL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	return nil
}

func (c *Config) validateESI() error {
	return validateHTTPURL(c.ESI.BaseURL, "ESI_BASE_URL")
}

func (c *Config) validateDedup() error {
	if c.Dedup.Driver == "redis" && c.Dedup.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when DEDUP_DRIVER=redis")
	}
	return nil
}

func (c *Config) validateDiscord() error {
	d := c.Discord
	if err := validateHTTPURL(d.APIBaseURL, "DISCORD_API_BASE_URL"); err != nil {
		return err
	}

	if c.Notifications.Enabled && d.ChannelID == "" {
		return fmt.Errorf("DISCORD_CHANNEL_ID is required when notifications are enabled")
	}

	channels := map[string]string{
		"DISCORD_CHANNEL_ID":           d.ChannelID,
		"DISCORD_SYSTEM_CHANNEL_ID":    d.SystemChannelID,
		"DISCORD_CHARACTER_CHANNEL_ID": d.CharacterChannelID,
	}

	switch d.Mode {
	case "bot":
		if c.Notifications.Enabled && d.BotToken == "" {
			return fmt.Errorf("DISCORD_BOT_TOKEN is required when DISCORD_MODE=bot")
		}
		for name, id := range channels {
			if id != "" && !validation.IsSnowflake(id) {
				return fmt.Errorf("%s must be a Discord channel ID, got %q", name, id)
			}
		}
	case "webhook":
		for name, id := range channels {
			if id == "" {
				continue
			}
			hook, ok := d.Webhooks[id]
			if !ok {
				return fmt.Errorf("%s %q has no entry in discord.webhooks", name, id)
			}
			if err := validateWebhookURL(hook); err != nil {
				return fmt.Errorf("discord.webhooks[%s] is invalid: %w", id, err)
			}
		}
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.Enabled && !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("STORAGE_PATH is required when storage is enabled")
	}
	return nil
}
