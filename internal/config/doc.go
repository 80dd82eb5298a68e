// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

/*
Package config loads Killfeed configuration with koanf.

Sources, lowest priority first:

  - built-in defaults (defaultConfig)
  - a YAML file at CONFIG_PATH, ./config.yaml or /etc/killfeed/config.yaml
  - environment variables listed in envMappings

Commonly set variables:

	DISCORD_BOT_TOKEN              bot token (mode=bot)
	DISCORD_CHANNEL_ID             default channel, required
	DISCORD_SYSTEM_CHANNEL_ID      dedicated channel for tracked systems
	DISCORD_CHARACTER_CHANNEL_ID   dedicated channel for tracked characters
	TRACKED_SYSTEMS                comma separated system IDs
	TRACKED_CHARACTERS             comma separated character IDs
	EXCLUDED_CORPORATIONS          comma separated corporation IDs
	WORMHOLE_ONLY                  only post wormhole kills to the system channel
	PIPELINE_BACKPRESSURE          block or reject when the queue is full
	DEDUP_DRIVER                   memory or redis

Per-channel webhook URLs (discord.webhooks) can only be set in the YAML file.
*/
package config
