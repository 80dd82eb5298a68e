// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/killfeed/config.yaml",
	"/etc/killfeed/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
		},
		Feed: FeedConfig{
			Enabled:          true,
			URL:              "wss://zkillboard.com/websocket/",
			SubscribeMessage: `{"action":"sub","channel":"killstream"}`,
			HandshakeTimeout: 10 * time.Second,
			ReadTimeout:      90 * time.Second,
			PingInterval:     30 * time.Second,
			InitialBackoff:   time.Second,
			MaxBackoff:       32 * time.Second,
			MaxMessageBytes:  1 << 20,
		},
		Bus: BusConfig{
			Driver:       "gochannel",
			Topic:        "killmails.raw",
			BufferSize:   256,
			NATSURL:      "nats://127.0.0.1:4222",
			QueueGroup:   "killfeed",
			CloseTimeout: 10 * time.Second,
		},
		Pipeline: PipelineConfig{
			Workers:         4,
			QueueSize:       100,
			Backpressure:    "block",
			EventTimeout:    60 * time.Second,
			DecisionTimeout: 10 * time.Second,
			MaxKillAge:      time.Hour,
		},
		ESI: ESIConfig{
			BaseURL:           "https://esi.evetech.net/latest",
			UserAgent:         "killfeed (+https://github.com/tomtom215/killfeed)",
			RequestTimeout:    5 * time.Second,
			MaxAttempts:       3,
			BackoffBase:       100 * time.Millisecond,
			SystemMaxAttempts: 5,
			Breaker: BreakerConfig{
				MaxRequests:      3,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
				FailureThreshold: 10,
			},
		},
		Cache: CacheConfig{
			SystemTTL:       30 * 24 * time.Hour,
			ShipTypeTTL:     30 * 24 * time.Hour,
			CharacterTTL:    7 * 24 * time.Hour,
			CorporationTTL:  24 * time.Hour,
			AllianceTTL:     24 * time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		Dedup: DedupConfig{
			Driver:    "memory",
			TTL:       time.Hour,
			Capacity:  50000,
			RedisAddr: "127.0.0.1:6379",
			KeyPrefix: "killfeed:dedup:",
		},
		Notifications: NotificationsConfig{
			Enabled:      true,
			KillsEnabled: true,
			DedupScope:   "kill",
		},
		Discord: DiscordConfig{
			Mode:                "bot",
			APIBaseURL:          "https://discord.com/api/v10",
			RequestTimeout:      10 * time.Second,
			DeliveryTimeout:     15 * time.Second,
			RateLimitPerSecond:  5,
			RateLimitBurst:      5,
			MaxTransportRetries: 2,
			Breaker: BreakerConfig{
				MaxRequests:      1,
				Interval:         time.Minute,
				Timeout:          time.Minute,
				FailureThreshold: 5,
			},
		},
		Storage: StorageConfig{
			Enabled:    true,
			Path:       "/data/killmails",
			Retention:  7 * 24 * time.Hour,
			GCInterval: 10 * time.Minute,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// LoadWithKoanf loads configuration from defaults, an optional YAML file and
// environment variables, in increasing priority, then validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as a single string.
var sliceConfigPaths = []string{
	"tracking.systems",
	"tracking.characters",
	"tracking.excluded_corporations",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"http_enabled":      "server.enabled",
	"http_host":         "server.host",
	"http_port":         "server.port",
	"rate_limit_reqs":   "server.rate_limit_reqs",
	"rate_limit_window": "server.rate_limit_window",

	"feed_enabled":           "feed.enabled",
	"feed_url":               "feed.url",
	"feed_subscribe_message": "feed.subscribe_message",
	"feed_max_backoff":       "feed.max_backoff",

	"bus_driver":       "bus.driver",
	"bus_topic":        "bus.topic",
	"nats_url":         "bus.nats_url",
	"nats_queue_group": "bus.queue_group",

	"pipeline_workers":          "pipeline.workers",
	"pipeline_queue_size":       "pipeline.queue_size",
	"pipeline_backpressure":     "pipeline.backpressure",
	"pipeline_event_timeout":    "pipeline.event_timeout",
	"pipeline_decision_timeout": "pipeline.decision_timeout",
	"max_kill_age":              "pipeline.max_kill_age",

	"esi_base_url":        "esi.base_url",
	"esi_user_agent":      "esi.user_agent",
	"esi_request_timeout": "esi.request_timeout",
	"esi_max_attempts":    "esi.max_attempts",

	"cache_system_ttl":      "cache.system_ttl",
	"cache_ship_type_ttl":   "cache.ship_type_ttl",
	"cache_character_ttl":   "cache.character_ttl",
	"cache_corporation_ttl": "cache.corporation_ttl",
	"cache_alliance_ttl":    "cache.alliance_ttl",

	"dedup_driver":   "dedup.driver",
	"dedup_ttl":      "dedup.ttl",
	"redis_addr":     "dedup.redis_addr",
	"redis_password": "dedup.redis_password",
	"redis_db":       "dedup.redis_db",

	"tracked_systems":       "tracking.systems",
	"tracked_characters":    "tracking.characters",
	"excluded_corporations": "tracking.excluded_corporations",

	"notifications_enabled":      "notifications.enabled",
	"kill_notifications_enabled": "notifications.kills_enabled",
	"wormhole_only":              "notifications.wormhole_only",
	"corporation_exclusion":      "notifications.corporation_exclusion",

	"discord_mode":                 "discord.mode",
	"discord_bot_token":            "discord.bot_token",
	"discord_api_base_url":         "discord.api_base_url",
	"discord_channel_id":           "discord.channel_id",
	"discord_system_channel_id":    "discord.system_channel_id",
	"discord_character_channel_id": "discord.character_channel_id",

	"storage_enabled":   "storage.enabled",
	"storage_path":      "storage.path",
	"storage_retention": "storage.retention",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
