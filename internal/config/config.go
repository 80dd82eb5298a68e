// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
//
// Loading order (LoadWithKoanf):
//  1. Defaults from defaultConfig
//  2. Optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Mapped environment variables
//
// Config is read-only after loading and safe for concurrent reads.
type Config struct {
	Logging       LoggingConfig       `koanf:"logging"`
	Server        ServerConfig        `koanf:"server"`
	Feed          FeedConfig          `koanf:"feed"`
	Bus           BusConfig           `koanf:"bus"`
	Pipeline      PipelineConfig      `koanf:"pipeline"`
	ESI           ESIConfig           `koanf:"esi"`
	Cache         CacheConfig         `koanf:"cache"`
	Dedup         DedupConfig         `koanf:"dedup"`
	Tracking      TrackingConfig      `koanf:"tracking"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Discord       DiscordConfig       `koanf:"discord"`
	Storage       StorageConfig       `koanf:"storage"`
	Supervisor    SupervisorConfig    `koanf:"supervisor"`
}

// LoggingConfig configures the global zerolog logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// FeedConfig configures the killmail WebSocket feed.
type FeedConfig struct {
	Enabled          bool          `koanf:"enabled"`
	URL              string        `koanf:"url"`
	SubscribeMessage string        `koanf:"subscribe_message"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout" validate:"gt=0"`
	ReadTimeout      time.Duration `koanf:"read_timeout" validate:"gt=0"`
	PingInterval     time.Duration `koanf:"ping_interval" validate:"gt=0"`
	InitialBackoff   time.Duration `koanf:"initial_backoff" validate:"gt=0"`
	MaxBackoff       time.Duration `koanf:"max_backoff" validate:"gt=0"`
	MaxMessageBytes  int64         `koanf:"max_message_bytes" validate:"min=1024"`
}

// BusConfig selects the Watermill pub/sub carrying raw payloads from the feed
// to the pipeline.
type BusConfig struct {
	Driver       string        `koanf:"driver" validate:"oneof=gochannel nats"`
	Topic        string        `koanf:"topic" validate:"required"`
	BufferSize   int64         `koanf:"buffer_size" validate:"min=0"`
	NATSURL      string        `koanf:"nats_url"`
	QueueGroup   string        `koanf:"queue_group"`
	CloseTimeout time.Duration `koanf:"close_timeout" validate:"gt=0"`
}

// PipelineConfig sizes the worker pool and bounds per-event work.
type PipelineConfig struct {
	Workers      int           `koanf:"workers" validate:"min=1,max=256"`
	QueueSize    int           `koanf:"queue_size" validate:"min=1"`
	Backpressure string        `koanf:"backpressure" validate:"oneof=block reject"`
	EventTimeout time.Duration `koanf:"event_timeout" validate:"gt=0"`
	MaxKillAge   time.Duration `koanf:"max_kill_age" validate:"min=0"`

	// DecisionTimeout bounds persistence and routing, which run after the
	// event deadline has stopped enrichment.
	DecisionTimeout time.Duration `koanf:"decision_timeout" validate:"gt=0"`
}

// BreakerConfig configures a gobreaker circuit breaker.
type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests" validate:"min=1"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout" validate:"gt=0"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"min=1"`
}

// ESIConfig configures the name-resolution client.
type ESIConfig struct {
	BaseURL           string        `koanf:"base_url" validate:"required"`
	UserAgent         string        `koanf:"user_agent" validate:"required"`
	RequestTimeout    time.Duration `koanf:"request_timeout" validate:"gt=0"`
	MaxAttempts       int           `koanf:"max_attempts" validate:"min=1,max=10"`
	BackoffBase       time.Duration `koanf:"backoff_base" validate:"gt=0"`
	SystemMaxAttempts int           `koanf:"system_max_attempts" validate:"min=1,max=10"`
	Breaker           BreakerConfig `koanf:"breaker"`
}

// CacheConfig holds entity cache lifetimes per kind.
type CacheConfig struct {
	SystemTTL       time.Duration `koanf:"system_ttl" validate:"gt=0"`
	ShipTypeTTL     time.Duration `koanf:"ship_type_ttl" validate:"gt=0"`
	CharacterTTL    time.Duration `koanf:"character_ttl" validate:"gt=0"`
	CorporationTTL  time.Duration `koanf:"corporation_ttl" validate:"gt=0"`
	AllianceTTL     time.Duration `koanf:"alliance_ttl" validate:"gt=0"`
	CleanupInterval time.Duration `koanf:"cleanup_interval" validate:"gt=0"`
}

// DedupConfig selects the deduplication backend.
type DedupConfig struct {
	Driver        string        `koanf:"driver" validate:"oneof=memory redis"`
	TTL           time.Duration `koanf:"ttl" validate:"gt=0"`
	Capacity      int           `koanf:"capacity" validate:"min=1"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db" validate:"min=0"`
	KeyPrefix     string        `koanf:"key_prefix"`
}

// TrackingConfig seeds the tracking store.
type TrackingConfig struct {
	Systems              []int64 `koanf:"systems"`
	Characters           []int64 `koanf:"characters"`
	ExcludedCorporations []int64 `koanf:"excluded_corporations"`
}

// NotificationsConfig holds the feature gates used by the determiner.
type NotificationsConfig struct {
	Enabled              bool   `koanf:"enabled"`
	KillsEnabled         bool   `koanf:"kills_enabled"`
	WormholeOnly         bool   `koanf:"wormhole_only"`
	CorporationExclusion bool   `koanf:"corporation_exclusion"`
	DedupScope           string `koanf:"dedup_scope" validate:"required"`
}

// DiscordConfig configures delivery.
type DiscordConfig struct {
	// Mode is bot (channel messages through the bot API), webhook (one webhook
	// URL per channel) or log (write documents to the log, no network).
	Mode                string            `koanf:"mode" validate:"oneof=bot webhook log"`
	BotToken            string            `koanf:"bot_token"`
	APIBaseURL          string            `koanf:"api_base_url" validate:"required"`
	ChannelID           string            `koanf:"channel_id"`
	SystemChannelID     string            `koanf:"system_channel_id"`
	CharacterChannelID  string            `koanf:"character_channel_id"`
	Webhooks            map[string]string `koanf:"webhooks"`
	RequestTimeout      time.Duration     `koanf:"request_timeout" validate:"gt=0"`
	DeliveryTimeout     time.Duration     `koanf:"delivery_timeout" validate:"gt=0"`
	RateLimitPerSecond  float64           `koanf:"rate_limit_per_second" validate:"gt=0"`
	RateLimitBurst      int               `koanf:"rate_limit_burst" validate:"min=1"`
	MaxTransportRetries int               `koanf:"max_transport_retries" validate:"min=0,max=5"`
	Breaker             BreakerConfig     `koanf:"breaker"`
}

// StorageConfig configures killmail persistence.
type StorageConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	Retention  time.Duration `koanf:"retention" validate:"gt=0"`
	GCInterval time.Duration `koanf:"gc_interval" validate:"gt=0"`
}

// SupervisorConfig tunes suture restart behaviour.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gt=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// ListenAddr returns host:port for the HTTP server.
func (s ServerConfig) ListenAddr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
