// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Package main is the entry point for killfeed.
//
// killfeed subscribes to the zKillboard killstream, resolves entity names
// through ESI, decides which Discord channels care about each kill and posts
// an embed to each of them.
//
// Components are built in order:
//
//  1. Configuration (Koanf v2: defaults, config.yaml, KILLFEED_* env vars)
//  2. Event bus (Watermill gochannel, or NATS with -tags nats)
//  3. Stores: dedup (memory or Redis), tracking, killmail storage (BadgerDB)
//  4. ESI resolver behind a circuit breaker, entity cache, enricher
//  5. Determiner, formatter, Discord deliverer, dispatcher
//  6. Pipeline, worker pool, bus consumer, feed client
//  7. Live WebSocket hub and HTTP API
//
// Long-lived components run under a suture supervisor tree. On SIGINT or
// SIGTERM the tree stops, in-flight deliveries drain and stores close.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/killfeed/internal/api"
	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/dedup"
	"github.com/tomtom215/killfeed/internal/delivery"
	"github.com/tomtom215/killfeed/internal/determiner"
	"github.com/tomtom215/killfeed/internal/dispatcher"
	"github.com/tomtom215/killfeed/internal/enrichment"
	"github.com/tomtom215/killfeed/internal/esi"
	"github.com/tomtom215/killfeed/internal/eventbus"
	"github.com/tomtom215/killfeed/internal/feed"
	"github.com/tomtom215/killfeed/internal/formatter"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
	"github.com/tomtom215/killfeed/internal/pipeline"
	"github.com/tomtom215/killfeed/internal/storage"
	"github.com/tomtom215/killfeed/internal/supervisor"
	"github.com/tomtom215/killfeed/internal/supervisor/services"
	"github.com/tomtom215/killfeed/internal/tracking"
	"github.com/tomtom215/killfeed/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // sequential wiring
func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().
		Str("version", version).
		Str("bus_driver", cfg.Bus.Driver).
		Str("dedup_driver", cfg.Dedup.Driver).
		Str("discord_mode", cfg.Discord.Mode).
		Int("workers", cfg.Pipeline.Workers).
		Bool("storage_enabled", cfg.Storage.Enabled).
		Msg("Starting killfeed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	busLogger := logging.NewWatermillAdapter()
	publisher, subscriber, err := eventbus.New(cfg.Bus, busLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create event bus")
	}
	defer closeBus(publisher, subscriber)

	dedupStore, closeDedup, err := dedup.New(ctx, cfg.Dedup)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create dedup store")
	}
	defer func() {
		if err := closeDedup(); err != nil {
			logging.Err(err).Msg("Error closing dedup store")
		}
	}()

	trackingStore := tracking.NewMemoryStore(cfg.Tracking)

	var killmailStore *storage.KillmailStore
	if cfg.Storage.Enabled {
		killmailStore, err = storage.Open(cfg.Storage)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open killmail storage")
		}
		defer func() {
			if err := killmailStore.Close(); err != nil {
				logging.Err(err).Msg("Error closing killmail storage")
			}
		}()
	}

	resolver := esi.NewBreakerResolver(esi.NewClient(cfg.ESI), cfg.ESI.Breaker)
	entityCache := enrichment.NewEntityCache(cfg.Cache)
	enricher := enrichment.New(resolver, entityCache, enrichment.ConfigFromESI(cfg.ESI))

	deliverer, err := delivery.New(cfg.Discord)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create Discord deliverer")
	}
	disp := dispatcher.New(deliverer, cfg.Discord.DeliveryTimeout)

	var store pipeline.Store
	if killmailStore != nil {
		store = killmailStore
	}
	pipe := pipeline.New(
		enricher,
		determiner.New(determiner.ConfigFrom(cfg), trackingStore, dedupStore),
		formatter.New(),
		disp,
		store,
		pipeline.ConfigFrom(cfg.Pipeline),
	)

	hub := websocket.NewHub()
	pipe.WithBroadcaster(hub)

	pool, err := pipeline.NewPool(pipe, pipeline.PoolConfigFrom(cfg.Pipeline))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create worker pool")
	}

	consumer, err := pipeline.NewConsumer(subscriber, pool, busLogger, pipeline.ConsumerConfig{
		Topic:        eventbus.Topic(cfg.Bus),
		CloseTimeout: cfg.Bus.CloseTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create bus consumer")
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Ingest layer
	var feedClient *feed.Client
	if cfg.Feed.Enabled {
		feedClient = feed.NewClient(cfg.Feed, publisher, eventbus.Topic(cfg.Bus))
		tree.AddIngestService(feedClient)
	} else {
		logging.Info().Msg("Feed disabled; only externally published events will be processed")
	}
	tree.AddIngestService(consumer)

	// Processing layer
	tree.AddProcessingService(pool)
	tree.AddProcessingService(services.NewMaintenanceService(cfg.Cache.CleanupInterval,
		maintenanceTasks(entityCache, dedupStore, pool)...))
	if killmailStore != nil {
		tree.AddProcessingService(killmailStore)
	}
	tree.AddProcessingService(hub)

	// API layer
	if cfg.Server.Enabled {
		deps := api.Dependencies{
			Version:     version,
			Health:      disp.Health(),
			Tracking:    trackingStore,
			Pipeline:    pipe,
			Pool:        pool,
			EntityCache: entityCache,
			Live:        hub,
		}
		if feedClient != nil {
			deps.Feed = feedClient
		}
		if killmailStore != nil {
			deps.Killmails = killmailStore
		}
		server := api.NewServer(cfg.Server, api.NewHandler(deps))
		tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Discord.DeliveryTimeout)
	defer drainCancel()
	if err := disp.Drain(drainCtx); err != nil {
		logging.Warn().Err(err).Msg("In-flight deliveries did not finish before shutdown")
	}

	logging.Info().Msg("killfeed stopped")
}

func maintenanceTasks(entityCache *enrichment.EntityCache, dedupStore dedup.Store, pool *pipeline.Pool) []services.Task {
	tasks := []services.Task{
		{
			Name: "entity-cache",
			Run: func(ctx context.Context) {
				if removed := entityCache.Cleanup(); removed > 0 {
					logging.Ctx(ctx).Debug().Int("removed", removed).Msg("Expired entity cache entries")
				}
				metrics.EntityCacheEntries.Set(float64(entityCache.Len()))
			},
		},
		{
			Name: "queue-depth",
			Run: func(context.Context) {
				metrics.QueueDepth.Set(float64(pool.QueueDepth()))
			},
		},
	}

	if mem, ok := dedupStore.(*dedup.MemoryStore); ok {
		tasks = append(tasks, services.Task{
			Name: "dedup-window",
			Run: func(ctx context.Context) {
				if removed := mem.Cleanup(); removed > 0 {
					logging.Ctx(ctx).Debug().Int("removed", removed).Int("remaining", mem.Len()).Msg("Expired dedup keys")
				}
			},
		})
	}
	return tasks
}

func closeBus(publisher message.Publisher, subscriber message.Subscriber) {
	if err := publisher.Close(); err != nil {
		logging.Err(err).Msg("Error closing event bus publisher")
	}
	// gochannel uses one value for both sides.
	if any(subscriber) == any(publisher) {
		return
	}
	if err := subscriber.Close(); err != nil {
		logging.Err(err).Msg("Error closing event bus subscriber")
	}
}
