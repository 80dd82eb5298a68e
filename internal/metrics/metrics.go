// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest
	FeedMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "killfeed_feed_messages_received_total",
			Help: "Total number of raw messages received from the killmail feed",
		},
	)

	FeedConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "killfeed_feed_connected",
			Help: "Whether the killmail feed WebSocket is connected (1) or not (0)",
		},
	)

	FeedReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "killfeed_feed_reconnects_total",
			Help: "Total number of feed reconnect attempts",
		},
	)

	// Pipeline
	EventsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "killfeed_events_submitted_total",
			Help: "Total number of raw events accepted into the worker pool",
		},
	)

	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_events_rejected_total",
			Help: "Total number of events dropped before processing",
		},
		[]string{"reason"}, // queue_full, invalid_payload, decode_error, stale
	)

	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_events_processed_total",
			Help: "Total number of killmails that completed the pipeline",
		},
		[]string{"result"}, // notified, skipped, format_error
	)

	EventDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "killfeed_event_duration_seconds",
			Help:    "Time from canonicalization to dispatch for one killmail",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "killfeed_queue_depth",
			Help: "Current number of events waiting in the worker pool queue",
		},
	)

	// Enrichment
	EnrichmentLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_enrichment_lookups_total",
			Help: "Entity name lookups by kind and outcome",
		},
		[]string{"kind", "result"}, // cache_hit, resolved, not_found, failed
	)

	EnrichmentRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_enrichment_retries_total",
			Help: "Retried name-resolution calls by kind",
		},
		[]string{"kind"},
	)

	EnrichmentQuality = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "killfeed_enrichment_quality_ratio",
			Help:    "Fraction of entity references resolved per killmail",
			Buckets: []float64{0, .25, .5, .75, .9, 1},
		},
	)

	ESIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "killfeed_esi_request_duration_seconds",
			Help:    "Duration of name-resolution HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "status"},
	)

	EntityCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "killfeed_entity_cache_entries",
			Help: "Current number of cached entity names",
		},
	)

	// Routing
	Decisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_decisions_total",
			Help: "Routing decision reasons",
		},
		[]string{"reason"},
	)

	DedupErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "killfeed_dedup_errors_total",
			Help: "Deduplication store errors (treated as not-duplicate)",
		},
	)

	TrackingErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_tracking_errors_total",
			Help: "Tracking store errors by predicate",
		},
		[]string{"predicate"},
	)

	// Delivery
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_notifications_sent_total",
			Help: "Successfully delivered notifications by channel kind",
		},
		[]string{"kind"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_notifications_failed_total",
			Help: "Failed notifications by channel kind and failure class",
		},
		[]string{"kind", "class"},
	)

	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "killfeed_delivery_duration_seconds",
			Help:    "Duration of delivery calls to the messaging platform",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	DeliveryRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "killfeed_delivery_rate_limited_total",
			Help: "Responses with HTTP 429 from the messaging platform",
		},
	)

	// Persistence
	KillmailsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_killmails_stored_total",
			Help: "Killmail save calls by result",
		},
		[]string{"result"}, // stored, error
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_api_requests_total",
			Help: "HTTP API requests by method, route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "killfeed_api_request_duration_seconds",
			Help:    "HTTP API request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "killfeed_api_active_requests",
			Help: "HTTP API requests currently being served",
		},
	)

	// Live stream
	LiveClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "killfeed_live_clients",
			Help: "Connected live kill stream WebSocket clients",
		},
	)

	LiveMessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killfeed_live_messages_dropped_total",
			Help: "Live stream messages dropped",
		},
		[]string{"reason"}, // hub_full, client_slow
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "killfeed_app_info",
			Help: "Build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordEventProcessed records the terminal result of one killmail.
func RecordEventProcessed(result string, duration time.Duration) {
	EventsProcessed.WithLabelValues(result).Inc()
	EventDuration.Observe(duration.Seconds())
}

// RecordEventRejected records an event dropped before or during canonicalization.
func RecordEventRejected(reason string) {
	EventsRejected.WithLabelValues(reason).Inc()
}

// RecordLookup records one entity lookup outcome.
func RecordLookup(kind, result string) {
	EnrichmentLookups.WithLabelValues(kind, result).Inc()
}

// RecordESIRequest records one name-resolution HTTP call.
func RecordESIRequest(kind, status string, duration time.Duration) {
	ESIRequestDuration.WithLabelValues(kind, status).Observe(duration.Seconds())
}

// RecordDecision increments the counter for each reason text.
func RecordDecision(reasons ...string) {
	for _, r := range reasons {
		Decisions.WithLabelValues(r).Inc()
	}
}

// RecordDelivery records the result of one channel delivery.
func RecordDelivery(kind string, success bool, class string, duration time.Duration) {
	if duration > 0 {
		DeliveryDuration.WithLabelValues(kind).Observe(duration.Seconds())
	}
	if success {
		NotificationsSent.WithLabelValues(kind).Inc()
		return
	}
	NotificationsFailed.WithLabelValues(kind, class).Inc()
}

// RecordAPIRequest records one served HTTP request. route is the chi route
// pattern, not the raw path, to bound label cardinality.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}

// RecordStore records a persistence attempt.
func RecordStore(err error) {
	if err != nil {
		KillmailsStored.WithLabelValues("error").Inc()
		return
	}
	KillmailsStored.WithLabelValues("stored").Inc()
}
