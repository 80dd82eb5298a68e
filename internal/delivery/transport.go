// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/killfeed/internal/breaker"
	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/metrics"
)

const (
	maxErrorBodySize  = 1024
	maxRetryAfterWait = 30 * time.Second
)

// StatusError is a non-2xx response from Discord.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("discord returned %d: %s", e.StatusCode, e.Body)
}

// Permanent reports whether the request cannot succeed by repeating it
// (bad payload, missing permissions, unknown channel).
func (e *StatusError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

// transport posts JSON to Discord under a shared rate limiter and circuit
// breaker, honouring 429 retry_after hints up to maxRetries times.
type transport struct {
	client     *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[struct{}]
	maxRetries int
	headers    http.Header
	sleep      func(ctx context.Context, d time.Duration) error
}

func newTransport(name string, cfg config.DiscordConfig, headers http.Header) *transport {
	settings := breaker.FromConfig(name, cfg.Breaker)
	settings.IsSuccessful = func(err error) bool {
		var statusErr *StatusError
		return err == nil || (errors.As(err, &statusErr) && statusErr.Permanent())
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	perSecond := cfg.RateLimitPerSecond
	if perSecond <= 0 {
		perSecond = 5
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	return &transport{
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
		cb:         breaker.New[struct{}](settings),
		maxRetries: cfg.MaxTransportRetries,
		headers:    headers,
		sleep:      sleepContext,
	}
}

// post sends payload to url through the breaker.
func (t *transport) post(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	_, err = breaker.Execute(t.cb, func() (struct{}, error) {
		return struct{}{}, t.send(ctx, url, body)
	})
	return err
}

func (t *transport) send(ctx context.Context, url string, body []byte) error {
	for attempt := 0; ; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range t.headers {
			req.Header[k] = v
		}

		resp, err := t.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= t.maxRetries {
			return statusErr
		}

		wait := retryAfter(resp.Header, respBody)
		metrics.DeliveryRateLimited.Inc()
		logging.Ctx(ctx).Warn().
			Int("attempt", attempt+1).
			Int("max_retries", t.maxRetries).
			Dur("retry_after", wait).
			Msg("Discord rate limited, waiting")
		if err := t.sleep(ctx, wait); err != nil {
			return statusErr
		}
	}
}

// retryAfter reads Discord's retry hint from the JSON body (seconds, may be
// fractional) or the Retry-After header, capped at maxRetryAfterWait.
func retryAfter(header http.Header, body []byte) time.Duration {
	var hint struct {
		RetryAfter float64 `json:"retry_after"`
	}
	wait := time.Second
	if err := json.Unmarshal(body, &hint); err == nil && hint.RetryAfter > 0 {
		wait = time.Duration(hint.RetryAfter * float64(time.Second))
	} else if s := header.Get("Retry-After"); s != "" {
		if secs, err := strconv.ParseFloat(s, 64); err == nil && secs > 0 {
			wait = time.Duration(secs * float64(time.Second))
		}
	}
	if wait > maxRetryAfterWait {
		wait = maxRetryAfterWait
	}
	return wait
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
