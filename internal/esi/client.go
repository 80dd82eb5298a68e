// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package esi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/killfeed/internal/breaker"
	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/metrics"
	"github.com/tomtom215/killfeed/internal/models"
)

// DefaultBaseURL is the public ESI endpoint.
const DefaultBaseURL = "https://esi.evetech.net/latest"

const maxErrorBodySize = 4 * 1024

var (
	// ErrNotFound is returned for ids ESI does not know. It is permanent.
	ErrNotFound = errors.New("entity not found")

	// ErrMalformedResponse is returned when a 2xx body carries no usable name.
	ErrMalformedResponse = errors.New("malformed ESI response")

	// ErrUnsupportedKind is returned for entity kinds without an ESI endpoint.
	ErrUnsupportedKind = errors.New("unsupported entity kind")
)

// StatusError describes a non-2xx, non-404 response.
type StatusError struct {
	Kind       models.EntityKind
	ID         int64
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ESI %s %d: HTTP %d: %s", e.Kind, e.ID, e.StatusCode, e.Body)
}

// Resolver maps an entity id to its display name.
type Resolver interface {
	Resolve(ctx context.Context, kind models.EntityKind, id int64) (string, error)
}

// Client calls the ESI REST API. Safe for concurrent use.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates an ESI client from configuration.
func NewClient(cfg config.ESIConfig) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    base,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func endpoint(kind models.EntityKind, id int64) (string, error) {
	var prefix string
	switch kind {
	case models.EntityCharacter:
		prefix = "/characters/"
	case models.EntityCorporation:
		prefix = "/corporations/"
	case models.EntityAlliance:
		prefix = "/alliances/"
	case models.EntityShipType:
		prefix = "/universe/types/"
	case models.EntitySystem:
		prefix = "/universe/systems/"
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	return prefix + strconv.FormatInt(id, 10) + "/", nil
}

// Resolve fetches the name of one entity.
func (c *Client) Resolve(ctx context.Context, kind models.EntityKind, id int64) (string, error) {
	path, err := endpoint(kind, id)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to build ESI request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordESIRequest(string(kind), "error", time.Since(start))
		return "", fmt.Errorf("ESI %s %d: %w", kind, id, err)
	}
	defer resp.Body.Close()
	metrics.RecordESIRequest(string(kind), strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		return "", fmt.Errorf("ESI %s %d: %w", kind, id, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return "", &StatusError{Kind: kind, ID: id, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("ESI %s %d: %w: %v", kind, id, ErrMalformedResponse, err)
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		return "", fmt.Errorf("ESI %s %d: %w: empty name", kind, id, ErrMalformedResponse)
	}
	return name, nil
}

// Retryable reports whether a resolution error is worth another attempt.
// Permanent errors, breaker rejections and cancellation are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrUnsupportedKind) {
		return false
	}
	if breaker.IsOpen(err) || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode >= 500:
			return true
		case statusErr.StatusCode == http.StatusTooManyRequests, statusErr.StatusCode == 420:
			return true
		default:
			return false
		}
	}

	// Transport failures and per-request timeouts.
	return true
}
