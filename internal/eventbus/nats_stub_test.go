// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

//go:build !nats

package eventbus

import (
	"errors"
	"testing"

	"github.com/tomtom215/killfeed/internal/config"
)

func TestNew_NATSUnavailableWithoutTag(t *testing.T) {
	_, _, err := New(config.BusConfig{Driver: DriverNATS, NATSURL: "nats://localhost:4222"}, nil)
	if !errors.Is(err, ErrDriverUnavailable) {
		t.Errorf("New() error = %v, want ErrDriverUnavailable", err)
	}
}
