// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package eventbus

import (
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/killfeed/internal/config"
)

const (
	DriverGoChannel = "gochannel"
	DriverNATS      = "nats"

	// DefaultTopic is the raw killmail topic.
	DefaultTopic = "killmail.raw"
)

// ErrDriverUnavailable is returned when a driver was not compiled in.
var ErrDriverUnavailable = errors.New("event bus driver not available in this build")

// New returns the publisher and subscriber for cfg.Driver. For gochannel both
// values are the same *gochannel.GoChannel.
func New(cfg config.BusConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	switch cfg.Driver {
	case "", DriverGoChannel:
		ch := newGoChannel(cfg, logger)
		return ch, ch, nil
	case DriverNATS:
		pub, sub, err := newNATS(cfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("nats event bus: %w", err)
		}
		return pub, sub, nil
	default:
		return nil, nil, fmt.Errorf("unknown event bus driver %q", cfg.Driver)
	}
}

func newGoChannel(cfg config.BusConfig, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            cfg.BufferSize,
		Persistent:                     false,
		BlockPublishUntilSubscriberAck: false,
	}, logger)
}

// Topic returns the configured topic or DefaultTopic.
func Topic(cfg config.BusConfig) string {
	if cfg.Topic == "" {
		return DefaultTopic
	}
	return cfg.Topic
}
