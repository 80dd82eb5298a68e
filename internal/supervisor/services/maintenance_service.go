// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package services

import (
	"context"
	"time"

	"github.com/tomtom215/killfeed/internal/logging"
)

// DefaultMaintenanceInterval is used when NewMaintenanceService gets a
// non-positive interval.
const DefaultMaintenanceInterval = time.Minute

// Task is one periodic housekeeping job. Run must not block for long; it
// shares a goroutine with every other task.
type Task struct {
	Name string
	Run  func(ctx context.Context)
}

// MaintenanceService runs tasks on a fixed interval: entity cache expiry,
// dedup window trimming and gauge refresh.
type MaintenanceService struct {
	interval time.Duration
	tasks    []Task
}

// NewMaintenanceService creates a service running tasks every interval.
func NewMaintenanceService(interval time.Duration, tasks ...Task) *MaintenanceService {
	if interval <= 0 {
		interval = DefaultMaintenanceInterval
	}
	return &MaintenanceService{interval: interval, tasks: tasks}
}

// Serve implements suture.Service. Tasks run once immediately so gauges are
// populated before the first tick.
func (m *MaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.runAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.runAll(ctx)
		}
	}
}

func (m *MaintenanceService) runAll(ctx context.Context) {
	for _, task := range m.tasks {
		m.run(ctx, task)
	}
}

func (m *MaintenanceService) run(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().
				Str("task", task.Name).
				Interface("panic", r).
				Msg("Maintenance task panicked")
		}
	}()
	task.Run(ctx)
}

// String implements fmt.Stringer for suture logs.
func (m *MaintenanceService) String() string {
	return "maintenance"
}
