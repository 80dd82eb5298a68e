// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestMaintenanceService_RunsImmediatelyAndOnTick(t *testing.T) {
	var runs atomic.Int32
	svc := NewMaintenanceService(20*time.Millisecond, Task{
		Name: "count",
		Run:  func(context.Context) { runs.Add(1) },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()

	err := svc.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want deadline exceeded", err)
	}
	if n := runs.Load(); n < 3 {
		t.Errorf("task ran %d times, want at least 3", n)
	}
}

func TestMaintenanceService_PanicDoesNotStopOtherTasks(t *testing.T) {
	var after atomic.Int32
	svc := NewMaintenanceService(time.Hour,
		Task{Name: "boom", Run: func(context.Context) { panic("boom") }},
		Task{Name: "after", Run: func(context.Context) { after.Add(1) }},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(time.Second)
	for after.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if after.Load() != 1 {
		t.Errorf("task after panic ran %d times, want 1", after.Load())
	}
}

func TestNewMaintenanceService_Defaults(t *testing.T) {
	svc := NewMaintenanceService(0)
	if svc.interval != DefaultMaintenanceInterval {
		t.Errorf("interval = %v, want %v", svc.interval, DefaultMaintenanceInterval)
	}
	if svc.String() != "maintenance" {
		t.Errorf("String() = %q", svc.String())
	}
}
