package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"voltshare/internal/models"
)

func TestTriggerNowRefusesOverlap(t *testing.T) {
	adapter := &fakeAdapter{
		blockUntil:   make(chan struct{}),
		fetchStarted: make(chan struct{}),
	}
	directory := &fakeDirectory{stations: []models.Station{{ID: "S1", Capacity: 8}}}
	reconciler := newTestReconciler(testReconcilerConfig(), adapter, &fakeLedger{}, directory, &fakeSink{})
	scheduler := NewScheduler(time.Hour, reconciler, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- scheduler.TriggerNow(ctx)
	}()

	select {
	case <-adapter.fetchStarted:
	case <-time.After(time.Second):
		t.Fatalf("first pass never started fetching")
	}

	if err := scheduler.TriggerNow(ctx); !errors.Is(err, ErrPassInProgress) {
		t.Fatalf("expected ErrPassInProgress, got %v", err)
	}

	close(adapter.blockUntil)
	select {
	case err := <-firstDone:
		if err != nil {
			t.Fatalf("first pass failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("first pass never finished")
	}

	if err := scheduler.TriggerNow(ctx); err != nil {
		t.Fatalf("trigger after completion should succeed: %v", err)
	}
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	reconciler := newTestReconciler(testReconcilerConfig(), &fakeAdapter{}, &fakeLedger{}, &fakeDirectory{}, &fakeSink{})
	scheduler := NewScheduler(time.Hour, reconciler, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- scheduler.Run(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("scheduler did not stop on cancellation")
	}
}
