package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"voltshare/internal/models"
	"voltshare/internal/reconcile"
)

// TelemetryAdapter fetches live device state for one station. An error means
// the station could not be observed, never that it is empty.
type TelemetryAdapter interface {
	FetchStationState(ctx context.Context, stationID string) (*models.StationState, error)
}

// RentalLedger is the slice of the ledger a pass reads and mutates.
type RentalLedger interface {
	ListOpen(ctx context.Context) ([]models.Rental, error)
	Close(ctx context.Context, rentalID, reason string, closedAt time.Time) error
}

// StationDirectory lists the fleet and records reachability outcomes.
type StationDirectory interface {
	List(ctx context.Context) ([]models.Station, error)
	SetReachable(ctx context.Context, stationID string, reachable bool) error
}

// SnapshotSink persists consolidated snapshots.
type SnapshotSink interface {
	Save(ctx context.Context, snapshot models.StationSnapshot) error
}

// SnapshotBroadcaster pushes freshly published snapshots to live subscribers.
type SnapshotBroadcaster interface {
	BroadcastSnapshot(snapshot models.StationSnapshot)
}

// ReconcilerConfig bundles pass-level knobs with the engine policy.
type ReconcilerConfig struct {
	FetchTimeout     time.Duration
	FetchConcurrency int
	Engine           reconcile.Config
}

// Reconciler runs one full reconciliation pass: collect telemetry for the
// whole fleet, plan ledger corrections, execute them, publish snapshots.
type Reconciler struct {
	cfg       ReconcilerConfig
	adapter   TelemetryAdapter
	ledger    RentalLedger
	stations  StationDirectory
	sink      SnapshotSink
	broadcast SnapshotBroadcaster
	logger    *zap.Logger
}

// NewReconciler builds the pass runner. broadcast may be nil.
func NewReconciler(
	cfg ReconcilerConfig,
	adapter TelemetryAdapter,
	ledger RentalLedger,
	stations StationDirectory,
	sink SnapshotSink,
	broadcast SnapshotBroadcaster,
	logger *zap.Logger,
) *Reconciler {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 4
	}
	return &Reconciler{
		cfg:       cfg,
		adapter:   adapter,
		ledger:    ledger,
		stations:  stations,
		sink:      sink,
		broadcast: broadcast,
		logger:    logger,
	}
}

// RunPass executes one pass. Station and rental failures are contained and
// logged; the only returned errors are the ones that leave the pass with
// nothing to do at all.
func (r *Reconciler) RunPass(ctx context.Context) error {
	now := time.Now().UTC()

	stations, err := r.stations.List(ctx)
	if err != nil {
		return fmt.Errorf("list stations: %w", err)
	}
	if len(stations) == 0 {
		r.logger.Debug("no stations registered, nothing to reconcile")
		return nil
	}

	telemetry := r.collectTelemetry(ctx, stations)

	for _, station := range stations {
		result := telemetry[station.ID]
		if err := r.stations.SetReachable(ctx, station.ID, result.Reachable); err != nil {
			r.logger.Warn("failed to record reachability",
				zap.String("station_id", station.ID), zap.Error(err))
		}
		if !result.Reachable {
			r.logger.Warn("station unreachable this pass",
				zap.String("station_id", station.ID), zap.String("reason", result.Reason))
		}
	}

	open, err := r.ledger.ListOpen(ctx)
	if err != nil {
		// Without the fleet-wide open-rental list no correction is safe.
		// Publish what telemetry alone supports and skip every mutation.
		r.logger.Error("open rentals unavailable, publishing telemetry-only snapshots", zap.Error(err))
		for _, station := range stations {
			snapshot := reconcile.BuildSnapshot(now, station, telemetry[station.ID], nil, r.cfg.Engine)
			if snapshot.Status == models.StationStatusOnline {
				snapshot.Status = models.StationStatusDegraded
				snapshot.StatusReason = "ledger unavailable"
			}
			r.publish(ctx, snapshot)
		}
		return nil
	}

	plan := reconcile.PlanCorrections(now, telemetry, open, r.cfg.Engine)
	r.applyClosures(ctx, now, plan.Closures)

	for _, station := range stations {
		snapshot := reconcile.BuildSnapshot(now, station, telemetry[station.ID], plan.Remaining[station.ID], r.cfg.Engine)
		r.publish(ctx, snapshot)
	}
	return nil
}

// collectTelemetry fans out bounded-parallel fetches and joins on all of
// them: every station is either observed or marked unreachable before any
// ledger decision runs, because presence detection needs the full fleet view.
func (r *Reconciler) collectTelemetry(ctx context.Context, stations []models.Station) map[string]reconcile.TelemetryResult {
	results := make(map[string]reconcile.TelemetryResult, len(stations))

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, r.cfg.FetchConcurrency)

	for _, station := range stations {
		wg.Add(1)
		go func(station models.Station) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
			defer cancel()

			var result reconcile.TelemetryResult
			state, err := r.adapter.FetchStationState(fetchCtx, station.ID)
			if err != nil {
				result = reconcile.TelemetryResult{Reachable: false, Reason: err.Error()}
			} else {
				result = reconcile.TelemetryResult{Reachable: true, Slots: state.Slots}
			}

			mu.Lock()
			results[station.ID] = result
			mu.Unlock()
		}(station)
	}

	wg.Wait()
	return results
}

// applyClosures executes planned ledger corrections one rental at a time.
// Each closure is independently retryable; a failure is logged and the
// rental stays open for the next pass to pick up again.
func (r *Reconciler) applyClosures(ctx context.Context, now time.Time, closures []reconcile.Closure) {
	for _, closure := range closures {
		if err := r.ledger.Close(ctx, closure.RentalID, closure.Reason, now); err != nil {
			r.logger.Warn("rental closure failed, retrying next pass",
				zap.String("rental_id", closure.RentalID),
				zap.String("reason", closure.Reason),
				zap.Error(err))
			continue
		}
		fields := []zap.Field{
			zap.String("rental_id", closure.RentalID),
			zap.String("battery_id", closure.BatteryID),
			zap.String("station_id", closure.StationID),
			zap.String("reason", closure.Reason),
		}
		if closure.FoundAt != "" {
			fields = append(fields, zap.String("found_at", closure.FoundAt))
		}
		r.logger.Info("rental auto-closed", fields...)
	}
}

func (r *Reconciler) publish(ctx context.Context, snapshot models.StationSnapshot) {
	for _, anomaly := range snapshot.Anomalies {
		r.logger.Warn("data anomaly",
			zap.String("station_id", snapshot.StationID), zap.String("detail", anomaly))
	}
	if err := r.sink.Save(ctx, snapshot); err != nil {
		r.logger.Warn("snapshot write failed",
			zap.String("station_id", snapshot.StationID), zap.Error(err))
		return
	}
	if r.broadcast != nil {
		r.broadcast.BroadcastSnapshot(snapshot)
	}
}
