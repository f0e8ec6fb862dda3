package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"voltshare/internal/models"
	"voltshare/internal/reconcile"
)

// RentalReader reads the open side of the rental ledger.
type RentalReader interface {
	ListOpen(ctx context.Context) ([]models.Rental, error)
}

// NewOpenRentalsHandler handles GET /rentals/open.
func NewOpenRentalsHandler(rentals RentalReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		open, err := rentals.ListOpen(r.Context())
		if err != nil {
			logger.Error("failed to list open rentals", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list open rentals")
			return
		}
		if open == nil {
			open = []models.Rental{}
		}
		writeJSON(w, http.StatusOK, open)
	}
}

// NewMissingBatteriesHandler handles GET /batteries/missing: open rentals
// past their tier allowance whose battery is absent from every station's
// latest published snapshot. These are candidates for lost inventory.
func NewMissingBatteriesHandler(rentals RentalReader, stations StationLister, snapshots SnapshotReader, engineCfg reconcile.Config, logger *zap.Logger) http.HandlerFunc {
	type missingBattery struct {
		RentalID    string    `json:"rental_id"`
		BatteryID   string    `json:"battery_id"`
		StationID   string    `json:"station_id"`
		CustomerRef string    `json:"customer_ref"`
		Amount      float64   `json:"amount"`
		OpenedAt    time.Time `json:"opened_at"`
	}
	type response struct {
		TotalMissing int              `json:"total_missing"`
		Missing      []missingBattery `json:"missing"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		open, err := rentals.ListOpen(r.Context())
		if err != nil {
			logger.Error("failed to list open rentals", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list open rentals")
			return
		}

		list, err := stations.List(r.Context())
		if err != nil {
			logger.Error("failed to list stations", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list stations")
			return
		}
		ids := make([]string, len(list))
		for i, station := range list {
			ids[i] = station.ID
		}

		observed := make(map[string]bool)
		published, err := snapshots.List(r.Context(), ids)
		if err != nil {
			logger.Error("failed to load snapshots", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load snapshots")
			return
		}
		for _, snapshot := range published {
			for _, slot := range snapshot.Slots {
				if slot.State == models.SlotStateOccupied && slot.BatteryID != "" {
					observed[slot.BatteryID] = true
				}
			}
		}

		now := time.Now().UTC()
		result := response{Missing: []missingBattery{}}
		for _, rental := range open {
			if observed[rental.BatteryID] || !engineCfg.Overdue(now, rental) {
				continue
			}
			result.Missing = append(result.Missing, missingBattery{
				RentalID:    rental.ID,
				BatteryID:   rental.BatteryID,
				StationID:   rental.StationID,
				CustomerRef: rental.CustomerRef,
				Amount:      rental.Amount,
				OpenedAt:    rental.OpenedAt,
			})
		}
		result.TotalMissing = len(result.Missing)
		writeJSON(w, http.StatusOK, result)
	}
}
