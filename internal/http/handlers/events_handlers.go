package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"voltshare/internal/http/middleware"
	"voltshare/internal/models"
	"voltshare/internal/service"
)

// RentalCloser closes open rentals by battery.
type RentalCloser interface {
	CloseOpenByBattery(ctx context.Context, batteryID, reason string, closedAt time.Time) (int64, error)
}

// NewBatteryReturnHandler handles POST /internal/events/return: a customer
// pushed a battery back into a slot and the hardware reported the return.
// Closing a battery with no open rental is a success no-op.
func NewBatteryReturnHandler(rentals RentalCloser, logger *zap.Logger) http.HandlerFunc {
	type request struct {
		BatteryID string `json:"battery_id"`
	}
	type response struct {
		Closed int64 `json:"closed"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		req.BatteryID = strings.TrimSpace(req.BatteryID)
		if req.BatteryID == "" {
			writeError(w, http.StatusBadRequest, "battery_id is required")
			return
		}

		closed, err := rentals.CloseOpenByBattery(r.Context(), req.BatteryID, models.CloseReasonCustomer, time.Now().UTC())
		if err != nil {
			logger.Error("failed to close rental on return",
				zap.String("battery_id", req.BatteryID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to process return")
			return
		}

		logger.Info("battery returned",
			zap.String("battery_id", req.BatteryID), zap.Int64("rentals_closed", closed))
		writeJSON(w, http.StatusOK, response{Closed: closed})
	}
}

// PassTrigger runs a reconciliation pass on demand.
type PassTrigger interface {
	TriggerNow(ctx context.Context) error
}

// NewReconcileNowHandler handles POST /internal/reconcile.
func NewReconcileNowHandler(trigger PassTrigger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if operatorID, ok := middleware.UserIDFromContext(r.Context()); ok {
			logger.Info("manual reconciliation requested", zap.Int64("operator_id", operatorID))
		}
		if err := trigger.TriggerNow(r.Context()); err != nil {
			if errors.Is(err, service.ErrPassInProgress) {
				writeError(w, http.StatusConflict, "a pass is already in progress")
				return
			}
			logger.Error("triggered pass failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "pass failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
	}
}
