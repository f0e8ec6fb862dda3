package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"voltshare/internal/models"
	"voltshare/internal/redisstore"
)

// StationLister provides the station directory.
type StationLister interface {
	List(ctx context.Context) ([]models.Station, error)
}

// SnapshotReader reads published snapshots.
type SnapshotReader interface {
	Get(ctx context.Context, stationID string) (*models.StationSnapshot, error)
	List(ctx context.Context, stationIDs []string) ([]models.StationSnapshot, error)
}

// NewStationsHandler handles GET /stations: metadata joined with the latest
// published snapshot per station.
func NewStationsHandler(stations StationLister, snapshots SnapshotReader, logger *zap.Logger) http.HandlerFunc {
	type stationView struct {
		models.Station
		Snapshot *models.StationSnapshot `json:"snapshot,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
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

		byStation := make(map[string]*models.StationSnapshot, len(list))
		published, err := snapshots.List(r.Context(), ids)
		if err != nil {
			logger.Warn("failed to load snapshots, returning metadata only", zap.Error(err))
		} else {
			for i := range published {
				byStation[published[i].StationID] = &published[i]
			}
		}

		views := make([]stationView, len(list))
		for i, station := range list {
			views[i] = stationView{Station: station, Snapshot: byStation[station.ID]}
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// StationWriter persists station metadata.
type StationWriter interface {
	Upsert(ctx context.Context, station *models.Station) error
}

// NewUpsertStationHandler handles POST /stations: register a new station or
// update the metadata of an existing one.
func NewUpsertStationHandler(stations StationWriter, logger *zap.Logger) http.HandlerFunc {
	type request struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Location string `json:"location"`
		Capacity int    `json:"capacity"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		req.ID = strings.TrimSpace(req.ID)
		if req.ID == "" {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}
		if req.Capacity <= 0 {
			writeError(w, http.StatusBadRequest, "capacity must be positive")
			return
		}

		station := models.Station{
			ID:       req.ID,
			Name:     req.Name,
			Location: req.Location,
			Capacity: req.Capacity,
		}
		if err := stations.Upsert(r.Context(), &station); err != nil {
			logger.Error("failed to upsert station", zap.String("station_id", req.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to save station")
			return
		}

		logger.Info("station provisioned",
			zap.String("station_id", station.ID), zap.Int("capacity", station.Capacity))
		writeJSON(w, http.StatusOK, station)
	}
}

// NewStationSnapshotHandler handles GET /stations/snapshot?station_id=X.
func NewStationSnapshotHandler(snapshots SnapshotReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stationID := strings.TrimSpace(r.URL.Query().Get("station_id"))
		if stationID == "" {
			writeError(w, http.StatusBadRequest, "station_id is required")
			return
		}

		snapshot, err := snapshots.Get(r.Context(), stationID)
		if err != nil {
			if errors.Is(err, redisstore.ErrSnapshotNotFound) {
				writeError(w, http.StatusNotFound, "no snapshot published for station")
				return
			}
			logger.Error("failed to load snapshot", zap.String("station_id", stationID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load snapshot")
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}
