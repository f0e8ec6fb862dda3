package repository

import (
	"context"
	"database/sql"

	"voltshare/internal/models"
)

// StationRepository stores station metadata. The reconciler treats it as
// read-mostly; only the reachable flag is flipped from telemetry outcomes.
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository returns repository.
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// List returns all known stations ordered by id.
func (r *StationRepository) List(ctx context.Context) ([]models.Station, error) {
	const query = `
		SELECT id, name, location, capacity, reachable, created_at, updated_at
		FROM stations
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var station models.Station
		if err := rows.Scan(
			&station.ID,
			&station.Name,
			&station.Location,
			&station.Capacity,
			&station.Reachable,
			&station.CreatedAt,
			&station.UpdatedAt,
		); err != nil {
			return nil, err
		}
		stations = append(stations, station)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stations, nil
}

// Upsert persists station metadata from provisioning.
func (r *StationRepository) Upsert(ctx context.Context, station *models.Station) error {
	const query = `
		INSERT INTO stations (id, name, location, capacity, reachable, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			location = EXCLUDED.location,
			capacity = EXCLUDED.capacity,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, station.ID, station.Name, station.Location, station.Capacity, station.Reachable)
	return err
}

// SetReachable records the outcome of the latest telemetry attempt and
// reports whether the flag actually changed.
func (r *StationRepository) SetReachable(ctx context.Context, stationID string, reachable bool) (bool, error) {
	const query = `
		UPDATE stations
		SET reachable = $2,
		    updated_at = NOW()
		WHERE id = $1 AND reachable IS DISTINCT FROM $2
	`
	result, err := r.db.ExecContext(ctx, query, stationID, reachable)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
