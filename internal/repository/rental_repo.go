package repository

import (
	"context"
	"database/sql"
	"time"

	"voltshare/internal/models"
)

// RentalRepository handles persistence of the rental ledger. Rentals are
// never deleted; the reconciliation engine only flips them to closed.
type RentalRepository struct {
	db *sql.DB
}

// NewRentalRepository returns repository.
func NewRentalRepository(db *sql.DB) *RentalRepository {
	return &RentalRepository{db: db}
}

const rentalColumns = `id, battery_id, station_id, slot_id, customer_ref, amount, status, opened_at, closed_at, close_reason, created_at, updated_at`

// ListOpen returns every open rental across the fleet, oldest first.
func (r *RentalRepository) ListOpen(ctx context.Context) ([]models.Rental, error) {
	const query = `
		SELECT ` + rentalColumns + `
		FROM rentals
		WHERE status = 'open'
		ORDER BY opened_at, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRentals(rows)
}

// Close marks a rental closed with the given reason. Closing an already
// closed rental is a success no-op, which makes retries safe.
func (r *RentalRepository) Close(ctx context.Context, rentalID, reason string, closedAt time.Time) error {
	const query = `
		UPDATE rentals
		SET status = 'closed',
		    close_reason = $2,
		    closed_at = $3,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'open'
	`
	_, err := r.db.ExecContext(ctx, query, rentalID, reason, closedAt)
	return err
}

// CloseOpenByBattery closes whatever open rental references the battery and
// returns how many rows changed. Zero is a valid outcome: the battery had no
// open rental.
func (r *RentalRepository) CloseOpenByBattery(ctx context.Context, batteryID, reason string, closedAt time.Time) (int64, error) {
	const query = `
		UPDATE rentals
		SET status = 'closed',
		    close_reason = $2,
		    closed_at = $3,
		    updated_at = NOW()
		WHERE battery_id = $1 AND status = 'open'
	`
	result, err := r.db.ExecContext(ctx, query, batteryID, reason, closedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRental(rows rowScanner, rental *models.Rental) error {
	return rows.Scan(
		&rental.ID,
		&rental.BatteryID,
		&rental.StationID,
		&rental.SlotID,
		&rental.CustomerRef,
		&rental.Amount,
		&rental.Status,
		&rental.OpenedAt,
		&rental.ClosedAt,
		&rental.CloseReason,
		&rental.CreatedAt,
		&rental.UpdatedAt,
	)
}

func scanRentals(rows *sql.Rows) ([]models.Rental, error) {
	var rentals []models.Rental
	for rows.Next() {
		var rental models.Rental
		if err := scanRental(rows, &rental); err != nil {
			return nil, err
		}
		rentals = append(rentals, rental)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rentals, nil
}
