package repository

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"voltshare/internal/models"
)

// fakeRow feeds a fixed value list through the Scan contract.
type fakeRow struct {
	values []any
}

func (f *fakeRow) Scan(dest ...any) error {
	if len(dest) != len(f.values) {
		return fmt.Errorf("expected %d scan targets, got %d", len(f.values), len(dest))
	}
	for i, value := range f.values {
		switch d := dest[i].(type) {
		case *string:
			*d = value.(string)
		case *int:
			*d = value.(int)
		case *float64:
			*d = value.(float64)
		case *time.Time:
			*d = value.(time.Time)
		case *sql.NullTime:
			*d = value.(sql.NullTime)
		case *sql.NullString:
			*d = value.(sql.NullString)
		default:
			return fmt.Errorf("unsupported scan target %T at index %d", dest[i], i)
		}
	}
	return nil
}

func TestScanRentalMapsAllColumns(t *testing.T) {
	openedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	closedAt := sql.NullTime{Time: openedAt.Add(time.Hour), Valid: true}
	row := &fakeRow{values: []any{
		"R1", "B1", "S1", 3, "cust-7", 0.5, models.RentalStatusClosed,
		openedAt, closedAt,
		sql.NullString{String: models.CloseReasonCustomer, Valid: true},
		openedAt, openedAt.Add(time.Hour),
	}}

	var rental models.Rental
	if err := scanRental(row, &rental); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if rental.ID != "R1" || rental.BatteryID != "B1" || rental.StationID != "S1" {
		t.Fatalf("identity columns mismapped: %+v", rental)
	}
	if rental.SlotID != 3 || rental.CustomerRef != "cust-7" || rental.Amount != 0.5 {
		t.Fatalf("detail columns mismapped: %+v", rental)
	}
	if rental.Status != models.RentalStatusClosed || !rental.OpenedAt.Equal(openedAt) {
		t.Fatalf("status columns mismapped: %+v", rental)
	}
	if !rental.ClosedAt.Valid || rental.CloseReason.String != models.CloseReasonCustomer {
		t.Fatalf("closure columns mismapped: %+v", rental)
	}
}
