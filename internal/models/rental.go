package models

import (
	"database/sql"
	"time"
)

// Rental status values.
const (
	RentalStatusOpen   = "open"
	RentalStatusClosed = "closed"
)

// Close reasons recorded when a rental leaves the open state.
const (
	CloseReasonReturnedPresent = "auto_returned_present"
	CloseReasonReturnedOverdue = "auto_returned_overdue"
	CloseReasonDuplicate       = "auto_closed_duplicate"
	CloseReasonCustomer        = "customer_return"
)

// Rental is one ledger entry for a battery handed to a customer.
// SlotID is the slot recorded at unlock time and may go stale once
// the battery is returned elsewhere.
type Rental struct {
	ID          string         `db:"id" json:"id"`
	BatteryID   string         `db:"battery_id" json:"battery_id"`
	StationID   string         `db:"station_id" json:"station_id"`
	SlotID      int            `db:"slot_id" json:"slot_id"`
	CustomerRef string         `db:"customer_ref" json:"customer_ref"`
	Amount      float64        `db:"amount" json:"amount"`
	Status      string         `db:"status" json:"status"`
	OpenedAt    time.Time      `db:"opened_at" json:"opened_at"`
	ClosedAt    sql.NullTime   `db:"closed_at" json:"closed_at"`
	CloseReason sql.NullString `db:"close_reason" json:"close_reason"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
