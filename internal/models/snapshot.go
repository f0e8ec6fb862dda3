package models

import "time"

// Station snapshot status values.
const (
	StationStatusOnline   = "online"
	StationStatusOffline  = "offline"
	StationStatusDegraded = "degraded"
)

// Slot view states within a snapshot.
const (
	SlotStateEmpty    = "empty"
	SlotStateOccupied = "occupied"
	SlotStateRented   = "rented"
)

// SlotView is one slot in the consolidated station view. For occupied
// slots the battery fields are set; for rented slots the rental fields.
type SlotView struct {
	SlotID      int        `json:"slot_id"`
	State       string     `json:"state"`
	BatteryID   string     `json:"battery_id,omitempty"`
	ChargeLevel int        `json:"charge_level,omitempty"`
	Online      bool       `json:"online,omitempty"`
	RentalID    string     `json:"rental_id,omitempty"`
	OpenedAt    *time.Time `json:"opened_at,omitempty"`
	Overdue     bool       `json:"overdue,omitempty"`
}

// StationSnapshot is the fully recomputed per-station view produced by a
// reconciliation pass. It is overwritten wholesale on every pass.
type StationSnapshot struct {
	StationID      string     `json:"station_id"`
	Name           string     `json:"name"`
	Location       string     `json:"location"`
	Status         string     `json:"status"`
	StatusReason   string     `json:"status_reason,omitempty"`
	Capacity       int        `json:"capacity"`
	Slots          []SlotView `json:"slots"`
	AvailableCount int        `json:"available_count"`
	RentedCount    int        `json:"rented_count"`
	OverdueCount   int        `json:"overdue_count"`
	Anomalies      []string   `json:"anomalies,omitempty"`
	GeneratedAt    time.Time  `json:"generated_at"`
}
