package models

// SlotObservation is one slot as reported by the station hardware.
// It lives only for the duration of a reconciliation pass.
type SlotObservation struct {
	SlotID        int      `json:"slot_id"`
	BatteryID     string   `json:"battery_id"`
	ChargeLevel   int      `json:"charge_level"`
	LockEngaged   bool     `json:"lock_engaged"`
	AbnormalFlags []string `json:"abnormal_flags,omitempty"`
}

// StationState is the live device view returned by the hardware vendor.
type StationState struct {
	StationID string            `json:"station_id"`
	Slots     []SlotObservation `json:"slots"`
}
