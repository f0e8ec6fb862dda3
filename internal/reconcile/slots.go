package reconcile

import (
	"fmt"
	"sort"

	"voltshare/internal/models"
)

// Layout builds the per-station slot array for one pass: a deterministic base
// of capacity empty slots, a telemetry overlay, then open-rental placement.
// Telemetry wins for any slot it reports on; rentals only fill slots the
// overlay left empty.
type Layout struct {
	views     []models.SlotView
	seen      map[int]bool
	available int
	anomalies []string
}

// NewLayout returns a layout of capacity empty slots numbered from 1.
func NewLayout(capacity int) *Layout {
	if capacity < 0 {
		capacity = 0
	}
	views := make([]models.SlotView, capacity)
	for i := range views {
		views[i] = models.SlotView{SlotID: i + 1, State: models.SlotStateEmpty}
	}
	return &Layout{views: views, seen: make(map[int]bool)}
}

// ApplyTelemetry overlays slot observations onto the base layout.
// Observations with slot ids outside [1, capacity] or repeating a slot are
// dropped and recorded as anomalies; capacity is a station property, never
// grown to fit telemetry. A slot is counted available when its battery is
// locked in, reports no abnormal flags and holds at least minServiceCharge.
func (l *Layout) ApplyTelemetry(observations []models.SlotObservation, minServiceCharge int) {
	sorted := make([]models.SlotObservation, len(observations))
	copy(sorted, observations)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SlotID < sorted[j].SlotID })

	for _, obs := range sorted {
		if obs.SlotID < 1 || obs.SlotID > len(l.views) {
			l.anomalies = append(l.anomalies, fmt.Sprintf("telemetry slot %d outside [1,%d], dropped", obs.SlotID, len(l.views)))
			continue
		}
		if l.seen[obs.SlotID] {
			l.anomalies = append(l.anomalies, fmt.Sprintf("telemetry reported slot %d more than once, duplicate dropped", obs.SlotID))
			continue
		}
		l.seen[obs.SlotID] = true

		if obs.BatteryID == "" {
			// Slot reported but holds no battery: stays empty.
			continue
		}

		l.views[obs.SlotID-1] = models.SlotView{
			SlotID:      obs.SlotID,
			State:       models.SlotStateOccupied,
			BatteryID:   obs.BatteryID,
			ChargeLevel: obs.ChargeLevel,
			Online:      obs.LockEngaged,
		}
		if obs.LockEngaged && len(obs.AbnormalFlags) == 0 && obs.ChargeLevel >= minServiceCharge {
			l.available++
		}
	}
}

// Place puts an open rental into the layout. The rental's recorded slot is
// used when it is still empty; otherwise the lowest-numbered empty slot is
// assigned. Returns false when every slot is taken.
func (l *Layout) Place(rental models.Rental, overdue bool) bool {
	slot := 0
	if rental.SlotID >= 1 && rental.SlotID <= len(l.views) && l.views[rental.SlotID-1].State == models.SlotStateEmpty {
		slot = rental.SlotID
	} else {
		assigned, ok := AssignSlot(len(l.views), l.occupied())
		if !ok {
			return false
		}
		slot = assigned
	}

	openedAt := rental.OpenedAt.UTC()
	l.views[slot-1] = models.SlotView{
		SlotID:    slot,
		State:     models.SlotStateRented,
		BatteryID: rental.BatteryID,
		RentalID:  rental.ID,
		OpenedAt:  &openedAt,
		Overdue:   overdue,
	}
	return true
}

// Views returns the ordered slot array.
func (l *Layout) Views() []models.SlotView {
	return l.views
}

// AvailableCount returns the number of serviceable batteries observed.
func (l *Layout) AvailableCount() int {
	return l.available
}

// Anomalies returns dropped-observation notes for operator attention.
func (l *Layout) Anomalies() []string {
	return l.anomalies
}

func (l *Layout) occupied() map[int]bool {
	taken := make(map[int]bool, len(l.views))
	for _, v := range l.views {
		if v.State != models.SlotStateEmpty {
			taken[v.SlotID] = true
		}
	}
	return taken
}

func (l *Layout) addAnomaly(note string) {
	l.anomalies = append(l.anomalies, note)
}

// AssignSlot returns the lowest-numbered slot in [1, capacity] that is not
// occupied, or false when none is free.
func AssignSlot(capacity int, occupied map[int]bool) (int, bool) {
	for slot := 1; slot <= capacity; slot++ {
		if !occupied[slot] {
			return slot, true
		}
	}
	return 0, false
}
