package reconcile

import (
	"fmt"
	"math"
	"sort"
	"time"

	"voltshare/internal/models"
)

// TierAllowance maps a paid amount to the rental duration it buys.
type TierAllowance struct {
	Amount    float64
	Allowance time.Duration
}

// Config holds the policy knobs of the reconciliation engine.
type Config struct {
	// GracePeriod is the minimum rental age before presence-based
	// auto-closure applies, guarding against stale hardware reads of a
	// just-issued unlock.
	GracePeriod time.Duration
	// Tiers maps paid amounts to allowed rental durations.
	Tiers []TierAllowance
	// MinServiceCharge is the charge level a battery needs to count as
	// available for rent.
	MinServiceCharge int
	// AutoCloseOverdue closes rentals that are both overdue and absent from
	// all telemetry. Off by default: the battery's physical fate is unknown
	// and silent closure can mask lost inventory.
	AutoCloseOverdue bool
}

// Allowance returns the duration allowed for the given paid amount.
func (c Config) Allowance(amount float64) (time.Duration, bool) {
	for _, tier := range c.Tiers {
		if math.Abs(tier.Amount-amount) < 1e-9 {
			return tier.Allowance, true
		}
	}
	return 0, false
}

// Overdue reports whether the rental exceeded its tier allowance at the
// reference time. Rentals with an unknown tier are never overdue.
func (c Config) Overdue(now time.Time, rental models.Rental) bool {
	allowance, ok := c.Allowance(rental.Amount)
	if !ok {
		return false
	}
	return !now.Before(rental.OpenedAt.Add(allowance))
}

// TelemetryResult is the outcome of one station's telemetry fetch. A station
// that reports zero batteries is still Reachable; Unreachable means the
// adapter could not talk to it at all.
type TelemetryResult struct {
	Reachable bool
	Reason    string
	Slots     []models.SlotObservation
}

// Presence records where a battery was physically observed this pass.
type Presence struct {
	StationID string
	SlotID    int
}

// Closure is one ledger correction the engine decided on. FoundAt is set for
// presence closures and names the station that actually holds the battery.
type Closure struct {
	RentalID  string
	BatteryID string
	StationID string
	Reason    string
	FoundAt   string
}

// Plan is the fleet-wide outcome of the correction phase: the ledger
// mutations to execute and the surviving open rentals grouped per station.
type Plan struct {
	Closures  []Closure
	Remaining map[string][]models.Rental
}

// PresenceSet returns every battery observed by any reachable station's
// telemetry, keyed by battery id. Iteration is deterministic; if the same
// battery id shows up at two stations the lexicographically first station
// wins.
func PresenceSet(telemetry map[string]TelemetryResult) map[string]Presence {
	stationIDs := make([]string, 0, len(telemetry))
	for id := range telemetry {
		stationIDs = append(stationIDs, id)
	}
	sort.Strings(stationIDs)

	present := make(map[string]Presence)
	for _, stationID := range stationIDs {
		result := telemetry[stationID]
		if !result.Reachable {
			continue
		}
		for _, obs := range result.Slots {
			if obs.BatteryID == "" {
				continue
			}
			if _, ok := present[obs.BatteryID]; ok {
				continue
			}
			present[obs.BatteryID] = Presence{StationID: stationID, SlotID: obs.SlotID}
		}
	}
	return present
}

// PlanCorrections runs the fleet-wide correction phase: duplicate collapse,
// presence-implies-return with grace exemption, and the optional
// overdue-and-absent closure policy. It requires the complete telemetry set
// for the pass; rentals belonging to a station whose telemetry is
// unreachable are never closed (fail-open), whatever the ledger says.
func PlanCorrections(now time.Time, telemetry map[string]TelemetryResult, open []models.Rental, cfg Config) Plan {
	plan := Plan{Remaining: make(map[string][]models.Rental)}

	reachable := func(stationID string) bool {
		result, ok := telemetry[stationID]
		return ok && result.Reachable
	}

	// Step 1: collapse duplicate open rentals per battery, keeping the most
	// recently opened. Runs fleet-wide because duplicates can span stations.
	survivors := make([]models.Rental, 0, len(open))
	byBattery := make(map[string][]models.Rental)
	batteryIDs := make([]string, 0)
	for _, rental := range open {
		if _, ok := byBattery[rental.BatteryID]; !ok {
			batteryIDs = append(batteryIDs, rental.BatteryID)
		}
		byBattery[rental.BatteryID] = append(byBattery[rental.BatteryID], rental)
	}
	sort.Strings(batteryIDs)

	for _, batteryID := range batteryIDs {
		group := byBattery[batteryID]
		sort.SliceStable(group, func(i, j int) bool {
			if !group[i].OpenedAt.Equal(group[j].OpenedAt) {
				return group[i].OpenedAt.After(group[j].OpenedAt)
			}
			return group[i].ID > group[j].ID
		})
		survivors = append(survivors, group[0])
		for _, duplicate := range group[1:] {
			if !reachable(duplicate.StationID) {
				// Fail-open: leave it for a pass that can observe the station.
				survivors = append(survivors, duplicate)
				continue
			}
			plan.Closures = append(plan.Closures, Closure{
				RentalID:  duplicate.ID,
				BatteryID: duplicate.BatteryID,
				StationID: duplicate.StationID,
				Reason:    models.CloseReasonDuplicate,
			})
		}
	}

	// Steps 2-3: a battery observed anywhere implies its rental is over,
	// unless the rental is younger than the grace period. Overdue-and-absent
	// rentals are only closed under the explicit policy flag.
	present := PresenceSet(telemetry)
	for _, rental := range survivors {
		if !reachable(rental.StationID) {
			plan.Remaining[rental.StationID] = append(plan.Remaining[rental.StationID], rental)
			continue
		}

		location, found := present[rental.BatteryID]
		withinGrace := now.Sub(rental.OpenedAt) < cfg.GracePeriod

		if found && !withinGrace {
			plan.Closures = append(plan.Closures, Closure{
				RentalID:  rental.ID,
				BatteryID: rental.BatteryID,
				StationID: rental.StationID,
				Reason:    models.CloseReasonReturnedPresent,
				FoundAt:   location.StationID,
			})
			continue
		}

		if !found && cfg.AutoCloseOverdue && cfg.Overdue(now, rental) {
			plan.Closures = append(plan.Closures, Closure{
				RentalID:  rental.ID,
				BatteryID: rental.BatteryID,
				StationID: rental.StationID,
				Reason:    models.CloseReasonReturnedOverdue,
			})
			continue
		}

		plan.Remaining[rental.StationID] = append(plan.Remaining[rental.StationID], rental)
	}

	for stationID := range plan.Remaining {
		sortRentals(plan.Remaining[stationID])
	}
	return plan
}

// BuildSnapshot assembles the consolidated view of one station from its
// telemetry result and the open rentals that survived the correction phase.
// It is pure: identical inputs produce an identical snapshot.
func BuildSnapshot(now time.Time, station models.Station, tel TelemetryResult, openRentals []models.Rental, cfg Config) models.StationSnapshot {
	snapshot := models.StationSnapshot{
		StationID:   station.ID,
		Name:        station.Name,
		Location:    station.Location,
		Capacity:    station.Capacity,
		GeneratedAt: now,
	}

	if !tel.Reachable {
		// Fail-open: empty layout, zero counts, no ledger opinion.
		snapshot.Status = models.StationStatusOffline
		snapshot.StatusReason = tel.Reason
		snapshot.Slots = NewLayout(station.Capacity).Views()
		return snapshot
	}

	layout := NewLayout(station.Capacity)
	layout.ApplyTelemetry(tel.Slots, cfg.MinServiceCharge)

	rentals := make([]models.Rental, len(openRentals))
	copy(rentals, openRentals)
	sortRentals(rentals)

	for _, rental := range rentals {
		overdue := cfg.Overdue(now, rental)
		if overdue {
			snapshot.OverdueCount++
		}
		if !layout.Place(rental, overdue) {
			// More open rentals than slots: counted, but no slot to show.
			layout.addAnomaly(fmt.Sprintf("rental %s (battery %s) has no free slot, open rentals exceed capacity", rental.ID, rental.BatteryID))
		}
	}

	snapshot.Status = models.StationStatusOnline
	snapshot.Slots = layout.Views()
	snapshot.AvailableCount = layout.AvailableCount()
	snapshot.RentedCount = len(rentals)
	snapshot.Anomalies = layout.Anomalies()
	return snapshot
}

func sortRentals(rentals []models.Rental) {
	sort.SliceStable(rentals, func(i, j int) bool {
		if !rentals[i].OpenedAt.Equal(rentals[j].OpenedAt) {
			return rentals[i].OpenedAt.Before(rentals[j].OpenedAt)
		}
		return rentals[i].ID < rentals[j].ID
	})
}
