package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"voltshare/internal/models"
)

// HardwareClient queries the cabinet vendor's cloud for live station state.
// Any returned error means the station could not be observed this pass; a
// station that answers with zero batteries is reachable and simply empty.
type HardwareClient struct {
	domain string
	apiKey string
	client *http.Client
	logger *zap.Logger
}

// NewHardwareClient returns client wrapper.
func NewHardwareClient(domain, apiKey string, timeout time.Duration, logger *zap.Logger) *HardwareClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HardwareClient{
		domain: strings.TrimRight(domain, "/"),
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Vendor wire format: every field arrives as a string.
type batteryPayload struct {
	BatteryID       string `json:"battery_id"`
	SlotID          string `json:"slot_id"`
	BatteryCapacity string `json:"battery_capacity"`
	LockStatus      string `json:"lock_status"`
	BatteryAbnormal string `json:"battery_abnormal"`
	CableAbnormal   string `json:"cable_abnormal"`
}

type stationPayload struct {
	Batteries []batteryPayload `json:"batteries"`
}

// FetchStationState returns the live slot occupancy of one station.
func (c *HardwareClient) FetchStationState(ctx context.Context, stationID string) (*models.StationState, error) {
	url := fmt.Sprintf("%s/v1/station/%s", c.domain, stationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.apiKey, "")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hardware: fetch station %s: %w", stationID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("hardware: station %s returned status %d", stationID, resp.StatusCode)
	}

	var payload stationPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("hardware: decode station %s: %w", stationID, err)
	}

	state := &models.StationState{StationID: stationID}
	for _, battery := range payload.Batteries {
		slotID, err := strconv.Atoi(strings.TrimSpace(battery.SlotID))
		if err != nil {
			// Malformed slot ids pass through as 0; the slot model drops
			// them as anomalies rather than guessing a position.
			c.logger.Warn("malformed slot id in vendor payload",
				zap.String("station_id", stationID),
				zap.String("slot_id", battery.SlotID),
				zap.String("battery_id", battery.BatteryID))
			slotID = 0
		}
		charge, _ := strconv.Atoi(strings.TrimSpace(battery.BatteryCapacity))

		var flags []string
		if battery.BatteryAbnormal != "" && battery.BatteryAbnormal != "0" {
			flags = append(flags, "battery_abnormal")
		}
		if battery.CableAbnormal != "" && battery.CableAbnormal != "0" {
			flags = append(flags, "cable_abnormal")
		}

		state.Slots = append(state.Slots, models.SlotObservation{
			SlotID:        slotID,
			BatteryID:     battery.BatteryID,
			ChargeLevel:   charge,
			LockEngaged:   battery.LockStatus == "1",
			AbnormalFlags: flags,
		})
	}
	return state, nil
}
