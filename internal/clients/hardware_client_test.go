package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestFetchStationStateMapsVendorPayload(t *testing.T) {
	var gotPath, gotUser string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"batteries":[
			{"battery_id":"B1","slot_id":"3","battery_capacity":"95","lock_status":"1","battery_abnormal":"0","cable_abnormal":"0"},
			{"battery_id":"B2","slot_id":"5","battery_capacity":"40","lock_status":"0","battery_abnormal":"1","cable_abnormal":"0"}
		]}`))
	}))
	defer server.Close()

	client := NewHardwareClient(server.URL, "test-key", time.Second, zap.NewNop())
	state, err := client.FetchStationState(context.Background(), "ST01")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if gotPath != "/v1/station/ST01" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotUser != "test-key" {
		t.Fatalf("api key must travel as the basic auth user, got %q", gotUser)
	}
	if state.StationID != "ST01" || len(state.Slots) != 2 {
		t.Fatalf("unexpected state: %+v", state)
	}

	first := state.Slots[0]
	if first.SlotID != 3 || first.BatteryID != "B1" || first.ChargeLevel != 95 || !first.LockEngaged || len(first.AbnormalFlags) != 0 {
		t.Fatalf("unexpected first slot: %+v", first)
	}
	second := state.Slots[1]
	if second.SlotID != 5 || second.LockEngaged || second.ChargeLevel != 40 {
		t.Fatalf("unexpected second slot: %+v", second)
	}
	if len(second.AbnormalFlags) != 1 || second.AbnormalFlags[0] != "battery_abnormal" {
		t.Fatalf("unexpected flags: %v", second.AbnormalFlags)
	}
}

func TestFetchStationStateEmptyStationIsReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"batteries":[]}`))
	}))
	defer server.Close()

	client := NewHardwareClient(server.URL, "test-key", time.Second, zap.NewNop())
	state, err := client.FetchStationState(context.Background(), "ST01")
	if err != nil {
		t.Fatalf("empty station must not be an error: %v", err)
	}
	if len(state.Slots) != 0 {
		t.Fatalf("expected no observations, got %+v", state.Slots)
	}
}

func TestFetchStationStateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHardwareClient(server.URL, "test-key", time.Second, zap.NewNop())
	if _, err := client.FetchStationState(context.Background(), "ST01"); err == nil {
		t.Fatalf("expected error on 502")
	}
}

func TestFetchStationStateMalformedSlotID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"batteries":[{"battery_id":"B1","slot_id":"??","battery_capacity":"80","lock_status":"1"}]}`))
	}))
	defer server.Close()

	client := NewHardwareClient(server.URL, "test-key", time.Second, zap.NewNop())
	state, err := client.FetchStationState(context.Background(), "ST01")
	if err != nil {
		t.Fatalf("malformed slot id must not fail the fetch: %v", err)
	}
	if len(state.Slots) != 1 || state.Slots[0].SlotID != 0 {
		t.Fatalf("malformed slot id should map to 0, got %+v", state.Slots)
	}
}

func TestFetchStationStateMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"batteries":`))
	}))
	defer server.Close()

	client := NewHardwareClient(server.URL, "test-key", time.Second, zap.NewNop())
	if _, err := client.FetchStationState(context.Background(), "ST01"); err == nil {
		t.Fatalf("expected decode error")
	}
}
