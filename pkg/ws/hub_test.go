package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestHubBroadcastReachesSubscriber(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := NewClient(hub, nil)
	client.Register()

	hub.BroadcastSnapshot(map[string]string{"station_id": "S1"})

	select {
	case frame := <-client.send:
		var msg Message
		if err := json.Unmarshal(frame, &msg); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if msg.Type != MsgTypeSnapshot {
			t.Fatalf("expected snapshot frame, got %q", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("broadcast never reached the subscriber")
	}
}

func TestHubRunStopsOnContextCancel(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := NewClient(hub, nil)
	client.Register()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("hub did not stop on cancellation")
	}

	// Remaining clients are dropped: their send channels close.
	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatalf("expected closed send channel, got a frame")
		}
	case <-time.After(time.Second):
		t.Fatalf("client send channel not closed on shutdown")
	}
}
