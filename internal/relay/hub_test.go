package relay

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ridepoolhq/ridepool-backend/pkg/config"
	"github.com/ridepoolhq/ridepool-backend/pkg/logger"
	"github.com/ridepoolhq/ridepool-backend/pkg/metrics"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "relay-test", Output: io.Discard})
	hub, err := NewHub(HubParams{
		Config:  config.RelayConfig{},
		Logger:  logg,
		Metrics: metrics.NewRelayMetrics(nil),
	})
	if err != nil {
		t.Fatalf("new hub: %v", err)
	}
	return hub
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	msg, err := json.Marshal(Envelope{Type: eventType, Data: data})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func waitForRoom(t *testing.T, hub *Hub, code string, size int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.RoomSize(code) == size {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %s never reached size %d (now %d)", code, size, hub.RoomSize(code))
}

func TestLocationUpdateReachesOtherRoomMembers(t *testing.T) {
	hub := newTestHub(t)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	subscriber := dial(t, server)
	publisher := dial(t, server)

	send(t, subscriber, EventJoinRide, JoinRidePayload{RideCode: "ABC123"})
	send(t, publisher, EventJoinRide, JoinRidePayload{RideCode: "ABC123"})
	waitForRoom(t, hub, "ABC123", 2)

	send(t, publisher, EventUpdateLocation, UpdateLocationPayload{
		RideCode:  "ABC123",
		UserID:    7,
		Latitude:  35.4676,
		Longitude: -97.5164,
	})

	_ = subscriber.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := subscriber.ReadMessage()
	if err != nil {
		t.Fatalf("subscriber read: %v", err)
	}

	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Type != EventLocationUpdate {
		t.Fatalf("expected %s, got %s", EventLocationUpdate, envelope.Type)
	}

	var payload struct {
		UserID            int64   `json:"user_id"`
		Latitude          float64 `json:"latitude"`
		Longitude         float64 `json:"longitude"`
		LocationTimestamp string  `json:"location_timestamp"`
	}
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.UserID != 7 || payload.Latitude != 35.4676 || payload.Longitude != -97.5164 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if !strings.HasSuffix(payload.LocationTimestamp, "+00:00") {
		t.Fatalf("timestamp %q should carry a +00:00 offset", payload.LocationTimestamp)
	}
}

func TestPublisherDoesNotReceiveOwnBroadcast(t *testing.T) {
	hub := newTestHub(t)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	publisher := dial(t, server)
	send(t, publisher, EventJoinRide, JoinRidePayload{RideCode: "ABC123"})
	waitForRoom(t, hub, "ABC123", 1)

	send(t, publisher, EventUpdateLocation, UpdateLocationPayload{
		RideCode: "ABC123",
		UserID:   7,
		Latitude: 1, Longitude: 1,
	})

	_ = publisher.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := publisher.ReadMessage(); err == nil {
		t.Fatal("publisher must not receive its own broadcast")
	}
}

func TestBroadcastIsScopedToRoom(t *testing.T) {
	hub := newTestHub(t)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	other := dial(t, server)
	publisher := dial(t, server)

	send(t, other, EventJoinRide, JoinRidePayload{RideCode: "ZZZZZZ"})
	send(t, publisher, EventJoinRide, JoinRidePayload{RideCode: "ABC123"})
	waitForRoom(t, hub, "ZZZZZZ", 1)
	waitForRoom(t, hub, "ABC123", 1)

	send(t, publisher, EventUpdateLocation, UpdateLocationPayload{
		RideCode: "ABC123",
		UserID:   7,
		Latitude: 1, Longitude: 1,
	})

	_ = other.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Fatal("subscriber of a different ride must not receive the broadcast")
	}
}

func TestJoinNormalizesRideCode(t *testing.T) {
	hub := newTestHub(t)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	conn := dial(t, server)
	send(t, conn, EventJoinRide, JoinRidePayload{RideCode: " abc123 "})
	waitForRoom(t, hub, "ABC123", 1)
}

func TestDisconnectCleansUpRoomMembership(t *testing.T) {
	hub := newTestHub(t)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	conn := dial(t, server)
	send(t, conn, EventJoinRide, JoinRidePayload{RideCode: "ABC123"})
	waitForRoom(t, hub, "ABC123", 1)

	_ = conn.Close()
	waitForRoom(t, hub, "ABC123", 0)
}

func TestMalformedMessagesAreIgnored(t *testing.T) {
	hub := newTestHub(t)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	conn := dial(t, server)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The connection must survive garbage input.
	send(t, conn, EventJoinRide, JoinRidePayload{RideCode: "ABC123"})
	waitForRoom(t, hub, "ABC123", 1)
}
