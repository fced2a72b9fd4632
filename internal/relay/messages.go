package relay

import (
	"encoding/json"

	"github.com/ridepoolhq/ridepool-backend/pkg/types"
)

// Event names on the relay channel.
const (
	EventJoinRide       = "join_ride"
	EventUpdateLocation = "update_location"
	EventLocationUpdate = "location_update"
)

// Envelope frames every message on the wire.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// JoinRidePayload subscribes the connection to a ride code. The code is not
// validated against the ride store.
type JoinRidePayload struct {
	RideCode string `json:"ride_code"`
}

// UpdateLocationPayload is a client-published coordinate sample.
type UpdateLocationPayload struct {
	RideCode  string  `json:"ride_code"`
	UserID    int64   `json:"user_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationUpdatePayload is fanned out to the other room members with a
// server-stamped receipt time.
type LocationUpdatePayload struct {
	UserID            int64         `json:"user_id"`
	Latitude          float64       `json:"latitude"`
	Longitude         float64       `json:"longitude"`
	LocationTimestamp types.UTCTime `json:"location_timestamp"`
}

func marshalEnvelope(eventType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Data: data})
}
