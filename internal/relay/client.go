package relay

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ridepoolhq/ridepool-backend/pkg/types"
)

// Client is one relay connection. Room membership lives on the hub; the
// client only tracks which codes it joined for cleanup.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// guarded by hub.mu
	rooms map[string]struct{}

	closeOnce sync.Once
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.hub.Remove(c)
		close(c.send)
		_ = c.conn.Close()
		c.hub.metrics.ConnClosed()
	})
}

func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(c.hub.maxMessageBytes())
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait()))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				ctx := c.hub.logg.WithField(context.Background(), "connection_id", c.id)
				c.hub.logg.Warn(ctx, "relay read failed")
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *Client) handleMessage(message []byte) {
	var envelope Envelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		ctx := c.hub.logg.WithField(context.Background(), "connection_id", c.id)
		c.hub.logg.Warn(ctx, "relay message is not valid JSON")
		return
	}

	switch envelope.Type {
	case EventJoinRide:
		var payload JoinRidePayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return
		}
		c.hub.Join(c, payload.RideCode)

	case EventUpdateLocation:
		var payload UpdateLocationPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return
		}
		c.relayLocation(payload)

	default:
		// Unknown event types are ignored rather than closing the connection.
	}
}

func (c *Client) relayLocation(payload UpdateLocationPayload) {
	code := strings.ToUpper(strings.TrimSpace(payload.RideCode))
	if code == "" {
		return
	}

	out, err := marshalEnvelope(EventLocationUpdate, LocationUpdatePayload{
		UserID:            payload.UserID,
		Latitude:          payload.Latitude,
		Longitude:         payload.Longitude,
		LocationTimestamp: types.NewUTCTime(c.hub.now()),
	})
	if err != nil {
		return
	}

	c.hub.metrics.IncBroadcast(EventLocationUpdate)
	c.hub.Broadcast(code, out, c)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.pingInterval())
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeWait()))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeWait()))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
