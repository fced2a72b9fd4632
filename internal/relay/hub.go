package relay

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ridepoolhq/ridepool-backend/pkg/config"
	pkgerrors "github.com/ridepoolhq/ridepool-backend/pkg/errors"
	"github.com/ridepoolhq/ridepool-backend/pkg/logger"
	"github.com/ridepoolhq/ridepool-backend/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub is the in-memory room registry for the live-location relay. Rooms are
// keyed by ride code and hold only connection state; nothing is persisted.
type Hub struct {
	cfg     config.RelayConfig
	logg    *logger.Logger
	metrics *metrics.RelayMetrics
	now     func() time.Time

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// HubParams bundles the dependencies required to build a relay hub.
type HubParams struct {
	Config  config.RelayConfig
	Logger  *logger.Logger
	Metrics *metrics.RelayMetrics
}

// NewHub constructs the room registry.
func NewHub(params HubParams) (*Hub, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	return &Hub{
		cfg:     params.Config,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     func() time.Time { return time.Now().UTC() },
		rooms:   map[string]map[*Client]struct{}{},
	}, nil
}

// Join subscribes the client to a ride code room.
func (h *Hub) Join(c *Client, rideCode string) {
	code := strings.ToUpper(strings.TrimSpace(rideCode))
	if code == "" {
		return
	}

	h.mu.Lock()
	room, ok := h.rooms[code]
	if !ok {
		room = map[*Client]struct{}{}
		h.rooms[code] = room
	}
	room[c] = struct{}{}
	c.rooms[code] = struct{}{}
	h.mu.Unlock()

	ctx := h.logg.WithRideCode(context.Background(), code)
	ctx = h.logg.WithField(ctx, "connection_id", c.id)
	h.logg.Info(ctx, "relay client joined room")
}

// Remove drops the client from every room it subscribed to. Empty rooms are
// garbage collected.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	for code := range c.rooms {
		if room, ok := h.rooms[code]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, code)
			}
		}
	}
	c.rooms = map[string]struct{}{}
	h.mu.Unlock()
}

// Broadcast fans a message out to every room member except the sender. A
// member whose send buffer is full is dropped rather than blocking the
// publisher.
func (h *Hub) Broadcast(rideCode string, message []byte, exclude *Client) {
	// Sends stay under the read lock so Remove (write lock) cannot close a
	// member's channel mid-broadcast.
	h.mu.RLock()
	var dropped []*Client
	for member := range h.rooms[rideCode] {
		if member == exclude {
			continue
		}
		select {
		case member.send <- message:
		default:
			dropped = append(dropped, member)
		}
	}
	h.mu.RUnlock()

	for _, member := range dropped {
		h.metrics.IncDropped()
		ctx := h.logg.WithField(context.Background(), "connection_id", member.id)
		h.logg.Warn(ctx, "relay client dropped: send buffer full")
		member.close()
	}
}

// RoomSize reports the current member count for a ride code.
func (h *Hub) RoomSize(rideCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[rideCode])
}

// ServeWS upgrades the request and starts the connection pumps. The relay is
// deliberately unauthenticated.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logg.Error(r.Context(), "websocket upgrade failed", err)
		return
	}

	client := &Client{
		id:    uuid.NewString(),
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, h.sendBufferSize()),
		rooms: map[string]struct{}{},
	}
	h.metrics.ConnOpened()

	go client.writePump()
	go client.readPump()
}

func (h *Hub) sendBufferSize() int {
	if h.cfg.SendBufferSize > 0 {
		return h.cfg.SendBufferSize
	}
	return 256
}

func (h *Hub) maxMessageBytes() int64 {
	if h.cfg.MaxMessageBytes > 0 {
		return h.cfg.MaxMessageBytes
	}
	return 8192
}

func (h *Hub) pingInterval() time.Duration {
	if h.cfg.PingInterval > 0 {
		return h.cfg.PingInterval
	}
	return 30 * time.Second
}

func (h *Hub) pongWait() time.Duration {
	if h.cfg.PongWait > 0 {
		return h.cfg.PongWait
	}
	return 60 * time.Second
}

func (h *Hub) writeWait() time.Duration {
	if h.cfg.WriteWait > 0 {
		return h.cfg.WriteWait
	}
	return 10 * time.Second
}
