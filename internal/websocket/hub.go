package websocket

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/smukkama/water-monitor/internal/connection"
	"github.com/smukkama/water-monitor/internal/logger"
	"github.com/smukkama/water-monitor/internal/metrics"
	"github.com/smukkama/water-monitor/internal/protocol"
)

const sendBufferSize = 32

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard may be served from another origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SnapshotFunc returns the payload sent to a client right after it connects
type SnapshotFunc func() interface{}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	manager  *connection.Manager
	snapshot SnapshotFunc
	clients  map[string]*Client
	mu       sync.RWMutex
	log      zerolog.Logger
}

// NewHub creates a hub that registers clients with the given manager
func NewHub(manager *connection.Manager, snapshot SnapshotFunc) *Hub {
	return &Hub{
		manager:  manager,
		snapshot: snapshot,
		clients:  make(map[string]*Client),
		log:      logger.WithComponent("websocket"),
	}
}

// ServeWS upgrades the request and starts the client pumps
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		ID:   uuid.New().String(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	if err := h.manager.Register(client.ID, remoteHost(r), r.UserAgent(), conn); err != nil {
		h.log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("rejecting websocket client")
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error())
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
		return
	}

	// The snapshot is queued while holding the lock so no broadcast can
	// reach this client ahead of it
	h.mu.Lock()
	if h.snapshot != nil {
		if data, err := protocol.Encode(protocol.MsgTypeSnapshot, h.snapshot()); err == nil {
			client.enqueue(data)
		} else {
			h.log.Error().Err(err).Msg("failed to encode snapshot")
		}
	}
	h.clients[client.ID] = client
	count := len(h.clients)
	h.mu.Unlock()
	metrics.WebsocketClients.Set(float64(count))

	host := remoteHost(r)
	h.log.Info().
		Str("client_id", client.ID).
		Str("remote_addr", r.RemoteAddr).
		Int("host_connections", len(h.manager.GetByHost(host))).
		Msg("websocket client connected")

	go client.writePump()
	go client.readPump()
}

// Broadcast sends a message to every client. Clients whose buffers are full are dropped.
func (h *Hub) Broadcast(msgType protocol.MessageType, payload interface{}) {
	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		h.log.Error().Err(err).Str("type", string(msgType)).Msg("failed to encode broadcast")
		return
	}

	h.mu.RLock()
	var slow []*Client
	for _, c := range h.clients {
		if !c.enqueue(data) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn().Str("client_id", c.ID).Msg("send buffer full, dropping client")
		h.unregister(c)
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RunSweeper closes clients idle longer than timeout until ctx is done
func (h *Hub) RunSweeper(ctx context.Context, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.manager.CloseInactive(timeout); n > 0 {
				h.log.Info().Int("closed", n).Msg("closed inactive websocket clients")
			}
		}
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	delete(h.clients, c.ID)
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}

	c.closeSend()
	if err := h.manager.Unregister(c.ID); err != nil {
		h.log.Debug().Err(err).Msg("client already unregistered")
	}
	metrics.WebsocketClients.Set(float64(count))

	h.log.Info().Str("client_id", c.ID).Msg("websocket client disconnected")
}

func (h *Hub) touch(c *Client) {
	if err := h.manager.UpdateActivity(c.ID); err != nil {
		h.log.Debug().Err(err).Str("client_id", c.ID).Msg("activity update for unknown client")
	}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
