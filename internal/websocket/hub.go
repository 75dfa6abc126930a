package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/moonvale/nachtrat/server/internal/metrics"
	"github.com/moonvale/nachtrat/server/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 2048
)

// Hub maintains the websocket subscribers of each session and fans out
// signal messages to them. The messages are state-free: a subscriber that
// receives game_dirty re-fetches its own projection over HTTP, so the push
// channel never carries role information.
type Hub struct {
	clients    map[*Client]bool
	sessions   map[uuid.UUID]map[*Client]bool
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewHub(log *zap.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		sessions:   make(map[uuid.UUID]map[*Client]bool),
		broadcast:  make(chan models.WSMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
		metrics:    m,
	}
}

// Run drives the hub's event loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.log.Info("websocket hub shutting down")
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case msg := <-h.broadcast:
			h.broadcastToSession(msg)
		}
	}
}

// Signal queues a message for every subscriber of a session.
func (h *Hub) Signal(sessionID uuid.UUID, msgType models.WSMessageType) {
	h.broadcast <- models.WSMessage{
		Type:      msgType,
		SessionID: sessionID,
		Timestamp: time.Now(),
	}
}

// SessionClientCount reports how many subscribers a session currently has.
func (h *Hub) SessionClientCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if h.sessions[client.SessionID] == nil {
		h.sessions[client.SessionID] = make(map[*Client]bool)
	}
	h.sessions[client.SessionID][client] = true

	if h.metrics != nil {
		h.metrics.ActiveSockets.Inc()
	}
	h.log.Debug("subscriber connected",
		zap.String("session_id", client.SessionID.String()),
		zap.String("client_id", client.ClientID))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	if clients, ok := h.sessions[client.SessionID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.sessions, client.SessionID)
		}
	}

	if h.metrics != nil {
		h.metrics.ActiveSockets.Dec()
	}
	h.log.Debug("subscriber disconnected",
		zap.String("session_id", client.SessionID.String()),
		zap.String("client_id", client.ClientID))
}

// broadcastToSession takes the write lock: a subscriber with a full send
// buffer is dropped here, which mutates the client maps.
func (h *Hub) broadcastToSession(msg models.WSMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.sessions[msg.SessionID]
	if !ok {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal signal", zap.Error(err))
		return
	}

	for client := range clients {
		select {
		case client.send <- data:
		default:
			// Send buffer full, drop the subscriber.
			close(client.send)
			delete(h.clients, client)
			delete(clients, client)
		}
	}
}

// Client is one websocket subscription to a session.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	SessionID uuid.UUID
	ClientID  string
}

func NewClient(hub *Hub, conn *websocket.Conn, sessionID uuid.UUID, clientID string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 64),
		SessionID: sessionID,
		ClientID:  clientID,
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	c.hub.register <- c
}

// ReadPump consumes inbound frames for connection maintenance. Subscribers
// never send game state over the socket; anything but ping is ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("websocket read error", zap.Error(err))
			}
			break
		}

		var msg models.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == models.WSTypePing {
			pong := models.WSMessage{Type: models.WSTypePong, SessionID: c.SessionID, Timestamp: time.Now()}
			if data, err := json.Marshal(pong); err == nil {
				c.send <- data
			}
		}
	}
}

// WritePump pushes queued signals to the connection and keeps it alive
// with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
