package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
	sendBuffer     = 32
)

// Client is one websocket subscriber of a device session
type Client struct {
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte

	hub *Hub
}

// Hub routes session events to the websocket clients of that session
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	done       chan struct{}
	logger     *zap.Logger
}

// NewHub creates a hub; Run must be started before clients register
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// NewClient creates a client bound to the hub
func (h *Hub) NewClient(sessionID string, conn *websocket.Conn) *Client {
	return &Client{
		SessionID: sessionID,
		Conn:      conn,
		Send:      make(chan []byte, sendBuffer),
		hub:       h,
	}
}

// Queue buffers a frame ahead of the hub's events. Once the client is
// registered its Send channel belongs to the hub, so Queue must be called before Register.
func (c *Client) Queue(frame []byte) bool {
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

// Run serves registrations and broadcasts until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for sessionID := range h.clients {
				h.drop(sessionID)
			}
			return

		case client := <-h.register:
			set, ok := h.clients[client.SessionID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.SessionID] = set
			}
			set[client] = true
			h.logger.Debug("Client registered", zap.String("session_id", client.SessionID))

		case client := <-h.unregister:
			if set, ok := h.clients[client.SessionID]; ok && set[client] {
				delete(set, client)
				close(client.Send)
				if len(set) == 0 {
					delete(h.clients, client.SessionID)
				}
				h.logger.Debug("Client unregistered", zap.String("session_id", client.SessionID))
			}

		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

func (h *Hub) deliver(ev Event) {
	set, ok := h.clients[ev.SessionID]
	if !ok {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to marshal event", zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}

	for client := range set {
		select {
		case client.Send <- data:
		default:
			// slow consumer
			delete(set, client)
			close(client.Send)
		}
	}

	if ev.Type == TypeClosed {
		h.drop(ev.SessionID)
	} else if len(set) == 0 {
		delete(h.clients, ev.SessionID)
	}
}

func (h *Hub) drop(sessionID string) {
	for client := range h.clients[sessionID] {
		close(client.Send)
	}
	delete(h.clients, sessionID)
}

// Register subscribes a client. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its Send channel
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish implements Publisher
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	select {
	case h.broadcast <- ev:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WritePump forwards queued events to the connection and keeps it alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump drains the connection until it closes, then unregisters the client.
// Devices do not send anything on the event stream besides control frames.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("Event stream closed", zap.String("session_id", c.SessionID), zap.Error(err))
			}
			return
		}
	}
}
