// Package events pushes filter activity to connected WebSocket observers so
// an operator can watch decisions in real time. Broadcasting is fire and
// forget; a slow or absent observer never slows down a chat request.
package events

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HubConfig controls which event types are broadcast.
type HubConfig struct {
	BroadcastDecisions   bool
	BroadcastConnections bool
}

// Client is one connected observer.
type Client struct {
	id         string
	conn       *websocket.Conn
	send       chan Event
	subscribed []Type // empty means all
}

// Hub maintains the set of active observers and fans events out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	config     *HubConfig
	logger     *zap.Logger
	mu         sync.RWMutex
}

// NewHub creates an events hub. Run must be started on its own goroutine.
func NewHub(config *HubConfig, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		config:     config,
		logger:     logger,
	}
}

// Run handles registration and broadcasting until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case event := <-h.broadcast:
			h.fanOut(event)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	active := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("observer connected",
		zap.String("client_id", client.id),
		zap.Int("active", active),
	)

	if h.config.BroadcastConnections {
		h.Broadcast(Event{
			Type:      TypeConnection,
			Timestamp: time.Now().UTC(),
			Data:      ConnectionEvent{Action: "connected", ClientID: client.id},
		})
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	active := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("observer disconnected",
		zap.String("client_id", client.id),
		zap.Int("active", active),
	)
}

func (h *Hub) fanOut(event Event) {
	// Full lock: fan-out may drop a stalled client from the map.
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.wants(event.Type) {
			continue
		}
		select {
		case client.send <- event:
		default:
			// Observer cannot keep up; drop it rather than block the hub.
			h.logger.Warn("observer send buffer full, dropping connection",
				zap.String("client_id", client.id),
			)
			delete(h.clients, client)
			close(client.send)
		}
	}
}

func (c *Client) wants(t Type) bool {
	if len(c.subscribed) == 0 {
		return true
	}
	for _, sub := range c.subscribed {
		if sub == t {
			return true
		}
	}
	return false
}

// Broadcast queues an event for all observers, subject to configuration.
// It never blocks the caller.
func (h *Hub) Broadcast(event Event) {
	switch event.Type {
	case TypeDecision:
		if !h.config.BroadcastDecisions {
			return
		}
	case TypeConnection:
		if !h.config.BroadcastConnections {
			return
		}
	}

	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			zap.String("event_type", string(event.Type)),
		)
	}
}

// HandleWebSocket upgrades the connection and starts the client pumps.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:   fmt.Sprintf("observer_%d", time.Now().UnixNano()),
		conn: conn,
		send: make(chan Event, 64),
	}

	h.register <- client

	go h.writePump(client)
	go h.readPump(client)
}

func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case event, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(client *Client) {
	defer func() {
		h.unregister <- client
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("websocket read failed",
					zap.String("client_id", client.id),
					zap.Error(err),
				)
			}
			return
		}
		if msg.Type == "subscribe" {
			// Guarded by the hub mutex; fanOut reads this under the same lock.
			h.mu.Lock()
			client.subscribed = msg.Events
			h.mu.Unlock()
		}
	}
}

// ActiveClients returns the number of connected observers.
func (h *Hub) ActiveClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
