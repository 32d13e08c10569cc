package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event is one change notification. Consumers use events only to
// invalidate cached query results; no ordering or delivery guarantees
// beyond "eventually triggers a refetch".
type Event struct {
	Table string `json:"table"`
	Op    string `json:"op"`
	ID    string `json:"id,omitempty"`
}

// Client is one connected console subscriber
type Client struct {
	conn   *websocket.Conn
	send   chan Event
	tables map[string]bool
	mu     sync.Mutex
}

// Hub fans change events out to websocket clients keyed by table name
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]bool

	sendBuffer int
}

// NewHub creates a websocket fan-out hub
func NewHub(sendBuffer int, logger *zap.Logger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleConnection upgrades an HTTP request and serves the client until
// it disconnects. The client sends subscribe/unsubscribe frames naming
// tables; the hub pushes matching events.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		conn:   conn,
		send:   make(chan Event, h.sendBuffer),
		tables: make(map[string]bool),
	}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	go h.writeLoop(client)
	go h.readLoop(client)
	return nil
}

// Broadcast delivers an event to every client subscribed to its table.
// Slow clients are skipped, not waited for.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		client.mu.Lock()
		subscribed := client.tables[event.Table]
		client.mu.Unlock()
		if !subscribed {
			continue
		}
		select {
		case client.send <- event:
		default:
			h.logger.Warn("dropping event for slow realtime client",
				zap.String("table", event.Table))
		}
	}
}

type subscribeFrame struct {
	Action string `json:"action"` // subscribe | unsubscribe
	Table  string `json:"table"`
}

func (h *Hub) readLoop(client *Client) {
	defer h.remove(client)

	for {
		var frame subscribeFrame
		if err := client.conn.ReadJSON(&frame); err != nil {
			return
		}
		client.mu.Lock()
		switch frame.Action {
		case "subscribe":
			client.tables[frame.Table] = true
		case "unsubscribe":
			delete(client.tables, frame.Table)
		}
		client.mu.Unlock()
	}
}

func (h *Hub) writeLoop(client *Client) {
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case event, ok := <-client.send:
			if !ok {
				return
			}
			if err := client.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ping.C:
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
	client.conn.Close()
}
