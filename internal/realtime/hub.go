package realtime

import (
	"encoding/json"
	"log"
	"sync"

	websocket "github.com/gofiber/contrib/websocket"
)

// Hub tracks live websocket connections per user. It doubles as the presence
// source for notification fan-out: a user is online while they hold at least
// one open socket.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[client.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.userID] = set
	}
	set[client] = struct{}{}
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, exists := set[client]; exists {
		delete(set, client)
		close(client.send)
	}
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
}

func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// Broadcast delivers an event to every live connection of the given users.
// Slow consumers are dropped rather than blocking the sender.
func (h *Hub) Broadcast(userIDs []string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("chat hub encode event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, userID := range userIDs {
		set, ok := h.clients[userID]
		if !ok {
			continue
		}
		for client := range set {
			select {
			case client.send <- payload:
			default:
				delete(set, client)
				close(client.send)
			}
		}
		if len(set) == 0 {
			delete(h.clients, userID)
		}
	}
}

// ReadPump drains the connection until the client goes away. Incoming frames
// carry no commands; messages are submitted over the REST API.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
