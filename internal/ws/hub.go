package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dm-service/internal/models"
)

// defaultWriteWait bounds how long a push may wait on a slow subscriber.
const defaultWriteWait = 5 * time.Second

type client struct {
	conn    *websocket.Conn
	info    ConnInfo
	writeMu sync.Mutex
}

func (c *client) write(payload []byte, wait time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub tracks open websocket connections per user. A nil *Hub drops every
// notification.
type Hub struct {
	rooms     map[string]map[*websocket.Conn]*client
	mu        sync.RWMutex
	writeWait time.Duration
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:     make(map[string]map[*websocket.Conn]*client),
		writeWait: defaultWriteWait,
	}
}

// AddClient registers a connection for userID.
func (h *Hub) AddClient(userID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[userID]; !ok {
		h.rooms[userID] = make(map[*websocket.Conn]*client)
	}
	h.rooms[userID][conn] = &client{conn: conn, info: info}
}

// RemoveClient drops a connection and reports whether it was registered.
func (h *Hub) RemoveClient(userID string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.rooms[userID]
	if !ok {
		return false
	}
	if _, ok := conns[conn]; !ok {
		return false
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.rooms, userID)
	}
	return true
}

// Connections returns the number of open connections for userID.
func (h *Hub) Connections(userID string) int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// NotifyUser pushes event to every connection userID has open. Each write is
// bounded by the hub's write deadline; a connection that misses it is closed
// and dropped.
func (h *Hub) NotifyUser(userID string, event models.ChatEvent) {
	if h == nil {
		return
	}
	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[userID]))
	for _, c := range h.rooms[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	if len(clients) == 0 {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("websocket encode error: %v", err)
		return
	}
	for _, c := range clients {
		if err := c.write(payload, h.writeWait); err != nil {
			log.Printf("websocket write error: user_id=%s conn_id=%s err=%v", userID, c.info.ConnID, err)
			_ = c.conn.Close()
			if h.RemoveClient(userID, c.conn) {
				publishConnEvent(context.Background(), c.info, "ws_error", err.Error())
			}
		}
	}
}

// NotifyUsers pushes the same event to several users, once per distinct id.
func (h *Hub) NotifyUsers(event models.ChatEvent, userIDs ...string) {
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		h.NotifyUser(id, event)
	}
}
