package stub

import (
	"sync"

	"github.com/gorilla/websocket"
)

// member is one registered connection: the room it has joined plus a write
// mutex, since gorilla allows only one concurrent writer per connection.
type member struct {
	writeMu sync.Mutex
	room    string
}

// Hub tracks active WebSocket connections and the room each one has joined.
// Joining a new room simply re-points the connection; there is no explicit
// leave, matching the client protocol.
type Hub struct {
	mu      sync.RWMutex
	members map[*websocket.Conn]*member
}

func NewHub() *Hub {
	return &Hub{
		members: make(map[*websocket.Conn]*member),
	}
}

// Register adds a connection with no room joined yet.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.members[conn] = &member{}
}

// Unregister removes a connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.members, conn)
}

// Join points the connection at the given room.
func (h *Hub) Join(conn *websocket.Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.members[conn]; ok {
		m.room = room
	}
}

// Send writes one payload to a registered connection, serialized against any
// concurrent broadcast to the same connection.
func (h *Hub) Send(conn *websocket.Conn, payload any) error {
	h.mu.RLock()
	m := h.members[conn]
	h.mu.RUnlock()
	if m == nil {
		return nil
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(payload)
}

// BroadcastRoom sends the payload to every connection joined to the room.
// Connections that fail to write are closed; removal happens on their read
// loop exit.
func (h *Hub) BroadcastRoom(room string, payload any) {
	type target struct {
		conn *websocket.Conn
		m    *member
	}
	h.mu.RLock()
	var targets []target
	for conn, m := range h.members {
		if m.room == room {
			targets = append(targets, target{conn, m})
		}
	}
	h.mu.RUnlock()

	for _, t := range targets {
		t.m.writeMu.Lock()
		err := t.conn.WriteJSON(payload)
		t.m.writeMu.Unlock()
		if err != nil {
			t.conn.Close()
		}
	}
}
