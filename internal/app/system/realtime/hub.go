// Package realtime routes domain events to live websocket connections.
//
// Connections are addressed through rooms: every connection sits in its
// user's personal room, and in any project rooms it explicitly joined. Room
// membership is process-local; RedisRelay carries deliveries between
// processes.
package realtime

import (
	"strings"
	"sync"

	"github.com/dalemusser/teamhub/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	projectRoomPrefix = "project_"
	userRoomPrefix    = "user_"
)

// ProjectRoom names the room of clients viewing a project.
func ProjectRoom(id primitive.ObjectID) string { return projectRoomPrefix + id.Hex() }

// UserRoom names the personal room of a user.
func UserRoom(id primitive.ObjectID) string { return userRoomPrefix + id.Hex() }

func roomKind(room string) string {
	if strings.HasPrefix(room, projectRoomPrefix) {
		return "project"
	}
	return "user"
}

// Hub tracks which clients are in which rooms.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}
	online  map[primitive.ObjectID]int
}

func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		online:  make(map[primitive.ObjectID]int),
	}
}

// Add registers c and places it in its personal room. It reports whether c is
// the user's first connection on this process.
func (h *Hub) Add(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.joinLocked(c, UserRoom(c.UserID()))
	h.online[c.UserID()]++
	metrics.RealtimeConnections.Inc()
	return h.online[c.UserID()] == 1
}

// Remove drops c from every room and closes its send queue. It reports
// whether c was the user's last connection on this process.
func (h *Hub) Remove(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	close(c.send)
	metrics.RealtimeConnections.Dec()

	uid := c.UserID()
	h.online[uid]--
	if h.online[uid] <= 0 {
		delete(h.online, uid)
		return true
	}
	return false
}

// Join puts c in room.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.joinLocked(c, room)
	}
}

// Leave takes c out of room. The personal room cannot be left.
func (h *Hub) Leave(c *Client, room string) {
	if room == UserRoom(c.UserID()) {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

// LeaveUser takes every client of userID out of room and returns how many
// left. Personal rooms are not affected.
func (h *Hub) LeaveUser(userID primitive.ObjectID, room string) int {
	if room == UserRoom(userID) {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for c := range h.rooms[room] {
		if c.UserID() == userID {
			h.leaveLocked(c, room)
			n++
		}
	}
	return n
}

// CloseRoom takes every client out of a project room.
func (h *Hub) CloseRoom(room string) int {
	if !strings.HasPrefix(room, projectRoomPrefix) {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for c := range h.rooms[room] {
		h.leaveLocked(c, room)
		n++
	}
	return n
}

// InRoom reports whether c is in room.
func (h *Hub) InRoom(c *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

// Online reports whether the user has a connection on this process.
func (h *Hub) Online(userID primitive.ObjectID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.online[userID] > 0
}

// RoomSize returns the number of clients in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Clients returns a snapshot of registered clients.
func (h *Hub) Clients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Deliver queues msg to every client in each room, skipping the client whose
// id is except. A client in two of the rooms receives msg twice. It returns
// the number of messages queued.
func (h *Hub) Deliver(rooms []string, msg []byte, except string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, room := range rooms {
		for c := range h.rooms[room] {
			if except != "" && c.id == except {
				continue
			}
			if c.enqueue(msg) {
				n++
				metrics.RealtimeDeliveries.WithLabelValues(roomKind(room)).Inc()
			}
		}
	}
	return n
}

func (h *Hub) joinLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}
