package realtime

import (
	"encoding/json"
	"sync"

	"github.com/collabspace/server/pkg/logger"
)

// RoomBus routes events to sets of connected clients. The concrete Hub is
// the production implementation; tests substitute fakes.
type RoomBus interface {
	Join(room string, c *Client)
	Leave(c *Client)
	EmitToRoom(room, event string, payload interface{})
	BroadcastToRoom(room, event string, payload interface{}, exclude *Client)
	EmitToUser(userID uint, event string, payload interface{})
}

// Hub tracks room membership and fans frames out to clients.
type Hub struct {
	rooms map[string]map[*Client]struct{}
	mu    sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Join adds a client to a room.
func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[room]
	if !ok {
		clients = make(map[*Client]struct{})
		h.rooms[room] = clients
	}
	clients[c] = struct{}{}
	c.rooms = append(c.rooms, room)
}

// Leave removes a client from every room it joined and releases its send
// channel. Called once, from the client's read pump on disconnect.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range c.rooms {
		if clients, ok := h.rooms[room]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.rooms = nil
	close(c.send)
}

// EmitToRoom sends an event to every client in the room.
func (h *Hub) EmitToRoom(room, event string, payload interface{}) {
	h.BroadcastToRoom(room, event, payload, nil)
}

// BroadcastToRoom sends an event to every client in the room except the
// excluded one. A client whose send buffer is full misses the frame; the
// write pump will catch a truly dead connection via ping timeout.
func (h *Hub) BroadcastToRoom(room, event string, payload interface{}, exclude *Client) {
	data, err := json.Marshal(Frame{Event: event, Payload: payload})
	if err != nil {
		logger.Errorf("[Hub] Failed to marshal %s frame: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[room] {
		if c == exclude {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client is slow, skip this frame
		}
	}
}

// EmitToUser sends an event to every connection in the user's personal room.
func (h *Hub) EmitToUser(userID uint, event string, payload interface{}) {
	h.EmitToRoom(UserRoom(userID), event, payload)
}

// RoomCount returns the number of clients currently in a room.
func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
