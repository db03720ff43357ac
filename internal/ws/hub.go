package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// businessEvent is an internal struct for routing events to business rooms.
// A nil BusinessID means every room receives the event.
type businessEvent struct {
	BusinessID *uuid.UUID
	Event      Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by business ID
	rooms map[uuid.UUID]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *businessEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *businessEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.businessID] == nil {
				h.rooms[client.businessID] = make(map[*Client]bool)
			}
			h.rooms[client.businessID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.businessID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					// Clean up empty rooms
					if len(clients) == 0 {
						delete(h.rooms, client.businessID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()

			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			if event.BusinessID != nil {
				h.sendToRoom(*event.BusinessID, message)
			} else {
				for businessID := range h.rooms {
					h.sendToRoom(businessID, message)
				}
			}
			h.mu.Unlock()
		}
	}
}

// sendToRoom delivers a marshalled message to every client in one room.
// Caller must hold h.mu.
func (h *Hub) sendToRoom(businessID uuid.UUID, message []byte) {
	for client := range h.rooms[businessID] {
		select {
		case client.send <- message:
		default:
			// Client's send buffer is full, close and unregister
			close(client.send)
			delete(h.rooms[businessID], client)
			if len(h.rooms[businessID]) == 0 {
				delete(h.rooms, businessID)
			}
		}
	}
}

// BroadcastToBusiness sends an event to all clients subscribed to a specific
// business. This is the public API for handlers to broadcast events.
func (h *Hub) BroadcastToBusiness(businessID uuid.UUID, event Event) {
	h.broadcast <- &businessEvent{
		BusinessID: &businessID,
		Event:      event,
	}
}

// BroadcastAll sends an event to every connected client regardless of
// business. Used for platform-wide events like a published menu or a locked
// day.
func (h *Hub) BroadcastAll(event Event) {
	h.broadcast <- &businessEvent{Event: event}
}

// MarshalPayload builds an Event from a type and any JSON-serializable
// payload. Marshal errors produce an event with a null payload rather than
// failing the caller.
func MarshalPayload(eventType string, payload interface{}) Event {
	b, err := json.Marshal(payload)
	if err != nil {
		b = []byte("null")
	}
	return Event{Type: eventType, Payload: b}
}
