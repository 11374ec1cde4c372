package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/dineflow/api/internal/events"
)

// ErrHubClosed is returned by Publish once Run has returned.
var ErrHubClosed = errors.New("hub closed")

// Message is what a subscriber receives over the socket.
type Message struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	// Registered clients by topic
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan events.Event

	// done is closed when Run returns.
	done chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan events.Event, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled.
// Call it as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			for _, topic := range client.topics {
				if h.rooms[topic] == nil {
					h.rooms[topic] = make(map[*Client]bool)
				}
				h.rooms[topic][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			h.deliver(event)
			h.mu.Unlock()
		}
	}
}

// deliver sends event to each subscribed client once, even when the client
// is in several of the event's rooms. Callers hold mu.
func (h *Hub) deliver(event events.Event) {
	seen := make(map[*Client]bool)
	for _, topic := range event.Topics {
		message, err := json.Marshal(Message{Type: event.Type, Topic: topic, Payload: event.Payload})
		if err != nil {
			continue
		}
		for client := range h.rooms[topic] {
			if seen[client] {
				continue
			}
			seen[client] = true
			select {
			case client.send <- message:
			default:
				// Client's send buffer is full; drop it.
				h.drop(client)
			}
		}
	}
}

// drop removes client from every room and closes its send channel. Callers hold mu.
func (h *Hub) drop(client *Client) {
	registered := false
	for _, topic := range client.topics {
		clients, ok := h.rooms[topic]
		if !ok || !clients[client] {
			continue
		}
		registered = true
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, topic)
		}
	}
	if registered {
		close(client.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.drop(client)
		}
	}
}

// Register adds client to its rooms. It reports false once the hub has
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client from its rooms. It returns immediately once
// the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an event for every room named in its topics.
func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	select {
	case h.broadcast <- e:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribers reports how many clients are in a room.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[topic])
}
