package ws

import (
	"encoding/json"
	"log"

	"rugsServer/game"
)

// Hub manages the set of live client sessions and fans broadcasts out to
// them. It never decides trade or round outcomes; it only relays what
// the room produced.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan interface{}

	room *game.Room
}

// NewHub creates a hub; call SetRoom before serving connections.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan interface{}, 256),
	}
}

// SetRoom attaches the game room the hub reads snapshots from.
func (h *Hub) SetRoom(room *game.Room) { h.room = room }

// Broadcast queues a message for every connected client. Implements
// game.Broadcaster. Dropping on a full queue keeps the round loop from
// ever blocking on slow consumers.
func (h *Hub) Broadcast(v interface{}) {
	select {
	case h.broadcast <- v:
	default:
		log.Println("⚠️  Broadcast queue full, dropping message")
	}
}

// Run is the hub's event loop: registration, unregistration and fanout
// all serialize here, so every connection sees messages in generation
// order.
func (h *Hub) Run() {
	log.Println("🚀 Connection hub started")

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.Printf("✅ Client connected: %s (total: %d)", client.id, len(h.clients))
			h.fanout(clientCountMessage(len(h.clients)))

		case client := <-h.unregister:
			// never close client.send here: restore goroutines and the
			// ping loop may still unicast after teardown, those sends
			// must land in a dead buffer, not panic
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				log.Printf("👋 Client disconnected: %s (total: %d)", client.id, len(h.clients))
				h.fanout(clientCountMessage(len(h.clients)))
			}

		case message := <-h.broadcast:
			h.fanout(message)
		}
	}
}

// fanout marshals once and hands the frame to every client's writer.
func (h *Hub) fanout(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("❌ Failed to marshal broadcast: %v", err)
		return
	}
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// slow consumer, skip the frame rather than stall the hub
			log.Printf("⚠️  Client %s send buffer full, skipping message", client.id)
		}
	}
}
