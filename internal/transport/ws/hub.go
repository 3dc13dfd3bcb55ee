package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections for duel rooms. Every participant is an
// equal subscriber; there is no host-specific channel.
type Hub struct {
	// duelID -> userID -> connection
	conns map[string]map[string]*Connection

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *broadcastMessage
}

// Connection represents one subscriber to a room.
type Connection struct {
	DuelID string
	UserID string
	Send   chan []byte
}

type broadcastMessage struct {
	DuelID  string
	ToUser  string // empty means every subscriber in the room
	Message *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *broadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.DuelID] == nil {
				h.conns[conn.DuelID] = make(map[string]*Connection)
			}
			if existing, ok := h.conns[conn.DuelID][conn.UserID]; ok {
				close(existing.Send)
			}
			h.conns[conn.DuelID][conn.UserID] = conn
			h.mu.Unlock()
			log.Debug().Str("duel_id", conn.DuelID).Str("user_id", conn.UserID).Msg("ws subscriber connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if subs, ok := h.conns[conn.DuelID]; ok {
				if existing, ok := subs[conn.UserID]; ok && existing == conn {
					delete(subs, conn.UserID)
					close(conn.Send)
					if len(subs) == 0 {
						delete(h.conns, conn.DuelID)
					}
				}
			}
			h.mu.Unlock()
			log.Debug().Str("duel_id", conn.DuelID).Str("user_id", conn.UserID).Msg("ws subscriber disconnected")

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)
			if subs, ok := h.conns[msg.DuelID]; ok {
				for userID, conn := range subs {
					if msg.ToUser != "" && msg.ToUser != userID {
						continue
					}
					select {
					case conn.Send <- data:
					default:
						// Drop message if buffer full
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToRoom sends an event to every subscriber of a room (implements
// service.Broadcaster).
func (h *Hub) BroadcastToRoom(duelID string, event string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &broadcastMessage{
		DuelID: duelID,
		Message: &Message{
			Type:    event,
			Payload: data,
		},
	}
}

// BroadcastToUser sends an event to one subscriber (implements
// service.Broadcaster).
func (h *Hub) BroadcastToUser(duelID, userID string, event string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &broadcastMessage{
		DuelID: duelID,
		ToUser: userID,
		Message: &Message{
			Type:    event,
			Payload: data,
		},
	}
}
