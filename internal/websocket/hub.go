package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/booking-ledger/internal/events"
	"github.com/cx-tal-miterani/booking-ledger/internal/logger"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSeatsUpdated MessageType = "seats_updated"
)

// Message represents a WebSocket message
type Message struct {
	Type           MessageType `json:"type"`
	FlightID       string      `json:"flight_id"`
	SeatsAvailable int         `json:"seats_available"`
	TotalSeats     int         `json:"total_seats,omitempty"`
	Event          events.Type `json:"event,omitempty"`
	Timestamp      int64       `json:"timestamp"`
}

// Hub manages WebSocket connections per flight
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	mu         sync.RWMutex
	log        *logger.Logger
}

// NewHub creates a new Hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub's main loop. It returns when ctx is done, closing every
// client's send channel.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for flightID, clients := range h.clients {
				for client := range clients {
					close(client.send)
				}
				delete(h.clients, flightID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.flightID] == nil {
				h.clients[client.flightID] = make(map[*Client]bool)
			}
			h.clients[client.flightID][client] = true
			total := len(h.clients[client.flightID])
			h.mu.Unlock()
			h.log.Debug("WEBSOCKET", "client registered", "flight_id", client.flightID, "clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.flightID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.flightID)
					}
				}
			}
			h.mu.Unlock()
			h.log.Debug("WEBSOCKET", "client unregistered", "flight_id", client.flightID)

		case message := <-h.broadcast:
			flightID, err := uuid.Parse(message.FlightID)
			if err != nil {
				h.log.Warn("WEBSOCKET", "invalid flight id in broadcast", "flight_id", message.FlightID)
				continue
			}

			data, err := json.Marshal(message)
			if err != nil {
				h.log.Error("WEBSOCKET", "failed to marshal message", "error", err)
				continue
			}

			h.mu.Lock()
			clients := h.clients[flightID]
			for client := range clients {
				select {
				case client.send <- data:
				default:
					// slow consumer
					delete(clients, client)
					close(client.send)
				}
			}
			if len(clients) == 0 {
				delete(h.clients, flightID)
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastSeats tells every client watching flightID its new seat count
func (h *Hub) BroadcastSeats(flightID uuid.UUID, seatsAvailable, totalSeats int, cause events.Type) {
	msg := &Message{
		Type:           MessageTypeSeatsUpdated,
		FlightID:       flightID.String(),
		SeatsAvailable: seatsAvailable,
		TotalSeats:     totalSeats,
		Event:          cause,
		Timestamp:      time.Now().UnixMilli(),
	}
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("WEBSOCKET", "broadcast queue full, dropping update", "flight_id", flightID)
	}
}

// Publish makes the hub an events sink. Events without a seat count are
// ignored.
func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	if e.SeatsAvailable == nil {
		return nil
	}
	h.BroadcastSeats(e.FlightID, *e.SeatsAvailable, e.TotalSeats, e.Type)
	return nil
}

// GetClientCount returns the number of clients watching a flight
func (h *Hub) GetClientCount(flightID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[flightID])
}
