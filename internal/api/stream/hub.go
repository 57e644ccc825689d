// Package stream fans live lobby views out to SSE clients. Each watched
// lobby gets a Hub fed by a view synchronizer; clients attach to the hub
// and receive every re-emitted snapshot, starting with the latest one.
package stream

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tallyboard/lobby/internal/model"
)

// Hub manages the SSE clients watching a single lobby.
type Hub struct {
	code   model.LobbyCode
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]bool
	last    []byte

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a Hub for a lobby. Run must be started for it to do
// anything.
func NewHub(code model.LobbyCode, logger *slog.Logger) *Hub {
	return &Hub{
		code:       code,
		logger:     logger.With(slog.String("lobby", string(code))),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run drives the hub's event loop until Close.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			replay := h.last
			count := len(h.clients)
			h.mu.Unlock()
			// A late joiner should not wait for the next change to see
			// the lobby.
			if replay != nil {
				select {
				case client.send <- replay:
				default:
				}
			}
			h.logger.Debug("stream client attached", slog.Int("total_clients", count))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.mu.Unlock()
				h.logger.Debug("stream client detached",
					slog.Duration("connected_for", time.Since(client.attachedAt)),
					slog.Int("total_clients", count))
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.Lock()
			h.last = message
			dropped := 0
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					dropped++
				}
			}
			h.mu.Unlock()
			if dropped > 0 {
				h.logger.Warn("stream messages dropped, client buffers full",
					slog.Int("dropped", dropped))
			}

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register attaches a client to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister detaches a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a raw SSE message for all clients. Messages are
// dropped rather than blocking the caller when the hub is saturated.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("stream broadcast dropped, hub buffer full")
	}
}

// BroadcastEvent formats and broadcasts a named SSE event.
func (h *Hub) BroadcastEvent(event, data string) {
	h.Broadcast(formatEvent(event, data))
}

// Close stops the hub and disconnects all clients.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

// ClientCount returns the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// formatEvent renders an SSE frame. Each line of data carries its own
// "data: " prefix as the protocol requires.
func formatEvent(event, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(event)
	b.WriteByte('\n')
	for _, line := range strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return []byte(b.String())
}
