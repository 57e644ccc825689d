package stream

import (
	"net/http"
	"time"
)

const (
	// Time between keepalive comments.
	keepalivePeriod = 15 * time.Second

	// Buffer size for a client's outgoing messages.
	sendBufferSize = 64
)

// Client is one attached SSE consumer.
type Client struct {
	send       chan []byte
	attachedAt time.Time
}

// NewClient creates a client ready to be registered with a hub.
func NewClient() *Client {
	return &Client{
		send:       make(chan []byte, sendBufferSize),
		attachedAt: time.Now(),
	}
}

// Serve writes the client's event stream to the response until the
// request context ends or the hub closes the client.
func Serve(w http.ResponseWriter, r *http.Request, hub *Hub) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := NewClient()
	hub.Register(client)
	defer hub.Unregister(client)

	_, _ = w.Write([]byte("event: connected\ndata: {\"status\":\"connected\"}\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(keepalivePeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
