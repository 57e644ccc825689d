// Package presence maintains online/offline markers for identities. A
// Tracker publishes the local identity's own presence, arming an
// on-disconnect write so an ungraceful drop still flips the marker; a
// Watcher follows the markers of other identities.
package presence

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tallyboard/lobby/internal/model"
	"github.com/tallyboard/lobby/internal/storage"
)

// Tracker keeps one identity's presence marker in sync with transport
// connectivity. On every (re)connection it first arms the offline
// on-disconnect write and only then publishes online, so there is no
// window in which a drop could leave a dangling online marker.
type Tracker struct {
	store  storage.Store
	id     model.PlayerID
	logger *slog.Logger

	cancel storage.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewTracker starts publishing presence for the identity. Publication is
// driven by the store's connectivity signal, including its initial replay.
func NewTracker(store storage.Store, id model.PlayerID, logger *slog.Logger) *Tracker {
	t := &Tracker{
		store:  store,
		id:     id,
		logger: logger.With(slog.String("component", "presence"), slog.String("identity", string(id))),
	}
	t.cancel = store.SubscribeConnectivity(t.onConnectivity)
	return t
}

func (t *Tracker) onConnectivity(connected bool) {
	if !connected {
		// The offline write is the store's job now; it fires the armed
		// on-disconnect registration server-side.
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	ctx := context.Background()
	if err := t.store.RegisterOnDisconnect(ctx, t.id, model.PresenceOffline); err != nil {
		t.logger.Warn("failed to arm on-disconnect write", slog.Any("error", err))
		return
	}
	if err := t.store.SetPresence(ctx, t.id, model.PresenceOnline); err != nil {
		t.logger.Warn("failed to publish online presence", slog.Any("error", err))
	}
}

// Close publishes a graceful offline marker and disarms the
// on-disconnect write.
func (t *Tracker) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.cancel()

	ctx := context.Background()
	if err := t.store.ClearOnDisconnect(ctx, t.id); err != nil {
		t.logger.Warn("failed to disarm on-disconnect write", slog.Any("error", err))
	}
	return t.store.SetPresence(ctx, t.id, model.PresenceOffline)
}
