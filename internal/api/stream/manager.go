package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/tallyboard/lobby/internal/model"
	"github.com/tallyboard/lobby/internal/services/view"
	"github.com/tallyboard/lobby/internal/storage"
)

// Manager owns one hub per watched lobby, each fed by its own view
// synchronizer. Hubs are created on first demand and reaped once idle.
type Manager struct {
	store  storage.Store
	logger *slog.Logger

	mu      sync.Mutex
	watches map[model.LobbyCode]*lobbyWatch
	closed  bool
}

type lobbyWatch struct {
	hub  *Hub
	sync *view.Synchronizer
}

// NewManager creates a stream Manager.
func NewManager(store storage.Store, logger *slog.Logger) *Manager {
	return &Manager{
		store:   store,
		logger:  logger.With(slog.String("component", "stream")),
		watches: make(map[model.LobbyCode]*lobbyWatch),
	}
}

// Hub returns the hub watching the given lobby, starting a watch if none
// exists. The hub immediately begins receiving view events, so even the
// first client gets a snapshot without waiting for a write.
func (m *Manager) Hub(code model.LobbyCode) (*Hub, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.watches[code]; ok {
		return w.hub, nil
	}

	hub := NewHub(code, m.logger)
	syncr, err := view.NewSynchronizer(m.store, code, func(v view.View) {
		data, err := json.Marshal(v)
		if err != nil {
			m.logger.Error("failed to encode view event", slog.Any("error", err))
			return
		}
		hub.BroadcastEvent("view", string(data))
	}, m.logger)
	if err != nil {
		hub.Close()
		return nil, err
	}

	go hub.Run()
	m.watches[code] = &lobbyWatch{hub: hub, sync: syncr}
	m.logger.Info("lobby watch started", slog.String("code", string(code)))
	return hub, nil
}

// CleanupIdle tears down watches that no longer have any clients.
func (m *Manager) CleanupIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for code, w := range m.watches {
		if w.hub.ClientCount() == 0 {
			w.sync.Close()
			w.hub.Close()
			delete(m.watches, code)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("idle lobby watches reaped", slog.Int("removed", removed))
	}
}

// Run reaps idle watches on the given interval until the context ends.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.CleanupIdle()
		case <-ctx.Done():
			return
		}
	}
}

// Close tears down every watch.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for code, w := range m.watches {
		w.sync.Close()
		w.hub.Close()
		delete(m.watches, code)
	}
}

// WatchCount returns the number of active lobby watches.
func (m *Manager) WatchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watches)
}
