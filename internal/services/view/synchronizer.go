// Package view keeps live, self-consistent lobby snapshots flowing to
// consumers. A Synchronizer follows a single lobby code: it issues an
// initial read, then re-emits a full snapshot on every committed change,
// and degrades to a stale-but-marked view while the store is unreachable.
package view

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tallyboard/lobby/internal/model"
	"github.com/tallyboard/lobby/internal/storage"
)

// Status describes what the current View represents.
type Status string

const (
	// StatusLoading means no read has completed yet.
	StatusLoading Status = "loading"
	// StatusReady means Lobby holds the latest committed snapshot.
	StatusReady Status = "ready"
	// StatusNotFound means the lobby does not exist (never did, or was
	// deleted while being watched).
	StatusNotFound Status = "not_found"
	// StatusDisconnected means the store is unreachable; Lobby retains
	// the last snapshot seen, which may be stale.
	StatusDisconnected Status = "disconnected"
)

// View is a point-in-time observation of a lobby.
type View struct {
	Status Status       `json:"status"`
	Lobby  *model.Lobby `json:"lobby,omitempty"`
}

// UpdateFunc receives view updates. Calls are serialized; implementations
// must not call back into the Synchronizer.
type UpdateFunc func(View)

// Synchronizer follows one lobby code and pushes View updates to a
// single consumer.
type Synchronizer struct {
	store  storage.Store
	code   model.LobbyCode
	fn     UpdateFunc
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	current View

	cancelLobby storage.CancelFunc
	cancelConn  storage.CancelFunc
}

// NewSynchronizer starts following the given code. The change
// subscription is registered before the first read so no committed write
// can fall between them; the initial read itself is driven by the
// connectivity replay.
func NewSynchronizer(store storage.Store, code model.LobbyCode, fn UpdateFunc, logger *slog.Logger) (*Synchronizer, error) {
	s := &Synchronizer{
		store:   store,
		code:    code,
		fn:      fn,
		logger:  logger.With(slog.String("component", "view"), slog.String("code", string(code))),
		current: View{Status: StatusLoading},
	}

	cancelLobby, err := store.SubscribeLobby(code, s.onLobbyChange)
	if err != nil {
		return nil, err
	}
	s.cancelLobby = cancelLobby
	s.cancelConn = store.SubscribeConnectivity(s.onConnectivity)

	return s, nil
}

// Current returns the latest view without waiting for a change.
func (s *Synchronizer) Current() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Refetch forces a point read, bypassing the change feed. Useful after
// an operation whose result the caller wants reflected immediately.
func (s *Synchronizer) Refetch(ctx context.Context) error {
	lobby, err := s.store.GetLobby(ctx, s.code)
	switch {
	case errors.Is(err, model.ErrLobbyNotFound):
		s.setView(View{Status: StatusNotFound})
		return nil
	case err != nil:
		s.degrade()
		return err
	default:
		s.setView(View{Status: StatusReady, Lobby: lobby})
		return nil
	}
}

// Close stops the subscriptions. No update is delivered after Close
// returns.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	// Cancel outside the lock: cancellation waits out in-flight
	// callbacks, which take the lock to emit.
	s.cancelLobby()
	s.cancelConn()
}

func (s *Synchronizer) onLobbyChange(lobby *model.Lobby, ok bool) {
	if !ok {
		s.setView(View{Status: StatusNotFound})
		return
	}
	s.setView(View{Status: StatusReady, Lobby: lobby})
}

func (s *Synchronizer) onConnectivity(connected bool) {
	if !connected {
		s.degrade()
		return
	}
	// Reconnected (or the initial replay): changes may have been missed
	// while the feed was down, so re-read rather than wait for the next
	// ping.
	if err := s.Refetch(context.Background()); err != nil {
		s.logger.Warn("refetch after reconnect failed", slog.Any("error", err))
	}
}

// degrade marks the view disconnected while retaining the last snapshot.
func (s *Synchronizer) degrade() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.current = View{Status: StatusDisconnected, Lobby: s.current.Lobby}
	s.fn(s.current)
}

func (s *Synchronizer) setView(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.current = v
	s.fn(s.current)
}
