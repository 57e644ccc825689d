// Package memory is an in-memory implementation of the store adapter,
// used in tests and single-process deployments. Connectivity is
// test-controllable via SetConnected; on-disconnect registrations fire
// when the simulated connection drops, mirroring a realtime backend's
// server-side disconnect hooks.
package memory

import (
	"context"
	"sync"

	"github.com/tallyboard/lobby/internal/dependencies/clock"
	"github.com/tallyboard/lobby/internal/model"
	"github.com/tallyboard/lobby/internal/storage"
)

type lobbyEvent struct {
	lobby *model.Lobby
	ok    bool
}

type presenceEvent struct {
	presence model.Presence
	ok       bool
}

// Store is an in-memory implementation of the storage interface
type Store struct {
	clock clock.Clock

	mu           sync.RWMutex
	lobbies      map[model.LobbyCode]*model.Lobby
	presence     map[model.PlayerID]model.Presence
	onDisconnect map[model.PlayerID]model.PresenceState
	connected    bool

	lobbySubs    map[model.LobbyCode]map[*mailbox[lobbyEvent]]struct{}
	presenceSubs map[model.PlayerID]map[*mailbox[presenceEvent]]struct{}
	connSubs     map[*mailbox[bool]]struct{}
}

// New creates a new in-memory store. The clock assigns presence
// timestamps, standing in for server-assigned time.
func New(clk clock.Clock) *Store {
	return &Store{
		clock:        clk,
		lobbies:      make(map[model.LobbyCode]*model.Lobby),
		presence:     make(map[model.PlayerID]model.Presence),
		onDisconnect: make(map[model.PlayerID]model.PresenceState),
		connected:    true,
		lobbySubs:    make(map[model.LobbyCode]map[*mailbox[lobbyEvent]]struct{}),
		presenceSubs: make(map[model.PlayerID]map[*mailbox[presenceEvent]]struct{}),
		connSubs:     make(map[*mailbox[bool]]struct{}),
	}
}

// Ensure Store implements the interface
var _ storage.Store = (*Store)(nil)

// cloneLobby deep-copies a lobby record so subscribers and readers never
// observe a half-mutated value.
func cloneLobby(l *model.Lobby) *model.Lobby {
	if l == nil {
		return nil
	}
	out := *l
	out.Players = make(map[model.PlayerID]model.Player, len(l.Players))
	for id, p := range l.Players {
		out.Players[id] = p
	}
	if l.Scores != nil {
		out.Scores = make(map[model.PlayerID]int, len(l.Scores))
		for id, s := range l.Scores {
			out.Scores[id] = s
		}
	}
	return &out
}

// notifyLobby pushes the current snapshot to all subscribers of the code.
// Called with the write lock held; mailbox pushes never block.
func (s *Store) notifyLobby(code model.LobbyCode) {
	l, ok := s.lobbies[code]
	var snapshot *model.Lobby
	if ok {
		snapshot = cloneLobby(l)
	}
	for mb := range s.lobbySubs[code] {
		mb.push(lobbyEvent{lobby: snapshot, ok: ok})
	}
}

func (s *Store) notifyPresence(id model.PlayerID) {
	p, ok := s.presence[id]
	for mb := range s.presenceSubs[id] {
		mb.push(presenceEvent{presence: p, ok: ok})
	}
}

// Lobby record operations

func (s *Store) CreateLobby(ctx context.Context, lobby *model.Lobby) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.lobbies[lobby.Code]; exists {
		return model.ErrCodeTaken
	}
	s.lobbies[lobby.Code] = cloneLobby(lobby)
	s.notifyLobby(lobby.Code)
	return nil
}

func (s *Store) PutLobby(ctx context.Context, lobby *model.Lobby) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lobbies[lobby.Code] = cloneLobby(lobby)
	s.notifyLobby(lobby.Code)
	return nil
}

func (s *Store) GetLobby(ctx context.Context, code model.LobbyCode) (*model.Lobby, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lobbies[code]
	if !ok {
		return nil, model.ErrLobbyNotFound
	}
	return cloneLobby(l), nil
}

func (s *Store) DeleteLobby(ctx context.Context, code model.LobbyCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lobbies[code]; !ok {
		return nil
	}
	delete(s.lobbies, code)
	s.notifyLobby(code)
	return nil
}

func (s *Store) LobbyExists(ctx context.Context, code model.LobbyCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lobbies[code]
	return ok, nil
}

// Partial-path writes

func (s *Store) PutPlayer(ctx context.Context, code model.LobbyCode, player model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[code]
	if !ok {
		return model.ErrLobbyNotFound
	}
	l.Players[player.ID] = player
	s.notifyLobby(code)
	return nil
}

func (s *Store) RemovePlayer(ctx context.Context, code model.LobbyCode, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[code]
	if !ok {
		return model.ErrLobbyNotFound
	}
	if _, ok := l.Players[id]; !ok {
		return nil
	}
	delete(l.Players, id)
	s.notifyLobby(code)
	return nil
}

func (s *Store) SetLeader(ctx context.Context, code model.LobbyCode, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[code]
	if !ok {
		return model.ErrLobbyNotFound
	}
	l.LeaderID = id
	s.notifyLobby(code)
	return nil
}

func (s *Store) SetPlayerConnected(ctx context.Context, code model.LobbyCode, id model.PlayerID, connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[code]
	if !ok {
		return model.ErrLobbyNotFound
	}
	p, ok := l.Players[id]
	if !ok {
		return model.ErrNotInLobby
	}
	p.IsConnected = connected
	l.Players[id] = p
	s.notifyLobby(code)
	return nil
}

// Presence operations

func (s *Store) SetPresence(ctx context.Context, id model.PlayerID, state model.PresenceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presence[id] = model.Presence{State: state, LastChanged: s.clock.Now()}
	s.notifyPresence(id)
	return nil
}

func (s *Store) GetPresence(ctx context.Context, id model.PlayerID) (model.Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presence[id]
	if !ok {
		return model.Presence{}, model.ErrPresenceNotFound
	}
	return p, nil
}

func (s *Store) RegisterOnDisconnect(ctx context.Context, id model.PlayerID, state model.PresenceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconnect[id] = state
	return nil
}

func (s *Store) ClearOnDisconnect(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.onDisconnect, id)
	return nil
}

// Subscriptions

// SubscribeLobby registers for change notifications on a single code.
// The current record is not replayed; callers issue their own initial read.
func (s *Store) SubscribeLobby(code model.LobbyCode, fn storage.LobbyChangeFunc) (storage.CancelFunc, error) {
	mb := newMailbox(func(ev lobbyEvent) {
		fn(ev.lobby, ev.ok)
	})

	s.mu.Lock()
	if s.lobbySubs[code] == nil {
		s.lobbySubs[code] = make(map[*mailbox[lobbyEvent]]struct{})
	}
	s.lobbySubs[code][mb] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.lobbySubs[code], mb)
		s.mu.Unlock()
		mb.close()
	}
	return cancel, nil
}

// SubscribePresence registers for presence changes of a single identity.
// The current record (or its absence) is replayed immediately.
func (s *Store) SubscribePresence(id model.PlayerID, fn storage.PresenceChangeFunc) (storage.CancelFunc, error) {
	mb := newMailbox(func(ev presenceEvent) {
		fn(ev.presence, ev.ok)
	})

	s.mu.Lock()
	if s.presenceSubs[id] == nil {
		s.presenceSubs[id] = make(map[*mailbox[presenceEvent]]struct{})
	}
	s.presenceSubs[id][mb] = struct{}{}
	p, ok := s.presence[id]
	mb.push(presenceEvent{presence: p, ok: ok})
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.presenceSubs[id], mb)
		s.mu.Unlock()
		mb.close()
	}
	return cancel, nil
}

// SubscribeConnectivity registers for transitions of the transport
// connectivity signal. The current state is replayed immediately.
func (s *Store) SubscribeConnectivity(fn storage.ConnectivityFunc) storage.CancelFunc {
	mb := newMailbox(func(connected bool) {
		fn(connected)
	})

	s.mu.Lock()
	s.connSubs[mb] = struct{}{}
	mb.push(s.connected)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.connSubs, mb)
		s.mu.Unlock()
		mb.close()
	}
}

// SetConnected flips the simulated transport connectivity. A transition to
// disconnected fires all armed on-disconnect writes exactly once and
// clears them; registrations do not survive the drop.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected == connected {
		return
	}
	s.connected = connected

	if !connected {
		for id, state := range s.onDisconnect {
			s.presence[id] = model.Presence{State: state, LastChanged: s.clock.Now()}
			s.notifyPresence(id)
		}
		s.onDisconnect = make(map[model.PlayerID]model.PresenceState)
	}

	for mb := range s.connSubs {
		mb.push(connected)
	}
}

// Close releases all subscriptions.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, subs := range s.lobbySubs {
		for mb := range subs {
			mb.close()
		}
	}
	for _, subs := range s.presenceSubs {
		for mb := range subs {
			mb.close()
		}
	}
	for mb := range s.connSubs {
		mb.close()
	}
	s.lobbySubs = make(map[model.LobbyCode]map[*mailbox[lobbyEvent]]struct{})
	s.presenceSubs = make(map[model.PlayerID]map[*mailbox[presenceEvent]]struct{})
	s.connSubs = make(map[*mailbox[bool]]struct{})
	return nil
}
