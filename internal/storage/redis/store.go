// Package redis is a Redis-backed implementation of the store adapter.
// Lobby and presence records are JSON values under prefixed keys; change
// notification rides pub/sub pings that subscribers answer with a fresh
// point read, so every observation is a whole committed record.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tallyboard/lobby/internal/model"
	"github.com/tallyboard/lobby/internal/storage"
)

// Retry budget for optimistic partial-path writes.
const txRetries = 3

// Store is a Redis-backed implementation of the storage interface
type Store struct {
	client *redis.Client
	cfg    Config

	mu           sync.Mutex
	onDisconnect map[model.PlayerID]model.PresenceState
	pending      map[model.PlayerID]model.PresenceState
	connSubs     map[int]storage.ConnectivityFunc
	nextConnSub  int
	connected    bool
	pingerOnce   sync.Once
	done         chan struct{}
}

// New creates a new Redis store instance
func New(cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis store with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Store {
	return &Store{
		client:       client,
		cfg:          cfg,
		onDisconnect: make(map[model.PlayerID]model.PresenceState),
		pending:      make(map[model.PlayerID]model.PresenceState),
		connSubs:     make(map[int]storage.ConnectivityFunc),
		connected:    true,
		done:         make(chan struct{}),
	}
}

// Ensure Store implements the interface
var _ storage.Store = (*Store)(nil)

// Close stops the connectivity prober and closes the Redis connection
func (s *Store) Close() error {
	s.mu.Lock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.mu.Unlock()
	return s.client.Close()
}

// Lobby record operations

func (s *Store) CreateLobby(ctx context.Context, lobby *model.Lobby) error {
	data, err := json.Marshal(lobby)
	if err != nil {
		return err
	}

	set, err := s.client.SetNX(ctx, lobbyKey(lobby.Code), data, 0).Result()
	if err != nil {
		return err
	}
	if !set {
		return model.ErrCodeTaken
	}

	s.publishLobby(ctx, lobby.Code)
	return nil
}

func (s *Store) PutLobby(ctx context.Context, lobby *model.Lobby) error {
	data, err := json.Marshal(lobby)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, lobbyKey(lobby.Code), data, 0).Err(); err != nil {
		return err
	}

	s.publishLobby(ctx, lobby.Code)
	return nil
}

func (s *Store) GetLobby(ctx context.Context, code model.LobbyCode) (*model.Lobby, error) {
	data, err := s.client.Get(ctx, lobbyKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrLobbyNotFound
		}
		return nil, err
	}

	var lobby model.Lobby
	if err := json.Unmarshal(data, &lobby); err != nil {
		return nil, err
	}
	return &lobby, nil
}

func (s *Store) DeleteLobby(ctx context.Context, code model.LobbyCode) error {
	if err := s.client.Del(ctx, lobbyKey(code)).Err(); err != nil {
		return err
	}
	s.publishLobby(ctx, code)
	return nil
}

func (s *Store) LobbyExists(ctx context.Context, code model.LobbyCode) (bool, error) {
	exists, err := s.client.Exists(ctx, lobbyKey(code)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Partial-path writes
//
// Redis has no sub-document writes for JSON string values, so these are
// optimistic read-modify-write transactions: WATCH the lobby key, mutate
// the decoded record, and commit only if no concurrent writer touched it.

func (s *Store) PutPlayer(ctx context.Context, code model.LobbyCode, player model.Player) error {
	return s.updateLobby(ctx, code, func(l *model.Lobby) error {
		l.Players[player.ID] = player
		return nil
	})
}

func (s *Store) RemovePlayer(ctx context.Context, code model.LobbyCode, id model.PlayerID) error {
	return s.updateLobby(ctx, code, func(l *model.Lobby) error {
		delete(l.Players, id)
		return nil
	})
}

func (s *Store) SetLeader(ctx context.Context, code model.LobbyCode, id model.PlayerID) error {
	return s.updateLobby(ctx, code, func(l *model.Lobby) error {
		l.LeaderID = id
		return nil
	})
}

func (s *Store) SetPlayerConnected(ctx context.Context, code model.LobbyCode, id model.PlayerID, connected bool) error {
	return s.updateLobby(ctx, code, func(l *model.Lobby) error {
		p, ok := l.Players[id]
		if !ok {
			return model.ErrNotInLobby
		}
		p.IsConnected = connected
		l.Players[id] = p
		return nil
	})
}

func (s *Store) updateLobby(ctx context.Context, code model.LobbyCode, mutate func(*model.Lobby) error) error {
	key := lobbyKey(code)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrLobbyNotFound
			}
			return err
		}

		var lobby model.Lobby
		if err := json.Unmarshal(data, &lobby); err != nil {
			return err
		}
		if lobby.Players == nil {
			lobby.Players = make(map[model.PlayerID]model.Player)
		}

		if err := mutate(&lobby); err != nil {
			return err
		}

		out, err := json.Marshal(&lobby)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < txRetries; attempt++ {
		err = s.client.Watch(ctx, txn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return err
	}

	s.publishLobby(ctx, code)
	return nil
}

func (s *Store) publishLobby(ctx context.Context, code model.LobbyCode) {
	// Change notification is a ping; subscribers re-read the record.
	// A lost publish only delays convergence until the next write.
	_ = s.client.Publish(ctx, lobbyChannel(code), "changed").Err()
}

// Presence operations

func (s *Store) SetPresence(ctx context.Context, id model.PlayerID, state model.PresenceState) error {
	p := model.Presence{State: state, LastChanged: time.Now().UTC()}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	// Online markers carry the TTL backstop; offline markers persist so
	// last-seen stays queryable.
	var ttl time.Duration
	if state == model.PresenceOnline {
		ttl = s.cfg.PresenceTTL
	}

	if err := s.client.Set(ctx, presenceKey(id), data, ttl).Err(); err != nil {
		return err
	}

	_ = s.client.Publish(ctx, presenceChannel(id), "changed").Err()
	return nil
}

func (s *Store) GetPresence(ctx context.Context, id model.PlayerID) (model.Presence, error) {
	data, err := s.client.Get(ctx, presenceKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Presence{}, model.ErrPresenceNotFound
		}
		return model.Presence{}, err
	}

	var p model.Presence
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Presence{}, err
	}
	return p, nil
}

// RegisterOnDisconnect arms a client-side replay: when the connectivity
// prober observes a drop, the armed write is replayed as soon as the
// connection returns. The presence TTL covers the process-crash case
// where no replay will ever happen.
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
	delete(s.pending, id)
	return nil
}

// Subscriptions

// SubscribeLobby delivers a fresh point read for every pub/sub ping on the
// lobby's channel, in ping order. The current record is not replayed;
// callers issue their own initial read.
func (s *Store) SubscribeLobby(code model.LobbyCode, fn storage.LobbyChangeFunc) (storage.CancelFunc, error) {
	ctx := context.Background()
	pubsub := s.client.Subscribe(ctx, lobbyChannel(code))

	// Force the SUBSCRIBE round trip so no ping is missed after return.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range pubsub.Channel() {
			lobby, err := s.GetLobby(ctx, code)
			if err != nil {
				if errors.Is(err, model.ErrLobbyNotFound) {
					fn(nil, false)
				}
				// Transient read failures are skipped; the next
				// ping re-reads.
				continue
			}
			fn(lobby, true)
		}
	}()

	cancel := func() {
		_ = pubsub.Close()
		wg.Wait()
	}
	return cancel, nil
}

// SubscribePresence replays the current record (or its absence), then
// delivers a fresh read per ping.
func (s *Store) SubscribePresence(id model.PlayerID, fn storage.PresenceChangeFunc) (storage.CancelFunc, error) {
	ctx := context.Background()
	pubsub := s.client.Subscribe(ctx, presenceChannel(id))

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	emit := func() {
		p, err := s.GetPresence(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrPresenceNotFound) {
				fn(model.Presence{}, false)
			}
			return
		}
		fn(p, true)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		emit()
		for range pubsub.Channel() {
			emit()
		}
	}()

	cancel := func() {
		_ = pubsub.Close()
		wg.Wait()
	}
	return cancel, nil
}

// SubscribeConnectivity reports transitions observed by a background ping
// prober, replaying the current state to each new subscriber. The prober
// starts with the first subscriber and runs until Close.
func (s *Store) SubscribeConnectivity(fn storage.ConnectivityFunc) storage.CancelFunc {
	s.mu.Lock()
	idx := s.nextConnSub
	s.nextConnSub++
	s.connSubs[idx] = fn
	current := s.connected
	s.mu.Unlock()

	fn(current)

	s.pingerOnce.Do(func() {
		go s.runPinger()
	})

	return func() {
		s.mu.Lock()
		delete(s.connSubs, idx)
		s.mu.Unlock()
	}
}

func (s *Store) runPinger() {
	interval := s.cfg.PingInterval
	if interval <= 0 {
		interval = DefaultConfig().PingInterval
	}
	timeout := s.cfg.PingTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().PingTimeout
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			err := s.client.Ping(ctx).Err()
			cancel()
			s.observeConnectivity(err == nil)
		}
	}
}

func (s *Store) observeConnectivity(connected bool) {
	s.mu.Lock()
	if s.connected == connected {
		s.mu.Unlock()
		return
	}
	s.connected = connected

	if !connected {
		// The drop consumes the registrations; they are replayed as
		// offline writes once the connection returns.
		for id, state := range s.onDisconnect {
			s.pending[id] = state
		}
		s.onDisconnect = make(map[model.PlayerID]model.PresenceState)
	}

	var replay map[model.PlayerID]model.PresenceState
	if connected && len(s.pending) > 0 {
		replay = s.pending
		s.pending = make(map[model.PlayerID]model.PresenceState)
	}

	subs := make([]storage.ConnectivityFunc, 0, len(s.connSubs))
	for _, fn := range s.connSubs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	ctx := context.Background()
	for id, state := range replay {
		_ = s.SetPresence(ctx, id, state)
	}
	for _, fn := range subs {
		fn(connected)
	}
}
