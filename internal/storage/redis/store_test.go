package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/tallyboard/lobby/internal/model"
)

type StoreSuite struct {
	suite.Suite
	mini  *miniredis.Miniredis
	store *Store
	ctx   context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.PresenceTTL = time.Hour

	s.store = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StoreSuite) lobby(code string, playerIDs ...string) *model.Lobby {
	players := make(map[model.PlayerID]model.Player, len(playerIDs))
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range playerIDs {
		players[model.PlayerID(id)] = model.Player{
			ID:          model.PlayerID(id),
			Name:        id,
			JoinedAt:    now.Add(time.Duration(i) * time.Second),
			IsConnected: true,
		}
	}
	return &model.Lobby{
		Code:      model.LobbyCode(code),
		LeaderID:  model.PlayerID(playerIDs[0]),
		CreatedAt: now,
		GameState: model.GameStateWaiting,
		Players:   players,
	}
}

// Lobby record operations

func (s *StoreSuite) TestCreateAndGetLobby() {
	err := s.store.CreateLobby(s.ctx, s.lobby("ABC234", "u1"))
	s.Require().NoError(err)

	got, err := s.store.GetLobby(s.ctx, "ABC234")
	s.Require().NoError(err)
	s.Equal(model.LobbyCode("ABC234"), got.Code)
	s.Equal(model.PlayerID("u1"), got.LeaderID)
	s.Equal(model.GameStateWaiting, got.GameState)
	s.Len(got.Players, 1)
}

func (s *StoreSuite) TestCreateLobbyConflict() {
	s.Require().NoError(s.store.CreateLobby(s.ctx, s.lobby("ABC234", "u1")))

	err := s.store.CreateLobby(s.ctx, s.lobby("ABC234", "u2"))
	s.ErrorIs(err, model.ErrCodeTaken)

	got, _ := s.store.GetLobby(s.ctx, "ABC234")
	s.Equal(model.PlayerID("u1"), got.LeaderID)
}

func (s *StoreSuite) TestGetLobbyNotFound() {
	_, err := s.store.GetLobby(s.ctx, "ZZZZZZ")
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

func (s *StoreSuite) TestLobbyExists() {
	exists, err := s.store.LobbyExists(s.ctx, "ABC234")
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.store.CreateLobby(s.ctx, s.lobby("ABC234", "u1")))

	exists, err = s.store.LobbyExists(s.ctx, "ABC234")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *StoreSuite) TestDeleteLobby() {
	s.Require().NoError(s.store.CreateLobby(s.ctx, s.lobby("ABC234", "u1")))
	s.Require().NoError(s.store.DeleteLobby(s.ctx, "ABC234"))

	_, err := s.store.GetLobby(s.ctx, "ABC234")
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

// Partial-path writes

func (s *StoreSuite) TestPutPlayer() {
	s.Require().NoError(s.store.CreateLobby(s.ctx, s.lobby("ABC234", "u1")))

	err := s.store.PutPlayer(s.ctx, "ABC234", model.Player{
		ID: "u2", Name: "Player 2", IsConnected: true,
	})
	s.Require().NoError(err)

	got, _ := s.store.GetLobby(s.ctx, "ABC234")
	s.Len(got.Players, 2)
	s.True(got.HasPlayer("u2"))
}

func (s *StoreSuite) TestPutPlayerLobbyMissing() {
	err := s.store.PutPlayer(s.ctx, "ZZZZZZ", model.Player{ID: "u1"})
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

func (s *StoreSuite) TestRemovePlayer() {
	s.Require().NoError(s.store.CreateLobby(s.ctx, s.lobby("ABC234", "u1", "u2")))

	s.Require().NoError(s.store.RemovePlayer(s.ctx, "ABC234", "u2"))

	got, _ := s.store.GetLobby(s.ctx, "ABC234")
	s.Len(got.Players, 1)
	s.False(got.HasPlayer("u2"))
}

func (s *StoreSuite) TestSetLeader() {
	s.Require().NoError(s.store.CreateLobby(s.ctx, s.lobby("ABC234", "u1", "u2")))

	s.Require().NoError(s.store.SetLeader(s.ctx, "ABC234", "u2"))

	got, _ := s.store.GetLobby(s.ctx, "ABC234")
	s.Equal(model.PlayerID("u2"), got.LeaderID)
}

func (s *StoreSuite) TestSetPlayerConnected() {
	s.Require().NoError(s.store.CreateLobby(s.ctx, s.lobby("ABC234", "u1")))

	s.Require().NoError(s.store.SetPlayerConnected(s.ctx, "ABC234", "u1", false))

	got, _ := s.store.GetLobby(s.ctx, "ABC234")
	s.False(got.Players["u1"].IsConnected)

	err := s.store.SetPlayerConnected(s.ctx, "ABC234", "ghost", true)
	s.ErrorIs(err, model.ErrNotInLobby)
}

// Presence operations

func (s *StoreSuite) TestSetAndGetPresence() {
	s.Require().NoError(s.store.SetPresence(s.ctx, "u1", model.PresenceOnline))

	p, err := s.store.GetPresence(s.ctx, "u1")
	s.Require().NoError(err)
	s.True(p.Online())
	s.False(p.LastChanged.IsZero())
}

func (s *StoreSuite) TestGetPresenceNotFound() {
	_, err := s.store.GetPresence(s.ctx, "ghost")
	s.ErrorIs(err, model.ErrPresenceNotFound)
}

func (s *StoreSuite) TestOnlinePresenceCarriesTTL() {
	s.Require().NoError(s.store.SetPresence(s.ctx, "u1", model.PresenceOnline))
	s.Require().NoError(s.store.SetPresence(s.ctx, "u2", model.PresenceOffline))

	onlineTTL := s.mini.TTL(presenceKey("u1"))
	offlineTTL := s.mini.TTL(presenceKey("u2"))

	s.True(onlineTTL > 0, "online marker should carry the crash-backstop TTL")
	s.Equal(time.Duration(0), offlineTTL, "offline marker should persist for last-seen queries")
}

func (s *StoreSuite) TestExpiredOnlineMarkerReadsAsAbsent() {
	s.Require().NoError(s.store.SetPresence(s.ctx, "u1", model.PresenceOnline))

	s.mini.FastForward(2 * time.Hour)

	_, err := s.store.GetPresence(s.ctx, "u1")
	s.ErrorIs(err, model.ErrPresenceNotFound)
}

// Subscriptions

func (s *StoreSuite) TestSubscribeLobbyObservesWrites() {
	s.Require().NoError(s.store.CreateLobby(s.ctx, s.lobby("ABC234", "u1")))

	snapshots := make(chan int, 8)
	deleted := make(chan struct{}, 1)
	cancel, err := s.store.SubscribeLobby("ABC234", func(l *model.Lobby, ok bool) {
		if !ok {
			deleted <- struct{}{}
			return
		}
		snapshots <- l.PlayerCount()
	})
	s.Require().NoError(err)
	defer cancel()

	s.Require().NoError(s.store.PutPlayer(s.ctx, "ABC234", model.Player{ID: "u2"}))

	select {
	case n := <-snapshots:
		s.Equal(2, n)
	case <-time.After(2 * time.Second):
		s.FailNow("timed out waiting for change notification")
	}

	s.Require().NoError(s.store.DeleteLobby(s.ctx, "ABC234"))

	select {
	case <-deleted:
	case <-time.After(2 * time.Second):
		s.FailNow("timed out waiting for delete notification")
	}
}

func (s *StoreSuite) TestSubscribeLobbyCancelStopsDelivery() {
	s.Require().NoError(s.store.CreateLobby(s.ctx, s.lobby("ABC234", "u1")))

	got := make(chan struct{}, 8)
	cancel, err := s.store.SubscribeLobby("ABC234", func(l *model.Lobby, ok bool) {
		got <- struct{}{}
	})
	s.Require().NoError(err)

	cancel()
	s.Require().NoError(s.store.PutPlayer(s.ctx, "ABC234", model.Player{ID: "u2"}))

	select {
	case <-got:
		s.FailNow("callback invoked after cancel")
	case <-time.After(100 * time.Millisecond):
	}
}

func (s *StoreSuite) TestSubscribePresenceReplaysAndFollows() {
	s.Require().NoError(s.store.SetPresence(s.ctx, "u1", model.PresenceOnline))

	states := make(chan model.PresenceState, 8)
	cancel, err := s.store.SubscribePresence("u1", func(p model.Presence, ok bool) {
		if !ok {
			states <- model.PresenceOffline
			return
		}
		states <- p.State
	})
	s.Require().NoError(err)
	defer cancel()

	select {
	case st := <-states:
		s.Equal(model.PresenceOnline, st)
	case <-time.After(2 * time.Second):
		s.FailNow("timed out waiting for presence replay")
	}

	s.Require().NoError(s.store.SetPresence(s.ctx, "u1", model.PresenceOffline))

	select {
	case st := <-states:
		s.Equal(model.PresenceOffline, st)
	case <-time.After(2 * time.Second):
		s.FailNow("timed out waiting for presence change")
	}
}
