package view

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tallyboard/lobby/internal/dependencies/mocks"
	"github.com/tallyboard/lobby/internal/model"
	"github.com/tallyboard/lobby/internal/storage/memory"
	"github.com/tallyboard/lobby/internal/testutil"
)

type SynchronizerSuite struct {
	suite.Suite
	store *memory.Store
	ctx   context.Context
}

func TestSynchronizerSuite(t *testing.T) {
	suite.Run(t, new(SynchronizerSuite))
}

func (s *SynchronizerSuite) SetupTest() {
	s.store = memory.New(mocks.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)))
	s.ctx = context.Background()
}

func (s *SynchronizerSuite) TearDownTest() {
	_ = s.store.Close()
}

func (s *SynchronizerSuite) createLobby(code string, playerIDs ...string) {
	players := make(map[model.PlayerID]model.Player, len(playerIDs))
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range playerIDs {
		players[model.PlayerID(id)] = model.Player{
			ID:          model.PlayerID(id),
			Name:        id,
			JoinedAt:    base.Add(time.Duration(i) * time.Second),
			IsConnected: true,
		}
	}
	s.Require().NoError(s.store.CreateLobby(s.ctx, &model.Lobby{
		Code:      model.LobbyCode(code),
		LeaderID:  model.PlayerID(playerIDs[0]),
		CreatedAt: base,
		GameState: model.GameStateWaiting,
		Players:   players,
	}))
}

// follow starts a synchronizer whose updates land on the returned channel.
func (s *SynchronizerSuite) follow(code string) (*Synchronizer, chan View) {
	updates := make(chan View, 16)
	sync, err := NewSynchronizer(s.store, model.LobbyCode(code), func(v View) {
		updates <- v
	}, testutil.NopLogger())
	s.Require().NoError(err)
	return sync, updates
}

func (s *SynchronizerSuite) next(updates chan View) View {
	select {
	case v := <-updates:
		return v
	case <-time.After(2 * time.Second):
		s.FailNow("timed out waiting for a view update")
		return View{}
	}
}

// nextWithStatus drains updates until one with the wanted status arrives.
// Intermediate snapshots may be coalesced or interleaved with refetches.
func (s *SynchronizerSuite) nextWithStatus(updates chan View, want Status) View {
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-updates:
			if v.Status == want {
				return v
			}
		case <-deadline:
			s.FailNowf("timed out", "no update with status %q", want)
			return View{}
		}
	}
}

func (s *SynchronizerSuite) TestInitialRead() {
	s.createLobby("ABC234", "u1")

	sync, updates := s.follow("ABC234")
	defer sync.Close()

	v := s.next(updates)
	s.Equal(StatusReady, v.Status)
	s.Require().NotNil(v.Lobby)
	s.Equal(model.LobbyCode("ABC234"), v.Lobby.Code)
	s.Equal(1, v.Lobby.PlayerCount())
}

func (s *SynchronizerSuite) TestMissingLobbyReportsNotFound() {
	sync, updates := s.follow("ZZZZZZ")
	defer sync.Close()

	v := s.next(updates)
	s.Equal(StatusNotFound, v.Status)
	s.Nil(v.Lobby)
}

func (s *SynchronizerSuite) TestChangePropagates() {
	s.createLobby("ABC234", "u1")
	sync, updates := s.follow("ABC234")
	defer sync.Close()

	s.Equal(StatusReady, s.next(updates).Status)

	s.Require().NoError(s.store.PutPlayer(s.ctx, "ABC234", model.Player{ID: "u2", Name: "Bob"}))

	v := s.nextWithStatus(updates, StatusReady)
	for v.Lobby.PlayerCount() != 2 {
		v = s.nextWithStatus(updates, StatusReady)
	}
	s.True(v.Lobby.HasPlayer("u2"))
}

func (s *SynchronizerSuite) TestDeletePropagatesAsNotFound() {
	s.createLobby("ABC234", "u1")
	sync, updates := s.follow("ABC234")
	defer sync.Close()

	s.Equal(StatusReady, s.next(updates).Status)

	s.Require().NoError(s.store.DeleteLobby(s.ctx, "ABC234"))

	v := s.nextWithStatus(updates, StatusNotFound)
	s.Nil(v.Lobby)
}

func (s *SynchronizerSuite) TestDisconnectRetainsLastSnapshot() {
	s.createLobby("ABC234", "u1", "u2")
	sync, updates := s.follow("ABC234")
	defer sync.Close()

	s.Equal(StatusReady, s.next(updates).Status)

	s.store.SetConnected(false)

	v := s.nextWithStatus(updates, StatusDisconnected)
	s.Require().NotNil(v.Lobby, "stale snapshot must survive the outage")
	s.Equal(2, v.Lobby.PlayerCount())
}

func (s *SynchronizerSuite) TestReconnectRefetches() {
	s.createLobby("ABC234", "u1")
	sync, updates := s.follow("ABC234")
	defer sync.Close()

	s.Equal(StatusReady, s.next(updates).Status)

	s.store.SetConnected(false)
	s.nextWithStatus(updates, StatusDisconnected)

	// A write lands while this watcher believes itself offline.
	s.Require().NoError(s.store.PutPlayer(s.ctx, "ABC234", model.Player{ID: "u2"}))

	s.store.SetConnected(true)

	v := s.nextWithStatus(updates, StatusReady)
	for v.Lobby.PlayerCount() != 2 {
		v = s.nextWithStatus(updates, StatusReady)
	}
}

func (s *SynchronizerSuite) TestRefetch() {
	s.createLobby("ABC234", "u1")
	sync, updates := s.follow("ABC234")
	defer sync.Close()

	s.Equal(StatusReady, s.next(updates).Status)

	s.Require().NoError(sync.Refetch(s.ctx))
	v := s.nextWithStatus(updates, StatusReady)
	s.Equal(1, v.Lobby.PlayerCount())

	s.Equal(StatusReady, sync.Current().Status)
}

func (s *SynchronizerSuite) TestCloseStopsUpdates() {
	s.createLobby("ABC234", "u1")
	sync, updates := s.follow("ABC234")

	s.Equal(StatusReady, s.next(updates).Status)

	sync.Close()

	s.Require().NoError(s.store.PutPlayer(s.ctx, "ABC234", model.Player{ID: "u2"}))

	select {
	case v := <-updates:
		s.Failf("update after close", "got %+v", v)
	case <-time.After(100 * time.Millisecond):
	}
}
