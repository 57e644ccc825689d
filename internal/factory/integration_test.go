package factory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tallyboard/lobby/internal/code"
	"github.com/tallyboard/lobby/internal/model"
	"github.com/tallyboard/lobby/internal/services/presence"
	"github.com/tallyboard/lobby/internal/services/view"
	"github.com/tallyboard/lobby/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	_ = s.app.Close()
}

func (s *IntegrationSuite) queueCode(c string) {
	raw := make([]byte, len(c))
	for i := 0; i < len(c); i++ {
		idx := strings.IndexByte(code.Alphabet, c[i])
		s.Require().GreaterOrEqual(idx, 0)
		raw[i] = byte(idx)
	}
	s.app.MockRandom.QueueBytes(raw)
}

// Full session flow: create, watch, join, leave with leader transfer,
// empty-lobby teardown.
func (s *IntegrationSuite) TestLobbySessionFlow() {
	s.queueCode("ABC234")

	created, err := s.app.LobbyController.Create(s.ctx, "host", "Hosting Player")
	s.Require().NoError(err)
	s.Equal(model.LobbyCode("ABC234"), created.Code)
	s.Equal(model.PlayerID("host"), created.LeaderID)

	// A second participant watches the lobby live.
	updates := make(chan view.View, 32)
	watcher, err := view.NewSynchronizer(s.app.Store, created.Code, func(v view.View) {
		updates <- v
	}, testutil.NopLogger())
	s.Require().NoError(err)
	defer watcher.Close()

	waitFor := func(pred func(view.View) bool) view.View {
		deadline := time.After(2 * time.Second)
		for {
			select {
			case v := <-updates:
				if pred(v) {
					return v
				}
			case <-deadline:
				s.FailNow("timed out waiting for a matching view")
				return view.View{}
			}
		}
	}

	waitFor(func(v view.View) bool {
		return v.Status == view.StatusReady && v.Lobby.PlayerCount() == 1
	})

	s.app.MockClock.Advance(time.Second)
	s.Require().NoError(s.app.LobbyController.Join(s.ctx, "abc234", "guest", ""))

	joined := waitFor(func(v view.View) bool {
		return v.Status == view.StatusReady && v.Lobby.PlayerCount() == 2
	})
	s.Equal("Player 2", joined.Lobby.Players["guest"].Name)

	// Leader departs; leadership lands on the survivor.
	s.Require().NoError(s.app.LobbyController.Leave(s.ctx, "ABC234", "host"))
	waitFor(func(v view.View) bool {
		return v.Status == view.StatusReady && v.Lobby.LeaderID == "guest"
	})

	// Last member departs; watchers observe the teardown.
	s.Require().NoError(s.app.LobbyController.Leave(s.ctx, "ABC234", "guest"))
	waitFor(func(v view.View) bool {
		return v.Status == view.StatusNotFound
	})
}

// Presence markers track connectivity end to end, including the armed
// on-disconnect write.
func (s *IntegrationSuite) TestPresenceFlow() {
	id, err := s.app.IdentityService.Acquire(s.ctx)
	s.Require().NoError(err)

	tracker := presence.NewTracker(s.app.Store, id, testutil.NopLogger())
	defer func() { _ = tracker.Close() }()

	watcher := presence.NewWatcher(s.app.Store, nil, testutil.NopLogger())
	defer watcher.Close()
	s.Require().NoError(watcher.Watch(id))

	s.Eventually(func() bool { return watcher.IsOnline(id) },
		2*time.Second, 10*time.Millisecond)

	s.app.MockClock.Advance(time.Minute)
	s.app.MemoryStore().SetConnected(false)

	s.Eventually(func() bool { return !watcher.IsOnline(id) },
		2*time.Second, 10*time.Millisecond)

	seen, ok := watcher.LastSeen(id)
	s.True(ok)
	s.Equal(s.app.MockClock.CurrentTime, seen)
}

// A code taken between the existence check and the create is retried
// with a fresh draw rather than surfaced.
func (s *IntegrationSuite) TestCreateRetriesPastCollision() {
	s.queueCode("ABC234")
	_, err := s.app.LobbyController.Create(s.ctx, "u1", "")
	s.Require().NoError(err)

	s.queueCode("ABC234")
	s.queueCode("XYZ789")
	second, err := s.app.LobbyController.Create(s.ctx, "u2", "")
	s.Require().NoError(err)
	s.Equal(model.LobbyCode("XYZ789"), second.Code)
}
