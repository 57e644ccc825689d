package stream

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyboard/lobby/internal/dependencies/mocks"
	"github.com/tallyboard/lobby/internal/model"
	"github.com/tallyboard/lobby/internal/storage/memory"
	"github.com/tallyboard/lobby/internal/testutil"
)

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name     string
		event    string
		data     string
		expected string
	}{
		{
			name:     "single line",
			event:    "view",
			data:     `{"status":"ready"}`,
			expected: "event: view\ndata: {\"status\":\"ready\"}\n\n",
		},
		{
			name:     "multi-line data",
			event:    "view",
			data:     "line1\nline2",
			expected: "event: view\ndata: line1\ndata: line2\n\n",
		},
		{
			name:     "carriage returns normalized",
			event:    "view",
			data:     "line1\r\nline2",
			expected: "event: view\ndata: line1\ndata: line2\n\n",
		},
		{
			name:     "empty data",
			event:    "ping",
			data:     "",
			expected: "event: ping\ndata: \n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(formatEvent(tt.event, tt.data)))
		})
	}
}

func recv(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		return string(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return ""
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub("ABC234", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient()
	hub.Register(client)

	hub.BroadcastEvent("view", `{"status":"ready"}`)

	msg := recv(t, client)
	assert.Contains(t, msg, "event: view")
	assert.Contains(t, msg, `{"status":"ready"}`)
}

func TestHubReplaysLastEventToLateJoiner(t *testing.T) {
	hub := NewHub("ABC234", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	early := NewClient()
	hub.Register(early)
	hub.BroadcastEvent("view", `{"status":"ready"}`)
	recv(t, early)

	late := NewClient()
	hub.Register(late)

	msg := recv(t, late)
	assert.Contains(t, msg, `{"status":"ready"}`)
}

func TestHubUnregisterClosesClient(t *testing.T) {
	hub := NewHub("ABC234", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient()
	hub.Register(client)
	hub.Unregister(client)

	select {
	case _, ok := <-client.send:
		assert.False(t, ok, "send channel should be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
	assert.Equal(t, 0, hub.ClientCount())
}

func newTestManager(t *testing.T) (*Manager, *memory.Store) {
	store := memory.New(mocks.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { _ = store.Close() })
	m := NewManager(store, testutil.NopLogger())
	t.Cleanup(m.Close)
	return m, store
}

func TestManagerStreamsViewEvents(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, store.CreateLobby(ctx, &model.Lobby{
		Code:      "ABC234",
		LeaderID:  "u1",
		GameState: model.GameStateWaiting,
		Players: map[model.PlayerID]model.Player{
			"u1": {ID: "u1", Name: "Alice"},
		},
	}))

	hub, err := m.Hub("ABC234")
	require.NoError(t, err)

	client := NewClient()
	hub.Register(client)

	// Initial snapshot, either replayed or delivered live.
	var msg string
	for !strings.Contains(msg, `"status":"ready"`) {
		msg = recv(t, client)
	}
	assert.Contains(t, msg, "Alice")

	require.NoError(t, store.DeleteLobby(ctx, "ABC234"))
	for !strings.Contains(msg, `"status":"not_found"`) {
		msg = recv(t, client)
	}
}

func TestManagerReusesHub(t *testing.T) {
	m, _ := newTestManager(t)

	first, err := m.Hub("ABC234")
	require.NoError(t, err)
	second, err := m.Hub("ABC234")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, m.WatchCount())
}

func TestManagerCleanupIdle(t *testing.T) {
	m, _ := newTestManager(t)

	hub, err := m.Hub("ABC234")
	require.NoError(t, err)

	client := NewClient()
	hub.Register(client)

	// An active client protects the watch.
	m.CleanupIdle()
	assert.Equal(t, 1, m.WatchCount())

	hub.Unregister(client)
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	m.CleanupIdle()
	assert.Equal(t, 0, m.WatchCount())
}
