package factory

import (
	"time"

	"github.com/tallyboard/lobby/internal/dependencies/mocks"
	"github.com/tallyboard/lobby/internal/storage/memory"
	"github.com/tallyboard/lobby/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	store := memory.New(mockClock)

	app := newWithDependencies(store, mockClock, mockRandom, "", testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// MemoryStore returns the underlying in-memory store for direct test
// manipulation such as simulating connectivity drops.
func (t *TestApp) MemoryStore() *memory.Store {
	return t.Store.(*memory.Store)
}
