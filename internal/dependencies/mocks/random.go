package mocks

import (
	"github.com/tallyboard/lobby/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing
type MockRandom struct {
	// BytesResults is a queue of results to return from Bytes
	BytesResults [][]byte
	bytesIndex   int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Bytes returns the next queued result, zero-padded or truncated to n bytes.
// Returns n zero bytes if nothing is queued.
func (r *MockRandom) Bytes(n int) []byte {
	out := make([]byte, n)
	if r.bytesIndex < len(r.BytesResults) {
		copy(out, r.BytesResults[r.bytesIndex])
		r.bytesIndex++
	}
	return out
}

// QueueBytes adds values to the Bytes result queue
func (r *MockRandom) QueueBytes(values ...[]byte) {
	r.BytesResults = append(r.BytesResults, values...)
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.BytesResults = nil
	r.bytesIndex = 0
}
