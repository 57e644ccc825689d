package random

import (
	"crypto/rand"
)

// Random provides random byte generation that can be mocked for testing
type Random interface {
	// Bytes fills and returns a slice of n random bytes.
	Bytes(n int) []byte
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Bytes returns n bytes from the cryptographically secure source.
// crypto/rand.Read never fails on supported platforms; a failure here
// indicates a broken system random source and panics rather than degrading
// to predictable codes.
func (r *CryptoRandom) Bytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("random: system random source unavailable: " + err.Error())
	}
	return b
}
