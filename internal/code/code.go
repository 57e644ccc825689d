// Package code generates and validates human-friendly lobby codes.
package code

import (
	"context"
	"regexp"
	"strings"

	"github.com/tallyboard/lobby/internal/dependencies/random"
	"github.com/tallyboard/lobby/internal/model"
)

const (
	// Length is the length of generated lobby codes
	Length = 6
	// Alphabet is the characters used in lobby codes. The visually
	// ambiguous 0, O, 1, I and L are excluded.
	Alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	// DefaultMaxRetries bounds GenerateUnique against adversarial
	// collision rates.
	DefaultMaxRetries = 10
)

// Validation is deliberately more permissive than generation: user-typed
// input only has to be 6 uppercase alphanumerics, confusables included.
var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// ExistsFunc reports whether a code is already in use. It is typically
// backed by the store's existence check.
type ExistsFunc func(ctx context.Context, code model.LobbyCode) (bool, error)

// Generator produces collision-resistant lobby codes from a secure
// random source.
type Generator struct {
	random random.Random
}

// NewGenerator creates a Generator drawing from the given random source.
func NewGenerator(random random.Random) *Generator {
	return &Generator{random: random}
}

// Generate produces a single code. Each character is drawn independently;
// an out-of-alphabet byte is corrected by modulo reduction rather than
// rejection. The skew this introduces over 31 symbols is negligible.
func (g *Generator) Generate() model.LobbyCode {
	raw := g.random.Bytes(Length)
	buf := make([]byte, Length)
	for i, b := range raw {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return model.LobbyCode(buf)
}

// GenerateUnique draws codes until exists reports false, failing with
// model.ErrCodeExhausted after maxRetries attempts. A maxRetries of zero or
// below uses DefaultMaxRetries. Errors from the existence check propagate
// immediately; the check-then-create window is the caller's to close.
func (g *Generator) GenerateUnique(ctx context.Context, exists ExistsFunc, maxRetries int) (model.LobbyCode, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	for attempt := 0; attempt < maxRetries; attempt++ {
		candidate := g.Generate()
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", model.ErrCodeExhausted
}

// Normalize trims surrounding whitespace and uppercases a user-typed code.
func Normalize(raw string) model.LobbyCode {
	return model.LobbyCode(strings.ToUpper(strings.TrimSpace(raw)))
}

// Validate reports whether a normalized code is exactly 6 uppercase
// alphanumeric characters.
func Validate(code model.LobbyCode) bool {
	return codePattern.MatchString(string(code))
}
