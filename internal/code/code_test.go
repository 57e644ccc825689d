package code

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyboard/lobby/internal/dependencies/mocks"
	"github.com/tallyboard/lobby/internal/dependencies/random"
	"github.com/tallyboard/lobby/internal/model"
)

func TestGenerateLengthAndAlphabet(t *testing.T) {
	g := NewGenerator(random.New())

	for i := 0; i < 100; i++ {
		c := g.Generate()
		require.Len(t, string(c), Length)
		for _, r := range string(c) {
			assert.Contains(t, Alphabet, string(r))
		}
		// Confusable characters never appear in generated codes
		assert.NotContains(t, string(c), "0")
		assert.NotContains(t, string(c), "O")
		assert.NotContains(t, string(c), "1")
		assert.NotContains(t, string(c), "I")
		assert.NotContains(t, string(c), "L")
	}
}

func TestGenerateDistinctness(t *testing.T) {
	g := NewGenerator(random.New())

	seen := make(map[model.LobbyCode]bool)
	for i := 0; i < 100; i++ {
		seen[g.Generate()] = true
	}
	// Collisions over 31^6 combinations should be essentially absent
	assert.GreaterOrEqual(t, len(seen), 96)
}

func TestGenerateModuloReduction(t *testing.T) {
	rnd := mocks.NewMockRandom()
	// Bytes beyond the alphabet length reduce modulo 31
	rnd.QueueBytes([]byte{0, 30, 31, 62, 255, 1})
	g := NewGenerator(rnd)

	c := g.Generate()
	expected := string([]byte{
		Alphabet[0], Alphabet[30], Alphabet[0], Alphabet[0], Alphabet[255%31], Alphabet[1],
	})
	assert.Equal(t, model.LobbyCode(expected), c)
}

func TestGenerateUniqueFirstTry(t *testing.T) {
	g := NewGenerator(random.New())

	calls := 0
	exists := func(ctx context.Context, c model.LobbyCode) (bool, error) {
		calls++
		return false, nil
	}

	c, err := g.GenerateUnique(context.Background(), exists, DefaultMaxRetries)
	require.NoError(t, err)
	assert.Len(t, string(c), Length)
	assert.Equal(t, 1, calls)
}

func TestGenerateUniqueExhaustsRetries(t *testing.T) {
	g := NewGenerator(random.New())

	calls := 0
	exists := func(ctx context.Context, c model.LobbyCode) (bool, error) {
		calls++
		return true, nil
	}

	_, err := g.GenerateUnique(context.Background(), exists, DefaultMaxRetries)
	assert.ErrorIs(t, err, model.ErrCodeExhausted)
	assert.Equal(t, DefaultMaxRetries, calls)
}

func TestGenerateUniquePropagatesCheckError(t *testing.T) {
	g := NewGenerator(random.New())

	calls := 0
	exists := func(ctx context.Context, c model.LobbyCode) (bool, error) {
		calls++
		return false, model.ErrStoreUnavailable
	}

	_, err := g.GenerateUnique(context.Background(), exists, DefaultMaxRetries)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.Equal(t, 1, calls)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, model.LobbyCode("ABC123"), Normalize(" abc123 "))
	assert.Equal(t, model.LobbyCode("XYZ789"), Normalize("xyz789"))
	assert.Equal(t, model.LobbyCode(""), Normalize("   "))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"ABC123", true},
		{"abc123", false},
		{"ABC12", false},
		{"ABC1234", false},
		{"ABC-12", false},
		{"", false},
		{" ABC123", false},
		// Validation is permissive on confusables the generator never emits
		{"OOOOOO", true},
		{"ILO010", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, Validate(model.LobbyCode(tt.code)), "code %q", tt.code)
	}
}

func TestAlphabetExcludesConfusables(t *testing.T) {
	for _, c := range "01ILO" {
		assert.False(t, strings.ContainsRune(Alphabet, c))
	}
	assert.Len(t, Alphabet, 31)
}
