package model

import "errors"

// Common errors used across the application
var (
	// Validation errors (local, user-correctable, never retried automatically)
	ErrMissingUserID = errors.New("user id is required")
	ErrInvalidCode   = errors.New("invalid lobby code")

	// Lobby errors
	ErrLobbyNotFound = errors.New("lobby not found")
	ErrNotInLobby    = errors.New("player is not in lobby")
	ErrCodeTaken     = errors.New("lobby code already taken")

	// Code generation errors
	ErrCodeExhausted = errors.New("unique code generation retries exhausted")

	// Presence errors
	ErrPresenceNotFound = errors.New("presence record not found")

	// Store/transport errors (surfaced with a retry affordance)
	ErrStoreUnavailable = errors.New("store unavailable")
)
