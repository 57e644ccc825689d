package model

import "time"

// PlayerID uniquely identifies a player across the system.
// It is an opaque identity string assigned by the identity service.
type PlayerID string

// Player represents a member of a lobby.
// A Player record is owned by the lobby it belongs to: it is created on join,
// mutated in place for connection-status flips, and removed on leave.
type Player struct {
	ID          PlayerID  `json:"id"`
	Name        string    `json:"name"`
	JoinedAt    time.Time `json:"joined_at"`
	IsConnected bool      `json:"is_connected"`
}
