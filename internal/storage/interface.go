// Package storage defines the store adapter the lobby core is written
// against: point reads, point writes (including partial-path writes below a
// lobby record), and subscribe-for-changes semantics.
package storage

import (
	"context"

	"github.com/tallyboard/lobby/internal/model"
)

// LobbyChangeFunc receives the latest committed lobby record for a
// subscribed code. ok is false when the record has been deleted.
type LobbyChangeFunc func(lobby *model.Lobby, ok bool)

// PresenceChangeFunc receives the latest committed presence record for a
// subscribed identity. ok is false when no record exists.
type PresenceChangeFunc func(presence model.Presence, ok bool)

// ConnectivityFunc receives transitions of the transport's own
// connected/disconnected signal.
type ConnectivityFunc func(connected bool)

// CancelFunc releases a subscription. After it returns, the callback is
// never invoked again.
type CancelFunc func()

// Store is the interface for the realtime backing store.
//
// Writes to a single lobby key are observed by all subscribers of that key
// in the order the store commits them. There is no ordering guarantee
// across different lobby keys, or between a lobby key and a presence key.
// Change delivery is coalescing: a slow subscriber always observes the
// latest committed value, possibly skipping intermediate ones.
type Store interface {
	// Lobby record operations
	//
	// CreateLobby writes the record only if the code is unoccupied and
	// fails with model.ErrCodeTaken otherwise, making the
	// check-then-create race detectable and retriable.
	CreateLobby(ctx context.Context, lobby *model.Lobby) error
	PutLobby(ctx context.Context, lobby *model.Lobby) error
	GetLobby(ctx context.Context, code model.LobbyCode) (*model.Lobby, error)
	DeleteLobby(ctx context.Context, code model.LobbyCode) error
	LobbyExists(ctx context.Context, code model.LobbyCode) (bool, error)

	// Partial-path writes below a lobby record
	PutPlayer(ctx context.Context, code model.LobbyCode, player model.Player) error
	RemovePlayer(ctx context.Context, code model.LobbyCode, id model.PlayerID) error
	SetLeader(ctx context.Context, code model.LobbyCode, id model.PlayerID) error
	SetPlayerConnected(ctx context.Context, code model.LobbyCode, id model.PlayerID, connected bool) error

	// Presence operations. The store assigns the LastChanged timestamp
	// when a record is written.
	//
	// RegisterOnDisconnect arms a store-side write of the given state
	// that fires if the connection drops without an explicit teardown.
	// A registration fires at most once and does not survive a
	// reconnect; callers re-arm it on every connectivity transition to
	// connected.
	SetPresence(ctx context.Context, id model.PlayerID, state model.PresenceState) error
	GetPresence(ctx context.Context, id model.PlayerID) (model.Presence, error)
	RegisterOnDisconnect(ctx context.Context, id model.PlayerID, state model.PresenceState) error
	ClearOnDisconnect(ctx context.Context, id model.PlayerID) error

	// Subscriptions
	SubscribeLobby(code model.LobbyCode, fn LobbyChangeFunc) (CancelFunc, error)
	SubscribePresence(id model.PlayerID, fn PresenceChangeFunc) (CancelFunc, error)
	SubscribeConnectivity(fn ConnectivityFunc) CancelFunc

	// Close tears down the store connection and all subscriptions.
	Close() error
}
