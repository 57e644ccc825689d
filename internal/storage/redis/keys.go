package redis

import (
	"fmt"

	"github.com/tallyboard/lobby/internal/model"
)

// Key prefix for all lobby-related data
const keyPrefix = "tally"

// lobbyKey returns the Redis key for a Lobby record
func lobbyKey(code model.LobbyCode) string {
	return fmt.Sprintf("%s:lobby:%s", keyPrefix, code)
}

// presenceKey returns the Redis key for an identity's presence record
func presenceKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:status:%s", keyPrefix, id)
}

// lobbyChannel returns the pub/sub channel carrying change pings for a lobby
func lobbyChannel(code model.LobbyCode) string {
	return fmt.Sprintf("%s:ch:lobby:%s", keyPrefix, code)
}

// presenceChannel returns the pub/sub channel for an identity's presence
func presenceChannel(id model.PlayerID) string {
	return fmt.Sprintf("%s:ch:status:%s", keyPrefix, id)
}
