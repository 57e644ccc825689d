package model

import (
	"sort"
	"time"
)

// LobbyCode is the human-shareable 6-character identifier for a lobby.
type LobbyCode string

// GameState represents the current phase of the lobby's game
type GameState string

const (
	GameStateWaiting  GameState = "waiting"
	GameStatePlaying  GameState = "playing"
	GameStateFinished GameState = "finished"
)

// Lobby is the full record stored under a lobby code.
//
// Invariants maintained by the lifecycle manager:
//   - Players is never empty for a lobby that exists in the store; the moment
//     the last player leaves, the record is deleted.
//   - LeaderID always refers to a key present in Players.
//   - CurrentTurn, when set, references a key in Players.
type Lobby struct {
	Code      LobbyCode           `json:"code"`
	LeaderID  PlayerID            `json:"leader_id"`
	CreatedAt time.Time           `json:"created_at"`
	GameState GameState           `json:"game_state"`
	Players   map[PlayerID]Player `json:"players"`

	// Scores and CurrentTurn are carried for the scoring app but never
	// interpreted here; game-rule logic lives outside this service.
	Scores      map[PlayerID]int `json:"scores,omitempty"`
	CurrentTurn PlayerID         `json:"current_turn,omitempty"`
}

// GetPlayer returns the player with the given ID, or nil if not a member.
func (l *Lobby) GetPlayer(id PlayerID) *Player {
	if l.Players == nil {
		return nil
	}
	p, ok := l.Players[id]
	if !ok {
		return nil
	}
	return &p
}

// HasPlayer reports whether the given ID is a member of the lobby.
func (l *Lobby) HasPlayer(id PlayerID) bool {
	_, ok := l.Players[id]
	return ok
}

// PlayerCount returns the number of members.
func (l *Lobby) PlayerCount() int {
	return len(l.Players)
}

// NextLeader picks the deterministic leadership-transfer target among the
// current members, excluding the departing player: earliest JoinedAt wins,
// ties broken by lexicographic player ID. Returns "" if no candidate remains.
func (l *Lobby) NextLeader(departing PlayerID) PlayerID {
	candidates := make([]Player, 0, len(l.Players))
	for id, p := range l.Players {
		if id == departing {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].JoinedAt.Equal(candidates[j].JoinedAt) {
			return candidates[i].JoinedAt.Before(candidates[j].JoinedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0].ID
}
