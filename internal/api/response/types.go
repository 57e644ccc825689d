package response

import (
	"sort"
	"time"

	"github.com/tallyboard/lobby/internal/model"
)

// Player represents a lobby member in API responses
type Player struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	JoinedAt    time.Time `json:"joined_at"`
	IsConnected bool      `json:"is_connected"`
	IsLeader    bool      `json:"is_leader"`
}

// Lobby represents a lobby in API responses. Players are ordered by join
// time so rosters render stably.
type Lobby struct {
	Code      string    `json:"code"`
	LeaderID  string    `json:"leader_id"`
	CreatedAt time.Time `json:"created_at"`
	GameState string    `json:"game_state"`
	Players   []Player  `json:"players"`

	// Score data is carried through untouched for the companion app.
	Scores      map[string]int `json:"scores,omitempty"`
	CurrentTurn string         `json:"current_turn,omitempty"`
}

// LobbyFromModel converts model.Lobby
func LobbyFromModel(l *model.Lobby) Lobby {
	players := make([]Player, 0, len(l.Players))
	for _, p := range l.Players {
		players = append(players, Player{
			ID:          string(p.ID),
			Name:        p.Name,
			JoinedAt:    p.JoinedAt,
			IsConnected: p.IsConnected,
			IsLeader:    p.ID == l.LeaderID,
		})
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].ID < players[j].ID
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})

	var scores map[string]int
	if len(l.Scores) > 0 {
		scores = make(map[string]int, len(l.Scores))
		for id, s := range l.Scores {
			scores[string(id)] = s
		}
	}

	return Lobby{
		Code:        string(l.Code),
		LeaderID:    string(l.LeaderID),
		CreatedAt:   l.CreatedAt,
		GameState:   string(l.GameState),
		Players:     players,
		Scores:      scores,
		CurrentTurn: string(l.CurrentTurn),
	}
}

// Identity is the response for minting an identity
type Identity struct {
	ID string `json:"id"`
}

// Presence represents one identity's presence marker
type Presence struct {
	State       string    `json:"state"`
	LastChanged time.Time `json:"last_changed"`
}

// PresenceFromModel converts model.Presence
func PresenceFromModel(p model.Presence) Presence {
	return Presence{
		State:       string(p.State),
		LastChanged: p.LastChanged,
	}
}

// RosterPresence maps each lobby member to their presence marker.
// Members without a marker are reported offline with a zero last_changed.
type RosterPresence struct {
	Code    string              `json:"code"`
	Members map[string]Presence `json:"members"`
}
