package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Identity:
		o.printIdentity(v)
	case Lobby:
		o.printLobby(v)
	case Presence:
		o.printPresence(v)
	case RosterPresence:
		o.printRosterPresence(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Identity response type (matches API)
type Identity struct {
	ID string `json:"id"`
}

// Player response type
type Player struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	JoinedAt    time.Time `json:"joined_at"`
	IsConnected bool      `json:"is_connected"`
	IsLeader    bool      `json:"is_leader"`
}

// Lobby response type
type Lobby struct {
	Code      string    `json:"code"`
	LeaderID  string    `json:"leader_id"`
	CreatedAt time.Time `json:"created_at"`
	GameState string    `json:"game_state"`
	Players   []Player  `json:"players"`
}

// Presence response type
type Presence struct {
	State       string    `json:"state"`
	LastChanged time.Time `json:"last_changed"`
}

// RosterPresence response type
type RosterPresence struct {
	Code    string              `json:"code"`
	Members map[string]Presence `json:"members"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printIdentity(i Identity) {
	fmt.Printf("Identity: %s\n", i.ID)
}

func (o *Output) printLobby(l Lobby) {
	fmt.Printf("Lobby: %s\n", l.Code)
	fmt.Printf("State: %s\n", l.GameState)
	fmt.Printf("Created: %s\n", l.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Players (%d):\n", len(l.Players))
	for _, p := range l.Players {
		leaderStr := ""
		if p.IsLeader {
			leaderStr = " [leader]"
		}
		connStr := "connected"
		if !p.IsConnected {
			connStr = "disconnected"
		}
		fmt.Printf("  - %s (%s) - %s%s\n", p.Name, p.ID, connStr, leaderStr)
	}
}

func (o *Output) printPresence(p Presence) {
	fmt.Printf("State: %s\n", p.State)
	if !p.LastChanged.IsZero() {
		fmt.Printf("Last changed: %s\n", p.LastChanged.Format(time.RFC3339))
	}
}

func (o *Output) printRosterPresence(r RosterPresence) {
	fmt.Printf("Lobby: %s\n", r.Code)
	fmt.Printf("Members (%d):\n", len(r.Members))
	for id, p := range r.Members {
		fmt.Printf("  - %s: %s", id, p.State)
		if !p.LastChanged.IsZero() {
			fmt.Printf(" (since %s)", p.LastChanged.Format(time.RFC3339))
		}
		fmt.Println()
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
