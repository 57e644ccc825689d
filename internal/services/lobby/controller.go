// Package lobby implements the lobby lifecycle: create, join, leave, and
// the membership invariants that go with them (exactly one leader drawn
// from the member set, deletion of emptied lobbies, unique codes).
package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tallyboard/lobby/internal/code"
	"github.com/tallyboard/lobby/internal/dependencies/clock"
	"github.com/tallyboard/lobby/internal/model"
	"github.com/tallyboard/lobby/internal/storage"
)

// createAttempts bounds re-entry into unique code generation when the
// check-then-create window loses the race and the write reports a
// conflict.
const createAttempts = 3

// Controller orchestrates lobby lifecycle operations against the store.
// It holds no state of its own; correctness against concurrent writers
// relies on the store's per-key write ordering.
type Controller struct {
	store   storage.Store
	codegen *code.Generator
	clock   clock.Clock
	logger  *slog.Logger
}

// NewController creates a new lobby Controller
func NewController(store storage.Store, codegen *code.Generator, clk clock.Clock, logger *slog.Logger) *Controller {
	return &Controller{
		store:   store,
		codegen: codegen,
		clock:   clk,
		logger:  logger.With(slog.String("component", "lobby")),
	}
}

// Create generates a unique code and writes a new lobby with the creator
// as sole member and leader.
func (c *Controller) Create(ctx context.Context, userID model.PlayerID, name string) (*model.Lobby, error) {
	if userID == "" {
		return nil, model.ErrMissingUserID
	}
	if name == "" {
		name = "Player 1"
	}

	exists := func(ctx context.Context, candidate model.LobbyCode) (bool, error) {
		return c.store.LobbyExists(ctx, candidate)
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		lobbyCode, err := c.codegen.GenerateUnique(ctx, exists, code.DefaultMaxRetries)
		if err != nil {
			return nil, err
		}

		now := c.clock.Now()
		lobby := &model.Lobby{
			Code:      lobbyCode,
			LeaderID:  userID,
			CreatedAt: now,
			GameState: model.GameStateWaiting,
			Players: map[model.PlayerID]model.Player{
				userID: {
					ID:          userID,
					Name:        name,
					JoinedAt:    now,
					IsConnected: true,
				},
			},
		}

		err = c.store.CreateLobby(ctx, lobby)
		if err == nil {
			c.logger.Info("lobby created",
				slog.String("code", string(lobbyCode)),
				slog.String("leader", string(userID)))
			return lobby, nil
		}
		if !errors.Is(err, model.ErrCodeTaken) {
			return nil, err
		}
		// Another client won the check-then-create window; draw again.
		c.logger.Warn("lobby code conflict on create",
			slog.String("code", string(lobbyCode)))
	}

	return nil, model.ErrCodeExhausted
}

// Join adds the player to the lobby, or reactivates the connection if the
// identity is already a member. Repeated joins by the same identity never
// duplicate a player or reset JoinedAt.
func (c *Controller) Join(ctx context.Context, rawCode string, userID model.PlayerID, name string) error {
	lobbyCode, err := normalizeCode(rawCode)
	if err != nil {
		return err
	}
	if userID == "" {
		return model.ErrMissingUserID
	}

	lobby, err := c.store.GetLobby(ctx, lobbyCode)
	if err != nil {
		return err
	}

	if lobby.HasPlayer(userID) {
		// Reconnect: only the connection flag changes.
		return c.store.SetPlayerConnected(ctx, lobbyCode, userID, true)
	}

	if name == "" {
		name = fmt.Sprintf("Player %d", lobby.PlayerCount()+1)
	}

	player := model.Player{
		ID:          userID,
		Name:        name,
		JoinedAt:    c.clock.Now(),
		IsConnected: true,
	}
	if err := c.store.PutPlayer(ctx, lobbyCode, player); err != nil {
		return err
	}

	c.logger.Info("player joined",
		slog.String("code", string(lobbyCode)),
		slog.String("player", string(userID)))
	return nil
}

// Leave removes the player from the lobby. The emptied lobby is deleted;
// otherwise, if the departure leaves the leader seat dangling, leadership
// transfers to the deterministic successor among the current members
// (earliest JoinedAt, ties by player ID).
//
// The successor is recomputed from a post-removal read rather than the
// initial one, so a membership change committed between the two writes
// cannot hand leadership to a player who has also just left.
func (c *Controller) Leave(ctx context.Context, rawCode string, userID model.PlayerID) error {
	lobbyCode, err := normalizeCode(rawCode)
	if err != nil {
		return err
	}
	if userID == "" {
		return model.ErrMissingUserID
	}

	lobby, err := c.store.GetLobby(ctx, lobbyCode)
	if err != nil {
		return err
	}
	if !lobby.HasPlayer(userID) {
		return model.ErrNotInLobby
	}

	if err := c.store.RemovePlayer(ctx, lobbyCode, userID); err != nil {
		return err
	}

	current, err := c.store.GetLobby(ctx, lobbyCode)
	if err != nil {
		if errors.Is(err, model.ErrLobbyNotFound) {
			// A concurrent leave already completed the teardown.
			return nil
		}
		return err
	}

	if current.PlayerCount() == 0 {
		c.logger.Info("lobby emptied, deleting",
			slog.String("code", string(lobbyCode)))
		return c.store.DeleteLobby(ctx, lobbyCode)
	}

	if !current.HasPlayer(current.LeaderID) {
		successor := current.NextLeader(userID)
		if successor == "" {
			return nil
		}
		if err := c.store.SetLeader(ctx, lobbyCode, successor); err != nil {
			return err
		}
		c.logger.Info("leadership transferred",
			slog.String("code", string(lobbyCode)),
			slog.String("from", string(userID)),
			slog.String("to", string(successor)))
	}

	return nil
}

// Get retrieves a lobby snapshot by its (possibly un-normalized) code.
func (c *Controller) Get(ctx context.Context, rawCode string) (*model.Lobby, error) {
	lobbyCode, err := normalizeCode(rawCode)
	if err != nil {
		return nil, err
	}
	return c.store.GetLobby(ctx, lobbyCode)
}

func normalizeCode(raw string) (model.LobbyCode, error) {
	normalized := code.Normalize(raw)
	if !code.Validate(normalized) {
		return "", model.ErrInvalidCode
	}
	return normalized, nil
}

// Interface for dependency injection
type ControllerInterface interface {
	Create(ctx context.Context, userID model.PlayerID, name string) (*model.Lobby, error)
	Join(ctx context.Context, rawCode string, userID model.PlayerID, name string) error
	Leave(ctx context.Context, rawCode string, userID model.PlayerID) error
	Get(ctx context.Context, rawCode string) (*model.Lobby, error)
}

var _ ControllerInterface = (*Controller)(nil)
