package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tallyboard/lobby/internal/api/request"
	"github.com/tallyboard/lobby/internal/api/response"
	"github.com/tallyboard/lobby/internal/api/stream"
	"github.com/tallyboard/lobby/internal/code"
	"github.com/tallyboard/lobby/internal/model"
	"github.com/tallyboard/lobby/internal/services/lobby"
	"github.com/tallyboard/lobby/internal/storage"
)

// LobbyHandler handles lobby-related endpoints
type LobbyHandler struct {
	controller lobby.ControllerInterface
	store      storage.Store
	streams    *stream.Manager
}

// NewLobbyHandler creates a new lobby handler. streams may be nil when
// the event stream endpoint is not mounted.
func NewLobbyHandler(controller lobby.ControllerInterface, store storage.Store, streams *stream.Manager) *LobbyHandler {
	return &LobbyHandler{
		controller: controller,
		store:      store,
		streams:    streams,
	}
}

// Create handles POST /api/v1/lobbies
func (h *LobbyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Empty body means default display name.
		req = request.CreateLobbyRequest{}
	}

	lobby, err := h.controller.Create(r.Context(), callerID(r), req.Name)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.LobbyFromModel(lobby))
}

// Get handles GET /api/v1/lobbies/{code}
func (h *LobbyHandler) Get(w http.ResponseWriter, r *http.Request) {
	lobby, err := h.controller.Get(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LobbyFromModel(lobby))
}

// Join handles POST /api/v1/lobbies/{code}/join
func (h *LobbyHandler) Join(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req request.JoinLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = request.JoinLobbyRequest{}
	}

	if err := h.controller.Join(r.Context(), code, callerID(r), req.Name); err != nil {
		WriteError(w, err)
		return
	}

	lobby, err := h.controller.Get(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LobbyFromModel(lobby))
}

// Leave handles POST /api/v1/lobbies/{code}/leave
func (h *LobbyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Leave(r.Context(), mux.Vars(r)["code"], callerID(r)); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Events handles GET /api/v1/lobbies/{code}/events, an SSE stream of
// view snapshots. The stream stays open across lobby deletion so clients
// observe the final not_found view.
func (h *LobbyHandler) Events(w http.ResponseWriter, r *http.Request) {
	lobbyCode := code.Normalize(mux.Vars(r)["code"])
	if !code.Validate(lobbyCode) {
		WriteError(w, model.ErrInvalidCode)
		return
	}

	hub, err := h.streams.Hub(lobbyCode)
	if err != nil {
		WriteError(w, err)
		return
	}

	stream.Serve(w, r, hub)
}

// Presence handles GET /api/v1/lobbies/{code}/presence, reporting the
// presence marker of every current member. Members without a marker read
// as offline.
func (h *LobbyHandler) Presence(w http.ResponseWriter, r *http.Request) {
	lobby, err := h.controller.Get(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		WriteError(w, err)
		return
	}

	members := make(map[string]response.Presence, len(lobby.Players))
	for id := range lobby.Players {
		p, err := h.store.GetPresence(r.Context(), id)
		if errors.Is(err, model.ErrPresenceNotFound) {
			members[string(id)] = response.Presence{State: string(model.PresenceOffline)}
			continue
		}
		if err != nil {
			WriteError(w, err)
			return
		}
		members[string(id)] = response.PresenceFromModel(p)
	}

	response.JSON(w, http.StatusOK, response.RosterPresence{
		Code:    string(lobby.Code),
		Members: members,
	})
}
