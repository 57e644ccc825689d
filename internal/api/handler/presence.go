package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/tallyboard/lobby/internal/api/response"
	"github.com/tallyboard/lobby/internal/model"
	"github.com/tallyboard/lobby/internal/storage"
)

// PresenceHandler handles presence endpoints
type PresenceHandler struct {
	store storage.Store
}

// NewPresenceHandler creates a new presence handler
func NewPresenceHandler(store storage.Store) *PresenceHandler {
	return &PresenceHandler{store: store}
}

// Get handles GET /api/v1/presence/{id}
func (h *PresenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])
	if id == "" {
		WriteError(w, model.ErrMissingUserID)
		return
	}

	p, err := h.store.GetPresence(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PresenceFromModel(p))
}

// Query handles GET /api/v1/presence?ids=a,b,c. Identities without a
// marker are reported offline with a zero last_changed.
func (h *PresenceHandler) Query(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if strings.TrimSpace(raw) == "" {
		WriteError(w, NewInvalidRequestError("ids query parameter is required"))
		return
	}

	members := make(map[string]response.Presence)
	for _, part := range strings.Split(raw, ",") {
		id := model.PlayerID(strings.TrimSpace(part))
		if id == "" {
			continue
		}

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

	response.JSON(w, http.StatusOK, members)
}

// Put handles PUT /api/v1/presence/{id}. Clients that cannot hold a
// realtime connection use it to publish their own marker.
func (h *PresenceHandler) Put(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])
	if id == "" || id != callerID(r) {
		WriteError(w, model.ErrMissingUserID)
		return
	}

	state := model.PresenceOnline
	if r.URL.Query().Get("state") == string(model.PresenceOffline) {
		state = model.PresenceOffline
	}

	if err := h.store.SetPresence(r.Context(), id, state); err != nil {
		WriteError(w, err)
		return
	}

	p, err := h.store.GetPresence(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.PresenceFromModel(p))
}
