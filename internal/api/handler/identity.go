package handler

import (
	"net/http"
	"strings"

	"github.com/tallyboard/lobby/internal/api/response"
	"github.com/tallyboard/lobby/internal/model"
	"github.com/tallyboard/lobby/internal/services/identity"
)

// identityHeader carries the caller's anonymous identity. There are no
// accounts; possession of the UUID is the whole credential.
const identityHeader = "X-Identity"

// callerID extracts the caller's identity from the request, or "" if the
// header is absent.
func callerID(r *http.Request) model.PlayerID {
	return model.PlayerID(strings.TrimSpace(r.Header.Get(identityHeader)))
}

// IdentityHandler handles identity endpoints
type IdentityHandler struct {
	service *identity.Service
}

// NewIdentityHandler creates a new identity handler
func NewIdentityHandler(service *identity.Service) *IdentityHandler {
	return &IdentityHandler{service: service}
}

// Create handles POST /api/v1/identity. Each call mints a fresh
// anonymous identity; clients persist it themselves.
func (h *IdentityHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := h.service.Acquire(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, response.Identity{ID: string(id)})
}
