package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tallyboard/lobby/internal/api/apierr"
	"github.com/tallyboard/lobby/internal/api/handler"
	"github.com/tallyboard/lobby/internal/api/stream"
	"github.com/tallyboard/lobby/internal/middleware"
	"github.com/tallyboard/lobby/internal/services/identity"
	"github.com/tallyboard/lobby/internal/services/lobby"
	"github.com/tallyboard/lobby/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	Store           storage.Store
	LobbyController lobby.ControllerInterface
	IdentityService *identity.Service
	StreamManager   *stream.Manager
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	identityHandler := handler.NewIdentityHandler(cfg.IdentityService)
	lobbyHandler := handler.NewLobbyHandler(cfg.LobbyController, cfg.Store, cfg.StreamManager)
	presenceHandler := handler.NewPresenceHandler(cfg.Store)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger, panicHandler))
	api.Use(middleware.Logging(cfg.Logger))

	api.HandleFunc("/identity", identityHandler.Create).Methods(http.MethodPost)

	api.HandleFunc("/lobbies", lobbyHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/lobbies/{code}", lobbyHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/lobbies/{code}/join", lobbyHandler.Join).Methods(http.MethodPost)
	api.HandleFunc("/lobbies/{code}/leave", lobbyHandler.Leave).Methods(http.MethodPost)
	api.HandleFunc("/lobbies/{code}/events", lobbyHandler.Events).Methods(http.MethodGet)
	api.HandleFunc("/lobbies/{code}/presence", lobbyHandler.Presence).Methods(http.MethodGet)

	api.HandleFunc("/presence", presenceHandler.Query).Methods(http.MethodGet)
	api.HandleFunc("/presence/{id}", presenceHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/presence/{id}", presenceHandler.Put).Methods(http.MethodPut)

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func panicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
