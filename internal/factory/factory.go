// Package factory wires the application's components together.
package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/tallyboard/lobby/internal/api/stream"
	"github.com/tallyboard/lobby/internal/code"
	"github.com/tallyboard/lobby/internal/dependencies/clock"
	"github.com/tallyboard/lobby/internal/dependencies/random"
	"github.com/tallyboard/lobby/internal/services/identity"
	"github.com/tallyboard/lobby/internal/services/lobby"
	"github.com/tallyboard/lobby/internal/storage"
	"github.com/tallyboard/lobby/internal/storage/memory"
	redisstorage "github.com/tallyboard/lobby/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	Store storage.Store

	Clock  clock.Clock
	Random random.Random

	CodeGenerator   *code.Generator
	LobbyController *lobby.Controller
	IdentityService *identity.Service
	StreamManager   *stream.Manager
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// IdentityPath is where a locally persisted identity lives (optional)
	IdentityPath string
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	clk := clock.New()
	rnd := random.New()

	var store storage.Store
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New(clk)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	return newWithDependencies(store, clk, rnd, cfg.IdentityPath, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Store, clk clock.Clock, rnd random.Random, identityPath string, logger *slog.Logger) *App {
	codegen := code.NewGenerator(rnd)
	lobbyController := lobby.NewController(store, codegen, clk, logger)
	identityService := identity.NewService(store, identityPath, logger)
	streamManager := stream.NewManager(store, logger)

	return &App{
		Store:           store,
		Clock:           clk,
		Random:          rnd,
		CodeGenerator:   codegen,
		LobbyController: lobbyController,
		IdentityService: identityService,
		StreamManager:   streamManager,
	}
}

// Close releases the app's background resources.
func (a *App) Close() error {
	a.StreamManager.Close()
	return a.Store.Close()
}
