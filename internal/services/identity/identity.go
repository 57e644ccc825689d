// Package identity provides anonymous client identities. An identity is
// an opaque UUID minted on first use and persisted locally, so the same
// client resumes the same seat across restarts without any account
// system.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tallyboard/lobby/internal/model"
	"github.com/tallyboard/lobby/internal/storage"
)

// retryDelay is the pause before the single sign-in retry. Transient
// store hiccups at startup usually clear within a second; anything
// longer is reported to the caller instead of retried forever.
const retryDelay = time.Second

// Service mints, persists and registers anonymous identities.
type Service struct {
	store  storage.Store
	path   string
	logger *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewService creates an identity Service. path is the file the identity
// is persisted to; an empty path yields a fresh ephemeral identity per
// Acquire.
func NewService(store storage.Store, path string, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		path:   path,
		logger: logger.With(slog.String("component", "identity")),
		sleep:  sleepCtx,
	}
}

// Acquire returns the client's identity, minting and persisting one if
// needed, and registers it with the store by ensuring a presence record
// exists. A failed registration is retried exactly once after a fixed
// delay; a second failure is returned.
func (s *Service) Acquire(ctx context.Context) (model.PlayerID, error) {
	id, err := s.load()
	if err != nil {
		return "", err
	}
	if id == "" {
		id = model.PlayerID(uuid.NewString())
		if err := s.persist(id); err != nil {
			return "", err
		}
		s.logger.Info("minted new identity", slog.String("identity", string(id)))
	}

	if err := s.register(ctx, id); err != nil {
		s.logger.Warn("identity registration failed, retrying once",
			slog.Any("error", err))
		if serr := s.sleep(ctx, retryDelay); serr != nil {
			return "", serr
		}
		if err := s.register(ctx, id); err != nil {
			return "", fmt.Errorf("registering identity: %w", err)
		}
	}

	return id, nil
}

// register ensures the identity has a presence record, without
// disturbing an existing marker.
func (s *Service) register(ctx context.Context, id model.PlayerID) error {
	_, err := s.store.GetPresence(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrPresenceNotFound) {
		return err
	}
	return s.store.SetPresence(ctx, id, model.PresenceOffline)
}

func (s *Service) load() (model.PlayerID, error) {
	if s.path == "" {
		return "", nil
	}
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading identity file: %w", err)
	}
	id := strings.TrimSpace(string(raw))
	if _, err := uuid.Parse(id); err != nil {
		// A corrupt file is discarded rather than surfaced; the caller
		// just gets a fresh identity.
		s.logger.Warn("discarding unparseable identity file",
			slog.String("path", s.path))
		return "", nil
	}
	return model.PlayerID(id), nil
}

func (s *Service) persist(id model.PlayerID) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating identity dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(string(id)+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
