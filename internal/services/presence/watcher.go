package presence

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tallyboard/lobby/internal/model"
	"github.com/tallyboard/lobby/internal/storage"
)

// ChangeFunc is notified whenever a watched identity's presence changes.
// ok is false when the identity has no marker at all, which readers
// treat as offline.
type ChangeFunc func(id model.PlayerID, p model.Presence, ok bool)

// Watcher follows presence markers for a set of identities, typically a
// lobby roster, and answers point queries from its local mirror.
type Watcher struct {
	store  storage.Store
	logger *slog.Logger
	fn     ChangeFunc

	mu    sync.Mutex
	subs  map[model.PlayerID]storage.CancelFunc
	state map[model.PlayerID]model.Presence
	known map[model.PlayerID]bool
}

// NewWatcher creates a Watcher. fn may be nil when only point queries
// are needed.
func NewWatcher(store storage.Store, fn ChangeFunc, logger *slog.Logger) *Watcher {
	return &Watcher{
		store:  store,
		logger: logger.With(slog.String("component", "presence_watcher")),
		fn:     fn,
		subs:   make(map[model.PlayerID]storage.CancelFunc),
		state:  make(map[model.PlayerID]model.Presence),
		known:  make(map[model.PlayerID]bool),
	}
}

// Watch starts following an identity. Watching an identity twice is a
// no-op. The current marker is replayed through the change callback.
func (w *Watcher) Watch(id model.PlayerID) error {
	w.mu.Lock()
	if _, ok := w.subs[id]; ok {
		w.mu.Unlock()
		return nil
	}
	// Placeholder so a concurrent Watch observes the claim.
	w.subs[id] = nil
	w.mu.Unlock()

	cancel, err := w.store.SubscribePresence(id, func(p model.Presence, ok bool) {
		w.mu.Lock()
		w.state[id] = p
		w.known[id] = ok
		w.mu.Unlock()
		if w.fn != nil {
			w.fn(id, p, ok)
		}
	})
	if err != nil {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
		return err
	}

	w.mu.Lock()
	w.subs[id] = cancel
	w.mu.Unlock()
	return nil
}

// Unwatch stops following an identity and drops its mirrored state.
func (w *Watcher) Unwatch(id model.PlayerID) {
	w.mu.Lock()
	cancel := w.subs[id]
	delete(w.subs, id)
	delete(w.state, id)
	delete(w.known, id)
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// IsOnline reports whether the identity currently has an online marker.
// Absent markers read as offline.
func (w *Watcher) IsOnline(id model.PlayerID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.known[id] && w.state[id].Online()
}

// LastSeen returns the timestamp of the identity's last presence
// transition. ok is false when no marker has ever been observed.
func (w *Watcher) LastSeen(id model.PlayerID) (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.known[id] {
		return time.Time{}, false
	}
	return w.state[id].LastChanged, true
}

// Snapshot returns a copy of the mirrored presence of all watched
// identities that have markers.
func (w *Watcher) Snapshot() map[model.PlayerID]model.Presence {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[model.PlayerID]model.Presence, len(w.state))
	for id, p := range w.state {
		if w.known[id] {
			out[id] = p
		}
	}
	return out
}

// Close stops all subscriptions.
func (w *Watcher) Close() {
	w.mu.Lock()
	cancels := make([]storage.CancelFunc, 0, len(w.subs))
	for _, cancel := range w.subs {
		if cancel != nil {
			cancels = append(cancels, cancel)
		}
	}
	w.subs = make(map[model.PlayerID]storage.CancelFunc)
	w.state = make(map[model.PlayerID]model.Presence)
	w.known = make(map[model.PlayerID]bool)
	w.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
