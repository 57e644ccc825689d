package memory

import "sync"

// mailbox delivers values to a subscriber callback in commit order with
// coalescing: the dispatch goroutine always takes the latest pushed value,
// so a slow subscriber skips intermediate values instead of blocking
// writers. close is deterministic: once it returns, the callback is never
// invoked again.
type mailbox[T any] struct {
	mu     sync.Mutex
	latest T
	dirty  bool
	notify chan struct{}
	done   chan struct{}

	// deliverMu serializes delivery against close; callbacks must not
	// cancel their own subscription from inside the callback.
	deliverMu sync.Mutex
	closed    bool

	closeOnce sync.Once
}

func newMailbox[T any](deliver func(T)) *mailbox[T] {
	m := &mailbox[T]{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go m.run(deliver)
	return m
}

func (m *mailbox[T]) run(deliver func(T)) {
	for {
		select {
		case <-m.notify:
			for {
				m.mu.Lock()
				if !m.dirty {
					m.mu.Unlock()
					break
				}
				v := m.latest
				m.dirty = false
				m.mu.Unlock()

				m.deliverMu.Lock()
				if !m.closed {
					deliver(v)
				}
				m.deliverMu.Unlock()
			}
		case <-m.done:
			return
		}
	}
}

// push records v as the latest value and wakes the dispatcher. It never
// blocks, so it is safe to call while holding store locks.
func (m *mailbox[T]) push(v T) {
	m.mu.Lock()
	m.latest = v
	m.dirty = true
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *mailbox[T]) close() {
	m.closeOnce.Do(func() {
		m.deliverMu.Lock()
		m.closed = true
		m.deliverMu.Unlock()
		close(m.done)
	})
}
