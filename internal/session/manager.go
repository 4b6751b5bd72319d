package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/p-n-ai/pai-deck/internal/deck"
)

// Publisher receives the snapshot after every successful action.
type Publisher interface {
	Publish(id string, snap Snapshot)
}

// CapabilitiesFunc returns the capabilities bound to a session id.
type CapabilitiesFunc func(id string) Capabilities

// Manager loads sessions from a Store, applies one action at a time per
// session and saves the result.
type Manager struct {
	deck      *deck.Deck
	store     Store
	caps      CapabilitiesFunc
	publisher Publisher

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCapabilities sets the per-session narration and cue capabilities.
func WithCapabilities(fn CapabilitiesFunc) ManagerOption {
	return func(m *Manager) { m.caps = fn }
}

// WithPublisher sets where snapshots are published.
func WithPublisher(p Publisher) ManagerOption {
	return func(m *Manager) { m.publisher = p }
}

// NewManager creates a manager for one deck.
func NewManager(d *deck.Deck, store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		deck:  d,
		store: store,
		caps:  func(string) Capabilities { return Capabilities{} },
		locks: make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Deck returns the deck sessions run against.
func (m *Manager) Deck() *deck.Deck {
	return m.deck
}

// Start creates a new session on the first slide.
func (m *Manager) Start(ctx context.Context) (Snapshot, error) {
	id, err := m.store.Create(ctx, New("", m.deck, Capabilities{}).State())
	if err != nil {
		return Snapshot{}, fmt.Errorf("starting session: %w", err)
	}
	st, err := m.store.Get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	slog.Info("session started", "session_id", id, "deck_id", m.deck.ID)
	return Restore(m.deck, st, Capabilities{}).Snapshot(), nil
}

// Get returns the current snapshot of a session.
func (m *Manager) Get(ctx context.Context, id string) (Snapshot, error) {
	st, err := m.store.Get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return Restore(m.deck, st, m.caps(id)).Snapshot(), nil
}

// Do runs fn against the session and saves the result. Calls for the same
// id run one after another.
func (m *Manager) Do(ctx context.Context, id string, fn func(*Session) error) (Snapshot, error) {
	unlock := m.lock(id)
	defer unlock()

	st, err := m.store.Get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	s := Restore(m.deck, st, m.caps(id))
	if err := fn(s); err != nil {
		return Snapshot{}, err
	}
	if err := m.store.Save(ctx, s.State()); err != nil {
		return Snapshot{}, fmt.Errorf("saving session: %w", err)
	}

	snap := s.Snapshot()
	if m.publisher != nil {
		m.publisher.Publish(id, snap)
	}
	return snap, nil
}

// End deletes a session.
func (m *Manager) End(ctx context.Context, id string) error {
	unlock := m.lock(id)
	defer unlock()

	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.caps(id).withDefaults().Narrator.Cancel()
	slog.Info("session ended", "session_id", id)
	return nil
}

func (m *Manager) lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}
