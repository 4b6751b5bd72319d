package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Store persists session state between user actions.
type Store interface {
	Create(ctx context.Context, st State) (string, error)
	Get(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, st State) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore is an in-memory implementation of Store. Sessions expire
// once they go unsaved for the TTL; Sweep drops expired entries.
type MemoryStore struct {
	sessions map[string]memoryEntry
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMemoryTTL sets how long an untouched session lives.
func WithMemoryTTL(ttl time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      DefaultSessionTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Create(_ context.Context, st State) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.ID = generateID()
	now := s.now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now
	s.sessions[st.ID] = memoryEntry{state: st, expiresAt: now.Add(s.ttl)}
	return st.ID, nil
}

// lookup returns the live entry for id, dropping it if it has expired.
// Callers hold s.mu.
func (s *MemoryStore) lookup(id string) (memoryEntry, bool) {
	e, ok := s.sessions[id]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.sessions, id)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) Get(_ context.Context, id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(id)
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.state, nil
}

func (s *MemoryStore) Save(_ context.Context, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(st.ID); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, st.ID)
	}
	now := s.now().UTC()
	st.UpdatedAt = now
	s.sessions[st.ID] = memoryEntry{state: st, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(id); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many it removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func generateID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
