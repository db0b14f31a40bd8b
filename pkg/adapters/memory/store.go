package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/splitbill/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Session
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Session),
	}
}

// Save persists the session in memory.
func (s *Store) Save(ctx context.Context, actorID string, session *domain.Session) error {
	// Deep copy to ensure isolation, similar to serialization
	copied := session.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[actorID] = copied
	return nil
}

// Load retrieves the session from memory.
func (s *Store) Load(ctx context.Context, actorID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.data[actorID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	// Copy on read so the caller can't mutate store state directly by pointer
	return session.Clone(), nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, actorID)
	return nil
}

// List returns actors with a session, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	actors := make([]string, 0, len(s.data))
	for id := range s.data {
		actors = append(actors, id)
	}
	sort.Strings(actors)
	return actors, nil
}
