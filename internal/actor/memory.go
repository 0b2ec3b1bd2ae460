package actor

import (
	"context"
	"sync"
	"time"

	"clienthub.org/internal/ids"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore mirrors PGStore in process for tests and local wiring.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]Actor
	byExternal map[string]string
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]Actor),
		byExternal: make(map[string]string),
		now:        time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, a *Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byExternal[a.ExternalID]; ok {
		return ErrConflict
	}
	if a.ID == "" {
		a.ID = ids.New()
	}
	now := s.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	s.byID[a.ID] = *a
	s.byExternal[a.ExternalID] = a.ID
	return nil
}

func (s *MemoryStore) Find(_ context.Context, id string) (*Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) FindByExternalID(_ context.Context, externalID string) (*Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byExternal[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	a := s.byID[id]
	return &a, nil
}

func (s *MemoryStore) UpdateRole(_ context.Context, id string, role Role) (*Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Role = role
	a.UpdatedAt = s.now().UTC()
	s.byID[id] = a
	return &a, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status Status) (*Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = s.now().UTC()
	s.byID[id] = a
	return &a, nil
}
