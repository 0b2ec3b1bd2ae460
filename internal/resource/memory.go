package resource

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"clienthub.org/internal/ids"
	"clienthub.org/internal/policy"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore mirrors PGStore in process. It backs handler tests and local
// wiring; predicates are evaluated with policy.Predicate.Matches so the two
// stores stay semantically interchangeable.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]Conversation
	documents     map[string]Document
	projects      map[string]Project
	now           func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]Conversation),
		documents:     make(map[string]Document),
		projects:      make(map[string]Project),
		now:           time.Now,
	}
}

// AssignedOwners recomputes the staff-to-owner relation from the live
// conversation rows, matching what PGIndex derives from the conversations
// table. It lets one MemoryStore back both the store and the index.
func (s *MemoryStore) AssignedOwners(_ context.Context, staffActorID string) (map[string]struct{}, error) {
	owners := make(map[string]struct{})
	if strings.TrimSpace(staffActorID) == "" {
		return owners, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conversations {
		if c.AssignedStaffID == staffActorID {
			owners[c.OwnerActorID] = struct{}{}
		}
	}
	return owners, nil
}

func (s *MemoryStore) CreateConversation(_ context.Context, c *Conversation) error {
	if c.OwnerActorID == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if c.ID == "" {
		c.ID = ids.New()
	}
	now := s.now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = *c
	return nil
}

func (s *MemoryStore) FindConversation(_ context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) ListConversations(_ context.Context, p policy.Predicate) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Conversation
	for _, c := range s.conversations {
		if p.Matches(c.PolicyResource()) {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) AssignConversation(_ context.Context, id, staffActorID string) (AssignmentChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before, ok := s.conversations[id]
	if !ok {
		return AssignmentChange{}, ErrNotFound
	}
	after := before
	after.AssignedStaffID = strings.TrimSpace(staffActorID)
	after.UpdatedAt = s.now().UTC()
	s.conversations[id] = after
	return AssignmentChange{Old: before, New: after}, nil
}

func (s *MemoryStore) CreateDocument(_ context.Context, d *Document) error {
	if d.OwnerActorID == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if d.ID == "" {
		d.ID = ids.New()
	}
	now := s.now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[d.ID] = *d
	return nil
}

func (s *MemoryStore) FindDocument(_ context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (s *MemoryStore) ListDocuments(_ context.Context, p policy.Predicate) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Document
	for _, d := range s.documents {
		if p.Matches(d.PolicyResource()) {
			res = append(res, d)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) UpdateDocument(_ context.Context, id string, upd DocumentUpdate) (DocumentChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before, ok := s.documents[id]
	if !ok {
		return DocumentChange{}, ErrNotFound
	}
	after := before
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return DocumentChange{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		after.Title = title
	}
	if upd.Content != nil {
		after.Content = *upd.Content
	}
	after.UpdatedAt = s.now().UTC()
	s.documents[id] = after
	return DocumentChange{Old: before, New: after}, nil
}

func (s *MemoryStore) CreateProject(_ context.Context, pr *Project) error {
	if pr.OwnerActorID == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if pr.ID == "" {
		pr.ID = ids.New()
	}
	now := s.now().UTC()
	pr.CreatedAt, pr.UpdatedAt = now, now
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[pr.ID] = *pr
	return nil
}

func (s *MemoryStore) FindProject(_ context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pr, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &pr, nil
}

func (s *MemoryStore) ListProjects(_ context.Context, p policy.Predicate) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Project
	for _, pr := range s.projects {
		if p.Matches(pr.PolicyResource()) {
			res = append(res, pr)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}
