package audit

import (
	"context"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the trail in process. Entries are copied on the way in
// and out so nothing outside the store can mutate a recorded fact.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, cloneEntry(*entry))
	return nil
}

func (s *MemoryStore) Query(_ context.Context, f Filter, limit int, afterID string) ([]Entry, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		out  []Entry
		last string
	)
	for _, e := range s.entries {
		if afterID != "" && e.ID <= afterID {
			continue
		}
		if !matches(f, e) {
			continue
		}
		out = append(out, cloneEntry(e))
		last = e.ID
		if len(out) >= limit {
			break
		}
	}
	return out, last, nil
}

// Len reports the number of recorded entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func matches(f Filter, e Entry) bool {
	if f.EntityType != "" && e.EntityType != f.EntityType {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.CreatedAt.Before(f.To) {
		return false
	}
	return true
}

func cloneEntry(e Entry) Entry {
	out := e
	if e.OldValues != nil {
		out.OldValues = append([]byte(nil), e.OldValues...)
	}
	if e.NewValues != nil {
		out.NewValues = append([]byte(nil), e.NewValues...)
	}
	return out
}
