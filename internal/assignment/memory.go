package assignment

import (
	"context"
	"sync"
)

var _ Index = (*MemoryIndex)(nil)

// MemoryIndex mirrors PGIndex over an in-process map. It exists for tests and
// for wiring the core without a database; it still recomputes the owner set
// from the current assignment table on every call.
type MemoryIndex struct {
	mu sync.RWMutex
	// conversation id -> (owner, assigned staff)
	conversations map[string]memoryAssignment
}

type memoryAssignment struct {
	ownerID string
	staffID string
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{conversations: make(map[string]memoryAssignment)}
}

// SetConversation records or updates a conversation's owner and assignee.
// An empty staffID clears the assignment.
func (m *MemoryIndex) SetConversation(conversationID, ownerID, staffID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conversationID] = memoryAssignment{ownerID: ownerID, staffID: staffID}
}

func (m *MemoryIndex) AssignedOwners(_ context.Context, staffActorID string) (map[string]struct{}, error) {
	owners := make(map[string]struct{})
	if staffActorID == "" {
		return owners, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.conversations {
		if c.staffID == staffActorID {
			owners[c.ownerID] = struct{}{}
		}
	}
	return owners, nil
}
