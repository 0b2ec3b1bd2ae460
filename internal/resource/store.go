package resource

import (
	"context"

	"clienthub.org/internal/policy"
)

// Store describes persistence for the three resource kinds. List methods
// apply a policy predicate produced by the engine; point reads return the
// row unconditionally and leave the decision to the caller's Decide call.
type Store interface {
	CreateConversation(ctx context.Context, c *Conversation) error
	FindConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context, p policy.Predicate) ([]Conversation, error)
	// AssignConversation sets or clears assigned_staff_id and returns the
	// before/after pair. Ownership is never touched.
	AssignConversation(ctx context.Context, id, staffActorID string) (AssignmentChange, error)

	CreateDocument(ctx context.Context, d *Document) error
	FindDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context, p policy.Predicate) ([]Document, error)
	UpdateDocument(ctx context.Context, id string, upd DocumentUpdate) (DocumentChange, error)

	CreateProject(ctx context.Context, pr *Project) error
	FindProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context, p policy.Predicate) ([]Project, error)
}
