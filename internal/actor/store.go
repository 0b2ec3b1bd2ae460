package actor

import "context"

// Store describes persistence operations for actor rows.
type Store interface {
	Create(ctx context.Context, a *Actor) error
	Find(ctx context.Context, id string) (*Actor, error)
	FindByExternalID(ctx context.Context, externalID string) (*Actor, error)
	UpdateRole(ctx context.Context, id string, role Role) (*Actor, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Actor, error)
}
