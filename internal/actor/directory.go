package actor

import (
	"context"
	"errors"
	"strings"
)

// Directory materializes external identities into actors. It performs no
// authorization; callers hand the result to the policy engine.
type Directory struct {
	store Store
}

// NewDirectory constructs a Directory over the given store.
func NewDirectory(store Store) (*Directory, error) {
	if store == nil {
		return nil, errors.New("actor store is required")
	}
	return &Directory{store: store}, nil
}

// Resolve looks up the internal actor for an external identity reference.
// Every failure mode collapses to ErrNotFound: an unreadable directory must
// never be mistaken for "unknown but maybe allowed".
func (d *Directory) Resolve(ctx context.Context, externalID string) (Actor, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return Actor{}, ErrNotFound
	}
	a, err := d.store.FindByExternalID(ctx, externalID)
	if err != nil || a == nil {
		return Actor{}, ErrNotFound
	}
	return *a, nil
}

// Provision creates the internal record for an external identity on first
// resolution. New actors start as pending users; role and status transitions
// afterwards go through the Service.
func (d *Directory) Provision(ctx context.Context, externalID string) (Actor, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return Actor{}, ErrInvalidInput
	}
	a := &Actor{
		ExternalID: externalID,
		Role:       RoleUser,
		Status:     StatusPending,
	}
	if err := d.store.Create(ctx, a); err != nil {
		return Actor{}, err
	}
	return *a, nil
}
