package actor

import (
	"context"
	"errors"
	"strings"
)

// Service exposes the admin-only lifecycle transitions. Role and status are
// never mutated anywhere else in the codebase.
type Service struct {
	store Store
}

// NewService constructs the actor lifecycle service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("actor store is required")
	}
	return &Service{store: store}, nil
}

// Change holds the before/after pair of a lifecycle transition so the caller
// can hand both snapshots to the audit recorder.
type Change struct {
	Old Actor
	New Actor
}

// ChangeRole sets an actor's role. Only an unblocked admin may call it.
func (s *Service) ChangeRole(ctx context.Context, caller Actor, actorID string, role Role) (Change, error) {
	if err := requireAdmin(caller); err != nil {
		return Change{}, err
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return Change{}, ErrInvalidInput
	}
	before, err := s.store.Find(ctx, actorID)
	if err != nil {
		return Change{}, err
	}
	after, err := s.store.UpdateRole(ctx, actorID, role)
	if err != nil {
		return Change{}, err
	}
	return Change{Old: *before, New: *after}, nil
}

// ChangeStatus sets an actor's status. Only an unblocked admin may call it.
func (s *Service) ChangeStatus(ctx context.Context, caller Actor, actorID string, status Status) (Change, error) {
	if err := requireAdmin(caller); err != nil {
		return Change{}, err
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return Change{}, ErrInvalidInput
	}
	before, err := s.store.Find(ctx, actorID)
	if err != nil {
		return Change{}, err
	}
	after, err := s.store.UpdateStatus(ctx, actorID, status)
	if err != nil {
		return Change{}, err
	}
	return Change{Old: *before, New: *after}, nil
}

func requireAdmin(caller Actor) error {
	if caller.Status.Blocked() {
		return ErrUnauthorized
	}
	if caller.Role != RoleAdmin {
		return ErrUnauthorized
	}
	return nil
}
