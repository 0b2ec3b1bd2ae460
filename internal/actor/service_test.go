package actor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedActor(t *testing.T, store *MemoryStore, externalID string, role Role, status Status) Actor {
	t.Helper()
	a := &Actor{ExternalID: externalID, Role: role, Status: status}
	require.NoError(t, store.Create(context.Background(), a))
	return *a
}

func TestServiceChangeRole(t *testing.T) {
	store := NewMemoryStore()
	admin := seedActor(t, store, "ext-admin", RoleAdmin, StatusActive)
	target := seedActor(t, store, "ext-user", RoleUser, StatusActive)

	svc, err := NewService(store)
	require.NoError(t, err)

	change, err := svc.ChangeRole(context.Background(), admin, target.ID, RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, RoleUser, change.Old.Role)
	assert.Equal(t, RoleStaff, change.New.Role)

	got, err := store.Find(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleStaff, got.Role)
}

func TestServiceChangeStatus(t *testing.T) {
	store := NewMemoryStore()
	admin := seedActor(t, store, "ext-admin", RoleAdmin, StatusActive)
	target := seedActor(t, store, "ext-user", RoleUser, StatusPending)

	svc, err := NewService(store)
	require.NoError(t, err)

	change, err := svc.ChangeStatus(context.Background(), admin, target.ID, StatusActive)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, change.Old.Status)
	assert.Equal(t, StatusActive, change.New.Status)
}

func TestServiceRejectsNonAdminCallers(t *testing.T) {
	store := NewMemoryStore()
	target := seedActor(t, store, "ext-user", RoleUser, StatusActive)
	svc, err := NewService(store)
	require.NoError(t, err)

	callers := []Actor{
		seedActor(t, store, "ext-staff", RoleStaff, StatusActive),
		seedActor(t, store, "ext-dev", RoleDev, StatusActive),
		seedActor(t, store, "ext-suspended-admin", RoleAdmin, StatusSuspended),
		seedActor(t, store, "ext-banned-admin", RoleAdmin, StatusBanned),
	}
	for _, caller := range callers {
		_, err := svc.ChangeRole(context.Background(), caller, target.ID, RoleAdmin)
		assert.ErrorIs(t, err, ErrUnauthorized, "caller %s", caller.ExternalID)
		_, err = svc.ChangeStatus(context.Background(), caller, target.ID, StatusBanned)
		assert.ErrorIs(t, err, ErrUnauthorized, "caller %s", caller.ExternalID)
	}
}

func TestServiceUnknownTarget(t *testing.T) {
	store := NewMemoryStore()
	admin := seedActor(t, store, "ext-admin", RoleAdmin, StatusActive)
	svc, err := NewService(store)
	require.NoError(t, err)

	_, err = svc.ChangeRole(context.Background(), admin, "missing", RoleStaff)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ChangeStatus(context.Background(), admin, " ", StatusActive)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
