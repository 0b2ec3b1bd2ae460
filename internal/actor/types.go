package actor

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of account roles. admin is a superuser; staff and dev
// form the staff tier whose visibility follows conversation assignments.
type Role string

const (
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
	RoleDev   Role = "dev"
	RoleAdmin Role = "admin"
)

// ParseRole normalizes and validates a role string.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleUser:
		return RoleUser, nil
	case RoleStaff:
		return RoleStaff, nil
	case RoleDev:
		return RoleDev, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, raw)
	}
}

// StaffTier reports whether the role gains visibility through assignments.
// admin is deliberately excluded: it matches everything before assignment
// lookup ever happens.
func (r Role) StaffTier() bool {
	return r == RoleStaff || r == RoleDev
}

// Status is the closed set of account states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusBanned    Status = "banned"
)

// ParseStatus normalizes and validates a status string.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.TrimSpace(strings.ToLower(raw))) {
	case StatusPending:
		return StatusPending, nil
	case StatusActive:
		return StatusActive, nil
	case StatusSuspended:
		return StatusSuspended, nil
	case StatusBanned:
		return StatusBanned, nil
	default:
		return "", fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, raw)
	}
}

// Blocked reports whether the status overrides role with zero access.
func (s Status) Blocked() bool {
	return s == StatusSuspended || s == StatusBanned
}

// Actor identifies one human account. ID is internal and stable; ExternalID
// references the identity provider and never leaks into policy decisions.
type Actor struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Role       Role      `json:"role"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
