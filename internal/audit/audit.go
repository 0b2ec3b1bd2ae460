// Package audit is the append-only trail of accepted mutations. Entries are
// written exactly once, after the mutation durably committed, and no code
// path in this package or anywhere else updates or deletes them.
package audit

import (
	"encoding/json"
	"errors"
	"time"

	"clienthub.org/internal/policy"
)

var (
	// ErrAppendFailed reports that the store write failed after the mutation
	// already committed. The mutation stands; the failure must reach
	// operators, not the end user.
	ErrAppendFailed = errors.New("audit: append failed")
	ErrInvalidInput = errors.New("audit: invalid input")
)

// Entry is one immutable fact in the trail.
type Entry struct {
	ID string `json:"id"`
	// ActorID is empty for system-originated actions.
	ActorID    string          `json:"actor_id,omitempty"`
	Action     policy.Action   `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	OldValues  json.RawMessage `json:"old_values,omitempty"`
	NewValues  json.RawMessage `json:"new_values,omitempty"`
	IPAddress  string          `json:"ip_address,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Record is the input to the recorder. OldValues/NewValues are free-form
// snapshots of the fields that changed; either may be nil.
type Record struct {
	ActorID    string
	Action     policy.Action
	EntityType string
	EntityID   string
	OldValues  any
	NewValues  any
	IPAddress  string
}

// Filter narrows a trail query. Zero values mean "any".
type Filter struct {
	EntityType string
	Action     policy.Action
	ActorID    string
	From       time.Time
	To         time.Time
}
