// Package resource holds the three scoped resource kinds and their stores.
// Listing always takes a policy predicate; nothing here applies its own role
// or ownership logic. Owners are immutable after creation.
package resource

import (
	"errors"
	"time"

	"clienthub.org/internal/policy"
)

var (
	ErrNotFound     = errors.New("resource: not found")
	ErrInvalidInput = errors.New("resource: invalid input")
)

// Conversation is a support thread between an end user and staff.
type Conversation struct {
	ID           string `json:"id"`
	OwnerActorID string `json:"owner_actor_id"`
	// AssignedStaffID is empty when no staff-tier actor handles the thread.
	AssignedStaffID string    `json:"assigned_staff_id,omitempty"`
	Subject         string    `json:"subject"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PolicyResource projects the conversation for the policy engine.
func (c Conversation) PolicyResource() policy.Resource {
	return policy.Resource{
		Kind:            policy.KindConversation,
		ID:              c.ID,
		OwnerID:         c.OwnerActorID,
		AssignedStaffID: c.AssignedStaffID,
	}
}

// Document is an uploaded client file.
type Document struct {
	ID           string    `json:"id"`
	OwnerActorID string    `json:"owner_actor_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PolicyResource projects the document for the policy engine.
func (d Document) PolicyResource() policy.Resource {
	return policy.Resource{Kind: policy.KindDocument, ID: d.ID, OwnerID: d.OwnerActorID}
}

// Project is a client engagement.
type Project struct {
	ID           string    `json:"id"`
	OwnerActorID string    `json:"owner_actor_id"`
	Name         string    `json:"name"`
	Summary      string    `json:"summary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PolicyResource projects the project for the policy engine.
func (p Project) PolicyResource() policy.Resource {
	return policy.Resource{Kind: policy.KindProject, ID: p.ID, OwnerID: p.OwnerActorID}
}

// DocumentUpdate mutates a document; nil fields are left untouched.
type DocumentUpdate struct {
	Title   *string
	Content *string
}

// DocumentChange is the before/after pair of an applied update.
type DocumentChange struct {
	Old Document
	New Document
}

// Diff returns snapshots of only the fields that changed, shaped for the
// audit recorder.
func (c DocumentChange) Diff() (oldVals, newVals map[string]any) {
	oldVals = map[string]any{}
	newVals = map[string]any{}
	if c.Old.Title != c.New.Title {
		oldVals["title"] = c.Old.Title
		newVals["title"] = c.New.Title
	}
	if c.Old.Content != c.New.Content {
		oldVals["content"] = c.Old.Content
		newVals["content"] = c.New.Content
	}
	return oldVals, newVals
}

// AssignmentChange is the before/after pair of a conversation (re)assignment.
type AssignmentChange struct {
	Old Conversation
	New Conversation
}

// Diff returns the assignment snapshots for the audit recorder.
func (c AssignmentChange) Diff() (oldVals, newVals map[string]any) {
	return map[string]any{"assigned_staff_id": c.Old.AssignedStaffID},
		map[string]any{"assigned_staff_id": c.New.AssignedStaffID}
}
