// Package policy is the single source of truth for access scoping. Every
// read or write of a conversation, document or project routes through Decide
// or Scope; no caller applies its own role or ownership filter.
package policy

import (
	"context"
	"errors"

	"clienthub.org/internal/actor"
	"clienthub.org/internal/assignment"
	"clienthub.org/internal/obs"
)

// Engine evaluates access decisions. It holds no mutable state and is safe
// for unbounded concurrent use; the assignment index is consulted fresh on
// every staff-tier evaluation.
type Engine struct {
	index assignment.Index
}

// NewEngine constructs an Engine over the assignment index.
func NewEngine(index assignment.Index) (*Engine, error) {
	if index == nil {
		return nil, errors.New("assignment index is required")
	}
	return &Engine{index: index}, nil
}

// Decide returns the point decision for one known resource. The rule chain is
// fixed and first-match-wins:
//
//  1. suspended or banned status denies everything
//  2. admin allows everything
//  3. pending allows only messaging/document-upload on owned resources
//  4. ownership allows
//  5. staff tier allows documents/projects of assigned owners
//  6. staff tier allows conversations assigned to them
//  7. deny
//
// Any assignment lookup failure degrades to Deny, never to Allow.
func (e *Engine) Decide(ctx context.Context, a actor.Actor, action Action, r Resource) Decision {
	d := e.decide(ctx, a, action, r)
	obs.CountDecision(string(d))
	return d
}

func (e *Engine) decide(ctx context.Context, a actor.Actor, action Action, r Resource) Decision {
	if a.Status.Blocked() {
		return Deny
	}
	if a.Role == actor.RoleAdmin {
		return Allow
	}
	if a.Status == actor.StatusPending {
		if action.allowedWhilePending() && r.OwnerID == a.ID {
			return Allow
		}
		return Deny
	}
	// Ownership wins before assignment: an actor's own resources are never
	// invisible to them.
	if r.OwnerID == a.ID {
		return Allow
	}
	if a.Role.StaffTier() {
		switch r.Kind {
		case KindDocument, KindProject:
			owners, err := e.index.AssignedOwners(ctx, a.ID)
			if err != nil {
				return Deny
			}
			if _, ok := owners[r.OwnerID]; ok {
				return Allow
			}
		case KindConversation:
			if r.AssignedStaffID != "" && r.AssignedStaffID == a.ID {
				return Allow
			}
		}
	}
	return Deny
}

// Scope returns the listing filter for one resource kind, equivalent to
// applying Decide(read) to every row. Failures degrade to a match-nothing
// predicate.
func (e *Engine) Scope(ctx context.Context, a actor.Actor, kind Kind) Predicate {
	if a.Status.Blocked() {
		return matchNone()
	}
	if a.Role == actor.RoleAdmin {
		return matchAll()
	}
	if a.Status == actor.StatusPending {
		// Projects are invisible while pending; conversations and documents
		// shrink to the actor's own rows.
		if kind == KindProject {
			return matchNone()
		}
		return ownerIn(a.ID)
	}
	if a.Role.StaffTier() {
		switch kind {
		case KindConversation:
			return assignedStaff(a.ID)
		case KindDocument, KindProject:
			owners, err := e.index.AssignedOwners(ctx, a.ID)
			if err != nil {
				return matchNone()
			}
			ids := make([]string, 0, len(owners)+1)
			ids = append(ids, a.ID)
			for owner := range owners {
				ids = append(ids, owner)
			}
			return ownerIn(ids...)
		}
	}
	return ownerIn(a.ID)
}
