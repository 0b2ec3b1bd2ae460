package policy

import "errors"

// ErrDenied is the explicit deny surfaced by gated read paths. Callers render
// it as absence, never as "forbidden", so existence is not confirmed to an
// unauthorized actor.
var ErrDenied = errors.New("policy: denied")

// Kind is the closed set of resource kinds subject to access decisions.
type Kind string

const (
	KindConversation Kind = "conversation"
	KindDocument     Kind = "document"
	KindProject      Kind = "project"
)

// Action is a short verb tag describing what the actor wants to do.
type Action string

const (
	ActionRead    Action = "read"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionArchive Action = "archive"
	ActionMessage Action = "message"
	ActionUpload  Action = "upload"
	ActionAssign  Action = "assign"
)

// Capability groups actions for the pending-status carve-out.
type Capability string

const (
	CapabilityMessaging      Capability = "messaging"
	CapabilityDocumentUpload Capability = "document-upload"
	CapabilityGeneral        Capability = "general"
)

var actionCapabilities = map[Action]Capability{
	ActionMessage: CapabilityMessaging,
	ActionUpload:  CapabilityDocumentUpload,
}

// Capability returns the capability group of the action. Unknown actions are
// general, which is the restrictive bucket while pending.
func (a Action) Capability() Capability {
	if c, ok := actionCapabilities[a]; ok {
		return c
	}
	return CapabilityGeneral
}

// allowedWhilePending reports whether a pending actor may perform the action
// on a resource they own. Pending accounts keep messaging and document upload
// and nothing else.
func (a Action) allowedWhilePending() bool {
	c := a.Capability()
	return c == CapabilityMessaging || c == CapabilityDocumentUpload
}

// Resource is the policy-relevant projection of a resource row. Content and
// other kind-specific fields never influence a decision.
type Resource struct {
	Kind    Kind
	ID      string
	OwnerID string
	// AssignedStaffID is set for conversations only; empty means unassigned.
	AssignedStaffID string
}

// Decision is the outcome of a point access check.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
)

// Allowed reports whether the decision permits the operation.
func (d Decision) Allowed() bool { return d == Allow }
