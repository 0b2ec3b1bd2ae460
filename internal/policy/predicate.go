package policy

import "sort"

// Predicate is a scoping filter for listing queries, equivalent in effect to
// running Decide over every candidate row. It has four closed forms: match
// all, match none, owner-membership, and assigned-staff equality. Store
// implementations translate these to WHERE clauses; Matches evaluates the
// same semantics in process.
type Predicate struct {
	All             bool     `json:"all,omitempty"`
	None            bool     `json:"none,omitempty"`
	OwnerIDs        []string `json:"owner_ids,omitempty"`
	AssignedStaffID string   `json:"assigned_staff_id,omitempty"`
}

func matchAll() Predicate  { return Predicate{All: true} }
func matchNone() Predicate { return Predicate{None: true} }

func ownerIn(ids ...string) Predicate {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return matchNone()
	}
	sort.Strings(out)
	return Predicate{OwnerIDs: out}
}

func assignedStaff(staffID string) Predicate {
	if staffID == "" {
		return matchNone()
	}
	return Predicate{AssignedStaffID: staffID}
}

// Matches evaluates the predicate against a single resource row.
func (p Predicate) Matches(r Resource) bool {
	switch {
	case p.None:
		return false
	case p.All:
		return true
	case p.AssignedStaffID != "":
		return r.AssignedStaffID == p.AssignedStaffID
	default:
		for _, id := range p.OwnerIDs {
			if r.OwnerID == id {
				return true
			}
		}
		return false
	}
}
