// Package assignment derives the staff-tier visibility relation: the set of
// end users whose conversations are currently assigned to a staff actor.
// The relation is recomputed from live rows on every call. Caching it would
// keep a de-assigned staff member's visibility alive, which is a
// confidentiality leak, so no implementation may memoize results.
package assignment

import (
	"context"
	"database/sql"
	"strings"
)

// Index exposes the derived assignment relation.
type Index interface {
	// AssignedOwners returns the distinct owner ids of all conversations
	// whose assigned_staff_id equals staffActorID.
	AssignedOwners(ctx context.Context, staffActorID string) (map[string]struct{}, error)
}

var _ Index = (*PGIndex)(nil)

// PGIndex computes the relation with a single query against PostgreSQL.
type PGIndex struct {
	db *sql.DB
}

func NewPGIndex(db *sql.DB) *PGIndex {
	return &PGIndex{db: db}
}

func (s *PGIndex) AssignedOwners(ctx context.Context, staffActorID string) (map[string]struct{}, error) {
	staffActorID = strings.TrimSpace(staffActorID)
	if staffActorID == "" {
		return map[string]struct{}{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		select distinct owner_actor_id
		from conversations
		where assigned_staff_id = $1
	`, staffActorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := make(map[string]struct{})
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners[owner] = struct{}{}
	}
	return owners, rows.Err()
}
