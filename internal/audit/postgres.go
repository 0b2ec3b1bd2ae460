package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"clienthub.org/internal/policy"
)

var _ Store = (*PGStore)(nil)

// PGStore persists the trail in the audit_log table. The table carries no
// update or delete statements anywhere in this codebase.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Append(ctx context.Context, entry *Entry) error {
	_, err := s.db.ExecContext(ctx, `
		insert into audit_log(id, actor_id, action, entity_type, entity_id, old_values, new_values, ip_address, created_at)
		values ($1, nullif($2,''), $3, $4, $5, $6, $7, nullif($8,''), $9)
	`, entry.ID, entry.ActorID, string(entry.Action), entry.EntityType, entry.EntityID,
		nullableJSON(entry.OldValues), nullableJSON(entry.NewValues), entry.IPAddress, entry.CreatedAt)
	return err
}

func (s *PGStore) Query(ctx context.Context, f Filter, limit int, afterID string) ([]Entry, string, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if afterID != "" {
		where = append(where, "id > "+arg(afterID))
	}
	if f.EntityType != "" {
		where = append(where, "entity_type = "+arg(f.EntityType))
	}
	if f.Action != "" {
		where = append(where, "action = "+arg(string(f.Action)))
	}
	if f.ActorID != "" {
		where = append(where, "actor_id = "+arg(f.ActorID))
	}
	if !f.From.IsZero() {
		where = append(where, "created_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "created_at < "+arg(f.To))
	}

	query := `select id, coalesce(actor_id,''), action, entity_type, entity_id, old_values, new_values, coalesce(ip_address,''), created_at from audit_log`
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	query += " order by id asc limit " + arg(limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var (
		entries []Entry
		last    string
	)
	for rows.Next() {
		var (
			e      Entry
			action string
			oldRaw []byte
			newRaw []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &action, &e.EntityType, &e.EntityID, &oldRaw, &newRaw, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, "", err
		}
		e.Action = policy.Action(action)
		e.OldValues = oldRaw
		e.NewValues = newRaw
		entries = append(entries, e)
		last = e.ID
	}
	return entries, last, rows.Err()
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
