package actor

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"clienthub.org/internal/ids"
)

const pgErrUniqueViolation = "23505"

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, a *Actor) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into actors (id, external_id, role, status)
		values ($1, $2, $3, $4)
		returning created_at, updated_at
	`, a.ID, a.ExternalID, string(a.Role), string(a.Status)).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *PGStore) Find(ctx context.Context, id string) (*Actor, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		select id, external_id, role, status, created_at, updated_at
		from actors where id = $1
	`, id))
}

func (s *PGStore) FindByExternalID(ctx context.Context, externalID string) (*Actor, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		select id, external_id, role, status, created_at, updated_at
		from actors where external_id = $1
	`, externalID))
}

func (s *PGStore) UpdateRole(ctx context.Context, id string, role Role) (*Actor, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		update actors set role = $2, updated_at = now()
		where id = $1
		returning id, external_id, role, status, created_at, updated_at
	`, id, string(role)))
}

func (s *PGStore) UpdateStatus(ctx context.Context, id string, status Status) (*Actor, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		update actors set status = $2, updated_at = now()
		where id = $1
		returning id, external_id, role, status, created_at, updated_at
	`, id, string(status)))
}

func (s *PGStore) scanOne(row *sql.Row) (*Actor, error) {
	var (
		a      Actor
		role   string
		status string
	)
	if err := row.Scan(&a.ID, &a.ExternalID, &role, &status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	parsedRole, err := ParseRole(role)
	if err != nil {
		return nil, err
	}
	parsedStatus, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	a.Role = parsedRole
	a.Status = parsedStatus
	return &a, nil
}
