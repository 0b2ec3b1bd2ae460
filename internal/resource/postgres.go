package resource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"clienthub.org/internal/ids"
	"clienthub.org/internal/policy"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// scopeClause translates a policy predicate into a WHERE fragment. The
// second return is false when the predicate can match nothing, letting the
// caller skip the query entirely.
func scopeClause(p policy.Predicate, ownerCol, staffCol string, args *[]any) (string, bool) {
	switch {
	case p.None:
		return "", false
	case p.All:
		return "", true
	case p.AssignedStaffID != "":
		if staffCol == "" {
			return "", false
		}
		*args = append(*args, p.AssignedStaffID)
		return fmt.Sprintf("%s = $%d", staffCol, len(*args)), true
	case len(p.OwnerIDs) > 0:
		placeholders := make([]string, 0, len(p.OwnerIDs))
		for _, id := range p.OwnerIDs {
			*args = append(*args, id)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(*args)))
		}
		return fmt.Sprintf("%s in (%s)", ownerCol, strings.Join(placeholders, ",")), true
	default:
		return "", false
	}
}

// Conversations ------------------------------------------------------------

func (s *PGStore) CreateConversation(ctx context.Context, c *Conversation) error {
	if c.OwnerActorID == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if c.ID == "" {
		c.ID = ids.New()
	}
	return s.db.QueryRowContext(ctx, `
		insert into conversations (id, owner_actor_id, assigned_staff_id, subject)
		values ($1, $2, nullif($3,''), $4)
		returning created_at, updated_at
	`, c.ID, c.OwnerActorID, c.AssignedStaffID, c.Subject).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (s *PGStore) FindConversation(ctx context.Context, id string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, owner_actor_id, coalesce(assigned_staff_id,''), subject, created_at, updated_at
		from conversations where id = $1
	`, id)
	var c Conversation
	if err := row.Scan(&c.ID, &c.OwnerActorID, &c.AssignedStaffID, &c.Subject, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *PGStore) ListConversations(ctx context.Context, p policy.Predicate) ([]Conversation, error) {
	var args []any
	clause, possible := scopeClause(p, "owner_actor_id", "assigned_staff_id", &args)
	if !possible {
		return nil, nil
	}
	query := `
		select id, owner_actor_id, coalesce(assigned_staff_id,''), subject, created_at, updated_at
		from conversations`
	if clause != "" {
		query += " where " + clause
	}
	query += " order by created_at asc"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.OwnerActorID, &c.AssignedStaffID, &c.Subject, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (s *PGStore) AssignConversation(ctx context.Context, id, staffActorID string) (AssignmentChange, error) {
	before, err := s.FindConversation(ctx, id)
	if err != nil {
		return AssignmentChange{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		update conversations set assigned_staff_id = nullif($2,''), updated_at = now()
		where id = $1
		returning id, owner_actor_id, coalesce(assigned_staff_id,''), subject, created_at, updated_at
	`, id, staffActorID)
	var after Conversation
	if err := row.Scan(&after.ID, &after.OwnerActorID, &after.AssignedStaffID, &after.Subject, &after.CreatedAt, &after.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AssignmentChange{}, ErrNotFound
		}
		return AssignmentChange{}, err
	}
	return AssignmentChange{Old: *before, New: after}, nil
}

// Documents ----------------------------------------------------------------

func (s *PGStore) CreateDocument(ctx context.Context, d *Document) error {
	if d.OwnerActorID == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if d.ID == "" {
		d.ID = ids.New()
	}
	return s.db.QueryRowContext(ctx, `
		insert into documents (id, owner_actor_id, title, content)
		values ($1, $2, $3, $4)
		returning created_at, updated_at
	`, d.ID, d.OwnerActorID, d.Title, d.Content).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (s *PGStore) FindDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, owner_actor_id, title, content, created_at, updated_at
		from documents where id = $1
	`, id)
	var d Document
	if err := row.Scan(&d.ID, &d.OwnerActorID, &d.Title, &d.Content, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (s *PGStore) ListDocuments(ctx context.Context, p policy.Predicate) ([]Document, error) {
	var args []any
	clause, possible := scopeClause(p, "owner_actor_id", "", &args)
	if !possible {
		return nil, nil
	}
	query := `
		select id, owner_actor_id, title, content, created_at, updated_at
		from documents`
	if clause != "" {
		query += " where " + clause
	}
	query += " order by created_at asc"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.OwnerActorID, &d.Title, &d.Content, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (s *PGStore) UpdateDocument(ctx context.Context, id string, upd DocumentUpdate) (DocumentChange, error) {
	before, err := s.FindDocument(ctx, id)
	if err != nil {
		return DocumentChange{}, err
	}
	title := before.Title
	if upd.Title != nil {
		title = strings.TrimSpace(*upd.Title)
		if title == "" {
			return DocumentChange{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
	}
	content := before.Content
	if upd.Content != nil {
		content = *upd.Content
	}
	row := s.db.QueryRowContext(ctx, `
		update documents set title = $2, content = $3, updated_at = now()
		where id = $1
		returning id, owner_actor_id, title, content, created_at, updated_at
	`, id, title, content)
	var after Document
	if err := row.Scan(&after.ID, &after.OwnerActorID, &after.Title, &after.Content, &after.CreatedAt, &after.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DocumentChange{}, ErrNotFound
		}
		return DocumentChange{}, err
	}
	return DocumentChange{Old: *before, New: after}, nil
}

// Projects -----------------------------------------------------------------

func (s *PGStore) CreateProject(ctx context.Context, pr *Project) error {
	if pr.OwnerActorID == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if pr.ID == "" {
		pr.ID = ids.New()
	}
	return s.db.QueryRowContext(ctx, `
		insert into projects (id, owner_actor_id, name, summary)
		values ($1, $2, $3, $4)
		returning created_at, updated_at
	`, pr.ID, pr.OwnerActorID, pr.Name, pr.Summary).Scan(&pr.CreatedAt, &pr.UpdatedAt)
}

func (s *PGStore) FindProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, owner_actor_id, name, summary, created_at, updated_at
		from projects where id = $1
	`, id)
	var pr Project
	if err := row.Scan(&pr.ID, &pr.OwnerActorID, &pr.Name, &pr.Summary, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &pr, nil
}

func (s *PGStore) ListProjects(ctx context.Context, p policy.Predicate) ([]Project, error) {
	var args []any
	clause, possible := scopeClause(p, "owner_actor_id", "", &args)
	if !possible {
		return nil, nil
	}
	query := `
		select id, owner_actor_id, name, summary, created_at, updated_at
		from projects`
	if clause != "" {
		query += " where " + clause
	}
	query += " order by created_at asc"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Project
	for rows.Next() {
		var pr Project
		if err := rows.Scan(&pr.ID, &pr.OwnerActorID, &pr.Name, &pr.Summary, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, pr)
	}
	return res, rows.Err()
}
