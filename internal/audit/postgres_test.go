package audit

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clienthub.org/internal/policy"
)

func TestPGStoreAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	entry := &Entry{
		ID:         "01ARZ",
		ActorID:    "a1",
		Action:     policy.ActionUpdate,
		EntityType: "document",
		EntityID:   "d1",
		OldValues:  json.RawMessage(`{"title":"X"}`),
		NewValues:  json.RawMessage(`{"title":"Y"}`),
		IPAddress:  "203.0.113.9",
		CreatedAt:  now,
	}

	mock.ExpectExec(regexp.QuoteMeta("insert into audit_log")).
		WithArgs("01ARZ", "a1", "update", "document", "d1",
			[]byte(`{"title":"X"}`), []byte(`{"title":"Y"}`), "203.0.113.9", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPGStore(db).Append(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreQueryFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "actor_id", "action", "entity_type", "entity_id",
		"old_values", "new_values", "ip_address", "created_at",
	}).AddRow("01A", "a1", "update", "document", "d1", []byte(`{"title":"X"}`), []byte(`{"title":"Y"}`), "", now)

	mock.ExpectQuery(regexp.QuoteMeta("from audit_log where id > $1 and entity_type = $2 and actor_id = $3 order by id asc limit $4")).
		WithArgs("009", "document", "a1", 50).
		WillReturnRows(rows)

	entries, cursor, err := NewPGStore(db).Query(context.Background(),
		Filter{EntityType: "document", ActorID: "a1"}, 50, "009")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "01A", cursor)
	assert.Equal(t, policy.ActionUpdate, entries[0].Action)
	assert.JSONEq(t, `{"title":"Y"}`, string(entries[0].NewValues))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreQueryNoFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("from audit_log order by id asc limit $1")).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "actor_id", "action", "entity_type", "entity_id",
			"old_values", "new_values", "ip_address", "created_at",
		}))

	entries, cursor, err := NewPGStore(db).Query(context.Background(), Filter{}, 100, "")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, cursor)
	assert.NoError(t, mock.ExpectationsWereMet())
}
