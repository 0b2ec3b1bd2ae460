package resource

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clienthub.org/internal/policy"
)

func TestScopeClause(t *testing.T) {
	t.Run("none skips the query", func(t *testing.T) {
		var args []any
		_, possible := scopeClause(policy.Predicate{None: true}, "owner_actor_id", "", &args)
		assert.False(t, possible)
	})

	t.Run("all yields no clause", func(t *testing.T) {
		var args []any
		clause, possible := scopeClause(policy.Predicate{All: true}, "owner_actor_id", "", &args)
		assert.True(t, possible)
		assert.Empty(t, clause)
		assert.Empty(t, args)
	})

	t.Run("assigned staff maps to the staff column", func(t *testing.T) {
		var args []any
		clause, possible := scopeClause(policy.Predicate{AssignedStaffID: "s1"}, "owner_actor_id", "assigned_staff_id", &args)
		assert.True(t, possible)
		assert.Equal(t, "assigned_staff_id = $1", clause)
		assert.Equal(t, []any{"s1"}, args)
	})

	t.Run("assigned staff without a staff column matches nothing", func(t *testing.T) {
		var args []any
		_, possible := scopeClause(policy.Predicate{AssignedStaffID: "s1"}, "owner_actor_id", "", &args)
		assert.False(t, possible)
	})

	t.Run("owner membership expands placeholders", func(t *testing.T) {
		var args []any
		clause, possible := scopeClause(policy.Predicate{OwnerIDs: []string{"u1", "u2"}}, "owner_actor_id", "", &args)
		assert.True(t, possible)
		assert.Equal(t, "owner_actor_id in ($1,$2)", clause)
		assert.Equal(t, []any{"u1", "u2"}, args)
	})

	t.Run("zero predicate matches nothing", func(t *testing.T) {
		var args []any
		_, possible := scopeClause(policy.Predicate{}, "owner_actor_id", "", &args)
		assert.False(t, possible)
	})
}

func TestPGStoreListDocumentsScoped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "owner_actor_id", "title", "content", "created_at", "updated_at"}).
		AddRow("d1", "u1", "invoice", "", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("from documents where owner_actor_id in ($1)")).
		WithArgs("u1").
		WillReturnRows(rows)

	docs, err := NewPGStore(db).ListDocuments(context.Background(), policy.Predicate{OwnerIDs: []string{"u1"}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "d1", docs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreListWithNonePredicateSkipsDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPGStore(db)
	ctx := context.Background()

	docs, err := store.ListDocuments(ctx, policy.Predicate{None: true})
	require.NoError(t, err)
	assert.Empty(t, docs)

	convs, err := store.ListConversations(ctx, policy.Predicate{})
	require.NoError(t, err)
	assert.Empty(t, convs)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreAssignConversation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	before := sqlmock.NewRows([]string{"id", "owner_actor_id", "assigned_staff_id", "subject", "created_at", "updated_at"}).
		AddRow("c1", "u1", "", "billing", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("from conversations where id = $1")).
		WithArgs("c1").
		WillReturnRows(before)

	after := sqlmock.NewRows([]string{"id", "owner_actor_id", "assigned_staff_id", "subject", "created_at", "updated_at"}).
		AddRow("c1", "u1", "s1", "billing", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("update conversations set assigned_staff_id = nullif($2,'')")).
		WithArgs("c1", "s1").
		WillReturnRows(after)

	change, err := NewPGStore(db).AssignConversation(context.Background(), "c1", "s1")
	require.NoError(t, err)
	assert.Empty(t, change.Old.AssignedStaffID)
	assert.Equal(t, "s1", change.New.AssignedStaffID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
