package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upass-project/upass/internal/common"
)

func newPostgresWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return newPostgresStoreWithDB(db), mock, db
}

func TestPostgresStore_Exists(t *testing.T) {
	store, mock, db := newPostgresWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+vaults\s+WHERE\s+username\s*=\s*\$1\)$`
	mock.ExpectQuery(q).WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := store.Exists(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock, db := newPostgresWithMock(t)
	defer db.Close()

	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	q := `(?s)^SELECT\s+public_key,\s*blob,\s*updated_at\s+FROM\s+vaults\s+WHERE\s+username\s*=\s*\$1$`
	mock.ExpectQuery(q).WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"public_key", "blob", "updated_at"}).
			AddRow("pk", "blob", updated))

	rec, err := store.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "pk", rec.PublicKey)
	assert.Equal(t, "blob", rec.Blob)
	assert.Equal(t, updated, rec.UpdatedAt)
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	store, mock, db := newPostgresWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPostgresStore_Put(t *testing.T) {
	store, mock, db := newPostgresWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+vaults.*ON\s+CONFLICT\s*\(username\)\s+DO\s+UPDATE`
	mock.ExpectExec(q).
		WithArgs("alice", "pk", "blob", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Put(context.Background(), &Record{Username: "alice", PublicKey: "pk", Blob: "blob"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock, db := newPostgresWithMock(t)
	defer db.Close()

	q := `(?s)^DELETE\s+FROM\s+vaults\s+WHERE\s+username\s*=\s*\$1$`
	mock.ExpectExec(q).WithArgs("alice").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.Delete(context.Background(), "alice"))

	mock.ExpectExec(q).WithArgs("ghost").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.Delete(context.Background(), "ghost"), common.ErrNotFound)
}

func TestPostgresStore_DBError(t *testing.T) {
	store, mock, db := newPostgresWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WithArgs("alice").WillReturnError(errors.New("db down"))

	_, err := store.Get(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
