package kvstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Error paths are driven through sqlmock; the happy path runs against
// sqlite :memory: in kvstore_test.go.

func TestSQLStore_GetQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM kv_entries").
		WithArgs("k").
		WillReturnError(errors.New("connection reset"))

	store := NewSQLStore(db, true)
	_, err = store.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM kv_entries").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	store := NewSQLStore(db, true)
	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SetExecError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO kv_entries").
		WillReturnError(errors.New("disk full"))

	store := NewSQLStore(db, true)
	err = store.Set(context.Background(), "k", []byte("v"))
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_DeleteExecError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM kv_entries").
		WithArgs("k").
		WillReturnError(errors.New("read only"))

	store := NewSQLStore(db, true)
	err = store.Delete(context.Background(), "k")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
