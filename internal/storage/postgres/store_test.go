package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/goldpayments-ledger/internal/storage"
)

func newMockStore(t *testing.T) (*PostgresKVStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresKVStore(db), mock
}

func TestEnsureSchema(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv_records").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	s, mock := newMockStore(t)
	query := regexp.QuoteMeta(`SELECT value FROM kv_records WHERE key = $1`)

	mock.ExpectQuery(query).
		WithArgs(storage.UserKey).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"name":"A. Stark"}`)))
	mock.ExpectQuery(query).
		WithArgs(storage.TransactionsKey).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectQuery(query).
		WithArgs("broken").
		WillReturnError(errors.New("connection reset"))

	got, err := s.Get(context.Background(), storage.UserKey)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"A. Stark"}`, string(got))

	_, err = s.Get(context.Background(), storage.TransactionsKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.Get(context.Background(), "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSet_UpsertsAsText(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO kv_records").
		WithArgs(storage.TransactionsKey, `[]`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Set(context.Background(), storage.TransactionsKey, []byte(`[]`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "odbc", "dsn")
	assert.ErrorContains(t, err, "unknown postgres driver")
}
