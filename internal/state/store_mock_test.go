package state

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/weslink/internal/testutil"
)

func setupMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &SQLiteStore{db: db, logger: testutil.NewTestLogger(t)}, mock
}

func TestSQLiteStore_DatabaseErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		call      func(s *SQLiteStore) error
		errMsg    string
	}{
		{
			name: "create run",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO runs").WillReturnError(assert.AnError)
			},
			call: func(s *SQLiteStore) error {
				_, err := s.CreateRun(ctx, "main.wesl", "hash")
				return err
			},
			errMsg: "failed to create run",
		},
		{
			name: "complete missing run",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE runs").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			call: func(s *SQLiteStore) error {
				return s.CompleteRun(ctx, "nope", RunStatusCompleted, false, 0, "")
			},
			errMsg: "run not found: nope",
		},
		{
			name: "read cache",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT root, output, source_map, created_at FROM link_cache").
					WillReturnError(assert.AnError)
			},
			call: func(s *SQLiteStore) error {
				_, err := s.GetCachedLink(ctx, "hash")
				return err
			},
			errMsg: "failed to read link cache",
		},
		{
			name: "corrupt cached source map",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"root", "output", "source_map", "created_at"}).
					AddRow("main.wesl", "fn main() {}", []byte("{not json"), time.Now())
				mock.ExpectQuery("SELECT root, output, source_map, created_at FROM link_cache").
					WithArgs("hash").
					WillReturnRows(rows)
			},
			call: func(s *SQLiteStore) error {
				_, err := s.GetCachedLink(ctx, "hash")
				return err
			},
			errMsg: "corrupt cached source map",
		},
		{
			name: "prune cache",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("DELETE FROM link_cache").WillReturnError(assert.AnError)
			},
			call: func(s *SQLiteStore) error {
				_, err := s.PruneCache(ctx, 4)
				return err
			},
			errMsg: "failed to prune link cache",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := setupMockStore(t)
			tt.setupMock(mock)

			err := tt.call(store)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLiteStore_CompleteRunArgs(t *testing.T) {
	store, mock := setupMockStore(t)
	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("failed", false, 0, sqlmock.AnyArg(), "boom", "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.CompleteRun(context.Background(), "run-1", RunStatusFailed, false, 0, "boom"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
