package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/weslink/internal/testutil"
	"github.com/leapstack-labs/weslink/pkg/srcmap"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	assert.Equal(t, path, store.Path())

	v, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	require.NoError(t, store.Close())

	// reopening an existing database is a no-op migration
	store = NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	require.NoError(t, store.Close())
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	_, err := store.CreateRun(ctx, "main", "h")
	require.ErrorIs(t, err, errNotOpen)
	_, err = store.GetCachedLink(ctx, "h")
	require.ErrorIs(t, err, errNotOpen)
	require.NoError(t, store.Close())
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	tests := []struct {
		name       string
		status     RunStatus
		cached     bool
		bytes      int
		errMsg     string
		wantStatus RunStatus
	}{
		{name: "completed", status: RunStatusCompleted, bytes: 120, wantStatus: RunStatusCompleted},
		{name: "cached", status: RunStatusCompleted, cached: true, bytes: 64, wantStatus: RunStatusCompleted},
		{name: "failed", status: RunStatusFailed, errMsg: "unbound identifier", wantStatus: RunStatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			ctx := context.Background()

			run, err := store.CreateRun(ctx, "package::main", "abc")
			require.NoError(t, err)
			assert.NotEmpty(t, run.ID)
			assert.Equal(t, RunStatusRunning, run.Status)

			require.NoError(t, store.CompleteRun(ctx, run.ID, tt.status, tt.cached, tt.bytes, tt.errMsg))

			got, err := store.GetRun(ctx, run.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.cached, got.Cached)
			assert.Equal(t, tt.bytes, got.Bytes)
			assert.Equal(t, tt.errMsg, got.Error)
			assert.Equal(t, "abc", got.InputHash)
			require.NotNil(t, got.CompletedAt)
		})
	}
}

func TestSQLiteStore_RunQueries(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	latest, err := store.GetLatestRun(ctx, "package::main")
	require.NoError(t, err)
	assert.Nil(t, latest)

	first, err := store.CreateRun(ctx, "package::main", "h1")
	require.NoError(t, err)
	_, err = store.CreateRun(ctx, "package::other", "h2")
	require.NoError(t, err)
	second, err := store.CreateRun(ctx, "package::main", "h3")
	require.NoError(t, err)

	latest, err = store.GetLatestRun(ctx, "package::main")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[2].ID)

	runs, err = store.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = store.GetRun(ctx, "missing")
	assert.ErrorContains(t, err, "run not found")
	assert.ErrorContains(t, store.CompleteRun(ctx, "missing", RunStatusCompleted, false, 0, ""), "run not found")
}

func TestSQLiteStore_LinkCache(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	got, err := store.GetCachedLink(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	var b srcmap.Builder
	b.Add("fn main() {}", "main.wesl", 0, 12)
	b.AddGenerated("\n")
	sm := b.Build()

	require.NoError(t, store.PutCachedLink(ctx, &CachedLink{
		InputHash: "h1", Root: "package::main", Output: b.Text(), SourceMap: sm,
	}))
	got, err = store.GetCachedLink(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fn main() {}\n", got.Output)
	assert.Equal(t, sm.Entries, got.SourceMap.Entries)
	assert.False(t, got.CreatedAt.IsZero())

	// overwrite
	require.NoError(t, store.PutCachedLink(ctx, &CachedLink{InputHash: "h1", Root: "package::main", Output: "x"}))
	got, err = store.GetCachedLink(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "x", got.Output)
	assert.Nil(t, got.SourceMap)
}

func TestSQLiteStore_PruneCache(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, h := range []string{"a", "b", "c"} {
		require.NoError(t, store.PutCachedLink(ctx, &CachedLink{InputHash: h, Root: "r", Output: h}))
	}
	n, err := store.PruneCache(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := store.GetCachedLink(ctx, "c")
	require.NoError(t, err)
	assert.NotNil(t, got)
	got, err = store.GetCachedLink(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInputHash(t *testing.T) {
	type params struct {
		Root       string
		Conditions map[string]bool
	}
	base := map[string]string{"main.wesl": "fn main() {}", "util.wesl": "fn f() {}"}
	h1, err := InputHash(base, params{Root: "main.wesl"})
	require.NoError(t, err)
	assert.Len(t, h1, 64)

	h2, err := InputHash(map[string]string{"util.wesl": "fn f() {}", "main.wesl": "fn main() {}"}, params{Root: "main.wesl"})
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "key order does not matter")

	tests := []struct {
		name    string
		sources map[string]string
		params  params
	}{
		{"text changed", map[string]string{"main.wesl": "fn main() { }", "util.wesl": "fn f() {}"}, params{Root: "main.wesl"}},
		{"key moved", map[string]string{"main.weslfn main() {}": "", "util.wesl": "fn f() {}"}, params{Root: "main.wesl"}},
		{"condition added", base, params{Root: "main.wesl", Conditions: map[string]bool{"debug": true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := InputHash(tt.sources, tt.params)
			require.NoError(t, err)
			assert.NotEqual(t, h1, h)
		})
	}

	_, err = InputHash(base, func() {})
	assert.Error(t, err)
}
