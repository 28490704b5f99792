package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketflow/internal/store/storetest"
)

func newSQLite(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteRepositoryContract(t *testing.T) {
	storetest.Run(t, newSQLite(t))
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), storetest.Record("u1", "Seed", "10"))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer reopened.Close()
	list, err := reopened.ListByOwner(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLitePing(t *testing.T) {
	repo := newSQLite(t)
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestRebind(t *testing.T) {
	q := "UPDATE t SET a = COALESCE(?, a) WHERE id = ?"
	assert.Equal(t, q, SQLite.rebind(q))
	assert.Equal(t, "UPDATE t SET a = COALESCE($1, a) WHERE id = $2", Postgres.rebind(q))
}

func TestSQLTimeScan(t *testing.T) {
	want := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	for _, src := range []any{want, want.Format(time.RFC3339Nano), []byte(want.Format(time.RFC3339))} {
		var st sqlTime
		require.NoError(t, st.Scan(src))
		assert.True(t, st.Equal(want), "scanned %v from %T", st.Time, src)
	}
	var st sqlTime
	assert.Error(t, st.Scan(42))
	assert.Error(t, st.Scan("14/03/2025"))
}
