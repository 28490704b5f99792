//go:build integration

package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pocketflow/internal/store/storetest"
	"pocketflow/internal/testhelpers"
)

func TestPostgresRepositoryContract(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping container-based test in short mode")
	}
	repo, err := NewPostgresRepository(testhelpers.StartPostgres(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	storetest.Run(t, repo)
}
