package sqlite

import (
	"context"
	"testing"

	"github.com/rpggio/routine/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyRepository(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewAPIKeyRepository(db)

	require.NoError(t, repo.Add(ctx, "secret", 7, "laptop"))
	require.Equal(t, repository.ErrDuplicate, repo.Add(ctx, "secret", 8, "again"))

	userID, err := repo.ResolveUser(ctx, "secret")
	require.NoError(t, err)
	require.Equal(t, int64(7), userID)

	_, err = repo.ResolveUser(ctx, "wrong")
	require.Equal(t, repository.ErrNotFound, err)

	var stored string
	require.NoError(t, db.QueryRow(`SELECT key_hash FROM api_keys`).Scan(&stored))
	require.Equal(t, HashToken("secret"), stored)
	require.NotEqual(t, "secret", stored)
}
