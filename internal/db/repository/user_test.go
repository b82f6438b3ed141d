package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permissions-manager/internal/db"
	"permissions-manager/internal/domain"
)

func TestUserRepo_EmailUniqueIgnoresCase(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	ctx := context.Background()
	repo := NewUserRepo(writeDB)

	created, err := repo.Create(ctx, &domain.User{Email: "case@unity.test"})
	require.NoError(t, err)

	// The schema collates email with NOCASE, so even writes that bypass
	// the repository's normalization cannot smuggle in a cased duplicate.
	_, err = writeDB.ExecContext(ctx, `INSERT INTO users (email) VALUES (?)`, "CASE@UNITY.TEST")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE")

	got, err := repo.GetByEmail(ctx, "case@unity.test")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}
