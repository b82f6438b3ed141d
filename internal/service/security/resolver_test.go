package security

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permissions-manager/internal/db"
	"permissions-manager/internal/db/repository"
	"permissions-manager/internal/domain"
)

func TestResolver_Resolve(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	ctx := context.Background()
	logger := slog.Default()

	groups := repository.NewGroupRepo(writeDB)
	users := repository.NewUserRepo(writeDB)
	members := repository.NewGroupUserRepo(writeDB)
	resolver := NewResolver(members, logger)

	g, err := groups.Create(ctx, &domain.Group{Name: "robotics"})
	require.NoError(t, err)
	u, err := users.Create(ctx, &domain.User{Email: "dev@unity.test"})
	require.NoError(t, err)
	_, err = members.Add(ctx, &domain.GroupUser{GroupID: g.ID, UserID: u.ID, TopicAdmin: true})
	require.NoError(t, err)

	t.Run("member roles come from the membership row", func(t *testing.T) {
		roles, err := resolver.Resolve(ctx, domain.Principal{UserID: u.ID}, g.ID)
		require.NoError(t, err)
		assert.True(t, roles.Member)
		assert.True(t, roles.TopicAdmin)
		assert.False(t, roles.GroupAdmin)
		assert.False(t, roles.SuperAdmin)
	})

	t.Run("non-member resolves to the zero set", func(t *testing.T) {
		stranger, err := users.Create(ctx, &domain.User{Email: "stranger@unity.test"})
		require.NoError(t, err)
		roles, err := resolver.Resolve(ctx, domain.Principal{UserID: stranger.ID}, g.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleSet{}, roles)
	})

	t.Run("super admin flag carries without membership", func(t *testing.T) {
		roles, err := resolver.Resolve(ctx, domain.Principal{UserID: 9999, IsAdmin: true}, g.ID)
		require.NoError(t, err)
		assert.True(t, roles.SuperAdmin)
		assert.False(t, roles.Member)
	})
}
