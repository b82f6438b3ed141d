package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permissions-manager/internal/db"
	"permissions-manager/internal/domain"
)

func TestApplicationPermissionRepo_RoundTripWithPartitions(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	ctx := context.Background()

	groups := NewGroupRepo(writeDB)
	topics := NewTopicRepo(writeDB)
	apps := NewApplicationRepo(writeDB)
	perms := NewApplicationPermissionRepo(writeDB)

	g, err := groups.Create(ctx, &domain.Group{Name: "robotics"})
	require.NoError(t, err)
	topic, err := topics.Create(ctx, &domain.Topic{Name: "telemetry", Kind: domain.TopicKindB, GroupID: g.ID})
	require.NoError(t, err)
	app, err := apps.Create(ctx, &domain.Application{Name: "collector", GroupID: g.ID})
	require.NoError(t, err)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	created, err := perms.Create(ctx, &domain.ApplicationPermission{
		ApplicationID:   app.ID,
		TopicID:         topic.ID,
		CanRead:         true,
		CanWrite:        true,
		ReadPartitions:  []string{"zoneB", "zoneA"},
		WritePartitions: []string{"out"},
		ValidStart:      &start,
		ValidEnd:        &end,
	})
	require.NoError(t, err)

	got, err := perms.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.CanRead)
	assert.True(t, got.CanWrite)
	assert.Equal(t, []string{"zoneB", "zoneA"}, got.ReadPartitions, "insertion order survives")
	assert.Equal(t, []string{"out"}, got.WritePartitions)
	require.NotNil(t, got.ValidStart)
	assert.True(t, got.ValidStart.Equal(start))

	exists, err := perms.Exists(ctx, app.ID, topic.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	// Second permission on the same (application, topic) pair conflicts.
	_, err = perms.Create(ctx, &domain.ApplicationPermission{
		ApplicationID: app.ID, TopicID: topic.ID, CanRead: true,
	})
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.CodePermissionAlreadyExists, conflict.Code)
}

func TestApplicationPermissionRepo_ListResolvedOrder(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	ctx := context.Background()

	groups := NewGroupRepo(writeDB)
	topics := NewTopicRepo(writeDB)
	apps := NewApplicationRepo(writeDB)
	perms := NewApplicationPermissionRepo(writeDB)

	g, err := groups.Create(ctx, &domain.Group{Name: "robotics"})
	require.NoError(t, err)
	app, err := apps.Create(ctx, &domain.Application{Name: "collector", GroupID: g.ID})
	require.NoError(t, err)

	zebra, err := topics.Create(ctx, &domain.Topic{Name: "zebra", Kind: domain.TopicKindB, GroupID: g.ID})
	require.NoError(t, err)
	aardvark, err := topics.Create(ctx, &domain.Topic{Name: "aardvark", Kind: domain.TopicKindC, GroupID: g.ID})
	require.NoError(t, err)

	_, err = perms.Create(ctx, &domain.ApplicationPermission{ApplicationID: app.ID, TopicID: zebra.ID, CanWrite: true})
	require.NoError(t, err)
	_, err = perms.Create(ctx, &domain.ApplicationPermission{ApplicationID: app.ID, TopicID: aardvark.ID, CanRead: true})
	require.NoError(t, err)

	resolved, err := perms.ListResolved(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	// Creation order, not name order.
	assert.Equal(t, "zebra", resolved[0].Topic.Name)
	assert.Equal(t, "aardvark", resolved[1].Topic.Name)
	assert.Equal(t, "B", string(resolved[0].Topic.Kind))
	assert.Equal(t, g.ID, resolved[0].Topic.GroupID)
}

func TestApplicationPermissionRepo_DeleteRemovesPartitions(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	ctx := context.Background()

	groups := NewGroupRepo(writeDB)
	topics := NewTopicRepo(writeDB)
	apps := NewApplicationRepo(writeDB)
	perms := NewApplicationPermissionRepo(writeDB)

	g, err := groups.Create(ctx, &domain.Group{Name: "robotics"})
	require.NoError(t, err)
	topic, err := topics.Create(ctx, &domain.Topic{Name: "telemetry", Kind: domain.TopicKindB, GroupID: g.ID})
	require.NoError(t, err)
	app, err := apps.Create(ctx, &domain.Application{Name: "collector", GroupID: g.ID})
	require.NoError(t, err)

	perm, err := perms.Create(ctx, &domain.ApplicationPermission{
		ApplicationID: app.ID, TopicID: topic.ID, CanRead: true, ReadPartitions: []string{"p"},
	})
	require.NoError(t, err)

	require.NoError(t, perms.Delete(ctx, perm.ID))

	var n int64
	err = writeDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM permission_partitions WHERE permission_id = ?`, perm.ID).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)

	var notFound *domain.NotFoundError
	require.ErrorAs(t, perms.Delete(ctx, perm.ID), &notFound)
}
