package registry

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permissions-manager/internal/db"
	"permissions-manager/internal/db/repository"
	"permissions-manager/internal/domain"
	"permissions-manager/internal/service/security"
)

type fixture struct {
	topics      *TopicService
	apps        *ApplicationService
	permissions *PermissionService

	groupRepo  *repository.GroupRepo
	userRepo   *repository.UserRepo
	memberRepo *repository.GroupUserRepo
	permRepo   *repository.ApplicationPermissionRepo
	docRepo    *repository.GrantDocumentRepo
}

func newFixture(t *testing.T) *fixture {
	writeDB, _ := db.OpenTestSQLite(t)
	logger := slog.Default()

	f := &fixture{
		groupRepo:  repository.NewGroupRepo(writeDB),
		userRepo:   repository.NewUserRepo(writeDB),
		memberRepo: repository.NewGroupUserRepo(writeDB),
		permRepo:   repository.NewApplicationPermissionRepo(writeDB),
	}
	topicRepo := repository.NewTopicRepo(writeDB)
	appRepo := repository.NewApplicationRepo(writeDB)
	f.docRepo = repository.NewGrantDocumentRepo(writeDB)
	resolver := security.NewResolver(f.memberRepo, logger)
	notifier := domain.NopNotifier{}

	f.topics = NewTopicService(topicRepo, f.groupRepo, f.memberRepo, resolver, notifier, logger)
	f.apps = NewApplicationService(appRepo, f.groupRepo, f.memberRepo, resolver, notifier, logger)
	f.permissions = NewPermissionService(f.permRepo, topicRepo, appRepo, f.docRepo, resolver, notifier, logger)
	return f
}

func (f *fixture) group(t *testing.T, name string, public bool) *domain.Group {
	t.Helper()
	g, err := f.groupRepo.Create(context.Background(), &domain.Group{Name: name, IsPublic: public})
	require.NoError(t, err)
	return g
}

func (f *fixture) principal(t *testing.T, email string, groupID int64, roles domain.GroupUser) domain.Principal {
	t.Helper()
	ctx := context.Background()
	u, err := f.userRepo.Create(ctx, &domain.User{Email: email})
	require.NoError(t, err)
	roles.GroupID, roles.UserID = groupID, u.ID
	_, err = f.memberRepo.Add(ctx, &roles)
	require.NoError(t, err)
	return domain.Principal{UserID: u.ID, Email: email}
}

func TestTopicService_CreateRequiresTopicAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(t, "robotics", true)

	plain := f.principal(t, "dev@unity.test", g.ID, domain.GroupUser{})
	_, err := f.topics.Create(ctx, plain, domain.CreateTopicRequest{
		Name: "telemetry", Kind: domain.TopicKindB, GroupID: g.ID,
	})
	var forbidden *domain.ForbiddenError
	require.ErrorAs(t, err, &forbidden)

	admin := f.principal(t, "topics@unity.test", g.ID, domain.GroupUser{TopicAdmin: true})
	topic, err := f.topics.Create(ctx, admin, domain.CreateTopicRequest{
		Name: "telemetry", Kind: domain.TopicKindB, GroupID: g.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("B.%d.telemetry", g.ID), topic.CanonicalName())
}

func TestTopicService_PublicUnderPrivateGroupRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(t, "secret ops", false)
	admin := f.principal(t, "topics@unity.test", g.ID, domain.GroupUser{TopicAdmin: true})

	_, err := f.topics.Create(ctx, admin, domain.CreateTopicRequest{
		Name: "telemetry", Kind: domain.TopicKindB, GroupID: g.ID, IsPublic: true,
	})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, domain.CodeTopicPublicPrivateGroup, validation.Code)

	// Private creation in the same group is fine, but flipping it public
	// afterwards hits the same wall.
	topic, err := f.topics.Create(ctx, admin, domain.CreateTopicRequest{
		Name: "telemetry", Kind: domain.TopicKindB, GroupID: g.ID,
	})
	require.NoError(t, err)
	_, err = f.topics.Update(ctx, admin, domain.UpdateTopicRequest{ID: topic.ID, IsPublic: true})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, domain.CodeTopicPublicPrivateGroup, validation.Code)
}

func TestTopicService_UpdateKeepsNameAndKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(t, "robotics", true)
	admin := f.principal(t, "topics@unity.test", g.ID, domain.GroupUser{TopicAdmin: true})

	topic, err := f.topics.Create(ctx, admin, domain.CreateTopicRequest{
		Name: "telemetry", Kind: domain.TopicKindC, GroupID: g.ID,
	})
	require.NoError(t, err)

	updated, err := f.topics.Update(ctx, admin, domain.UpdateTopicRequest{
		ID: topic.ID, Description: "vehicle telemetry",
	})
	require.NoError(t, err)
	assert.Equal(t, "telemetry", updated.Name)
	assert.Equal(t, domain.TopicKindC, updated.Kind)
	assert.Equal(t, "vehicle telemetry", updated.Description)
}

func TestTopicService_ListScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine := f.group(t, "mine", false)
	other := f.group(t, "other", false)
	open := f.group(t, "open", true)

	admin := f.principal(t, "topics@unity.test", mine.ID, domain.GroupUser{TopicAdmin: true})
	_, err := f.topics.Create(ctx, admin, domain.CreateTopicRequest{Name: "private mine", Kind: domain.TopicKindB, GroupID: mine.ID})
	require.NoError(t, err)

	otherAdmin := f.principal(t, "other@unity.test", other.ID, domain.GroupUser{TopicAdmin: true})
	_, err = f.topics.Create(ctx, otherAdmin, domain.CreateTopicRequest{Name: "private other", Kind: domain.TopicKindB, GroupID: other.ID})
	require.NoError(t, err)

	openAdmin := f.principal(t, "open@unity.test", open.ID, domain.GroupUser{TopicAdmin: true})
	_, err = f.topics.Create(ctx, openAdmin, domain.CreateTopicRequest{Name: "public topic", Kind: domain.TopicKindB, GroupID: open.ID, IsPublic: true})
	require.NoError(t, err)

	listed, _, err := f.topics.List(ctx, admin, "", domain.PageRequest{})
	require.NoError(t, err)
	names := make([]string, 0, len(listed))
	for _, tp := range listed {
		names = append(names, tp.Name)
	}
	assert.ElementsMatch(t, []string{"private mine", "public topic"}, names)

	everything, _, err := f.topics.List(ctx, domain.Principal{UserID: 0, IsAdmin: true}, "", domain.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, everything, 3)
}

func TestApplicationService_PublicUnderPrivateGroupRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.group(t, "secret ops", false)
	admin := f.principal(t, "apps@unity.test", g.ID, domain.GroupUser{ApplicationAdmin: true})

	_, err := f.apps.Create(ctx, admin, domain.CreateApplicationRequest{
		Name: "collector", GroupID: g.ID, IsPublic: true,
	})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, domain.CodeApplicationPublicPrivateGroup, validation.Code)
}

func TestPermissionService_TopicSideGrants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	producerGroup := f.group(t, "producers", true)
	consumerGroup := f.group(t, "consumers", true)

	topicAdmin := f.principal(t, "topics@unity.test", producerGroup.ID, domain.GroupUser{TopicAdmin: true})
	appAdmin := f.principal(t, "apps@unity.test", consumerGroup.ID, domain.GroupUser{ApplicationAdmin: true})

	topic, err := f.topics.Create(ctx, topicAdmin, domain.CreateTopicRequest{
		Name: "telemetry", Kind: domain.TopicKindB, GroupID: producerGroup.ID,
	})
	require.NoError(t, err)
	app, err := f.apps.Create(ctx, appAdmin, domain.CreateApplicationRequest{
		Name: "collector", GroupID: consumerGroup.ID,
	})
	require.NoError(t, err)

	// The application's admin cannot grant itself access to a foreign topic.
	var forbidden *domain.ForbiddenError
	_, err = f.permissions.Create(ctx, appAdmin, &domain.ApplicationPermission{
		ApplicationID: app.ID, TopicID: topic.ID, CanRead: true,
	})
	require.ErrorAs(t, err, &forbidden)

	// The topic's admin can.
	perm, err := f.permissions.Create(ctx, topicAdmin, &domain.ApplicationPermission{
		ApplicationID: app.ID, TopicID: topic.ID, CanRead: true, ReadPartitions: []string{"zone1"},
	})
	require.NoError(t, err)

	// A permission granting neither direction is rejected.
	_, err = f.permissions.Create(ctx, topicAdmin, &domain.ApplicationPermission{
		ApplicationID: app.ID, TopicID: topic.ID,
	})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, domain.CodePermissionNoAccess, validation.Code)

	// Either side may revoke; here the application side does.
	require.NoError(t, f.permissions.Delete(ctx, appAdmin, perm.ID))
}

func TestPermissionService_MutationsDropCachedDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := f.group(t, "robotics", true)
	admin := f.principal(t, "lead@unity.test", g.ID, domain.GroupUser{TopicAdmin: true, ApplicationAdmin: true})
	topic, err := f.topics.Create(ctx, admin, domain.CreateTopicRequest{
		Name: "telemetry", Kind: domain.TopicKindB, GroupID: g.ID,
	})
	require.NoError(t, err)
	app, err := f.apps.Create(ctx, admin, domain.CreateApplicationRequest{
		Name: "collector", GroupID: g.ID,
	})
	require.NoError(t, err)

	cacheDocument := func() {
		require.NoError(t, f.docRepo.Put(ctx, &domain.GrantDocument{
			ApplicationID: app.ID, Document: "<dds>cached</dds>", ETag: "AAAA",
			CompiledAt: time.Now().UTC(),
		}))
	}
	var notFound *domain.NotFoundError

	cacheDocument()
	perm, err := f.permissions.Create(ctx, admin, &domain.ApplicationPermission{
		ApplicationID: app.ID, TopicID: topic.ID, CanRead: true,
	})
	require.NoError(t, err)
	_, err = f.docRepo.Get(ctx, app.ID)
	require.ErrorAs(t, err, &notFound)

	cacheDocument()
	require.NoError(t, f.permissions.Delete(ctx, admin, perm.ID))
	_, err = f.docRepo.Get(ctx, app.ID)
	require.ErrorAs(t, err, &notFound)
}
