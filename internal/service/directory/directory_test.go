package directory

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permissions-manager/internal/db"
	"permissions-manager/internal/db/repository"
	"permissions-manager/internal/domain"
	"permissions-manager/internal/service/security"
)

type fixture struct {
	groups     *GroupService
	admins     *AdminService
	membership *MembershipService

	groupRepo  *repository.GroupRepo
	userRepo   *repository.UserRepo
	memberRepo *repository.GroupUserRepo
	topicRepo  *repository.TopicRepo
	appRepo    *repository.ApplicationRepo
}

func newFixture(t *testing.T) *fixture {
	writeDB, _ := db.OpenTestSQLite(t)
	logger := slog.Default()

	f := &fixture{
		groupRepo:  repository.NewGroupRepo(writeDB),
		userRepo:   repository.NewUserRepo(writeDB),
		memberRepo: repository.NewGroupUserRepo(writeDB),
		topicRepo:  repository.NewTopicRepo(writeDB),
		appRepo:    repository.NewApplicationRepo(writeDB),
	}
	resolver := security.NewResolver(f.memberRepo, logger)
	f.groups = NewGroupService(f.groupRepo, resolver, domain.NopNotifier{}, logger)
	f.admins = NewAdminService(f.userRepo, logger)
	f.membership = NewMembershipService(f.memberRepo, f.userRepo, f.groupRepo, resolver, logger)
	return f
}

func (f *fixture) superAdmin(t *testing.T) domain.Principal {
	t.Helper()
	u, err := f.userRepo.Create(context.Background(), &domain.User{Email: "root@unity.test", IsAdmin: true})
	require.NoError(t, err)
	return domain.Principal{UserID: u.ID, Email: u.Email, IsAdmin: true}
}

func (f *fixture) memberOf(t *testing.T, groupID int64, email string, m domain.GroupUser) domain.Principal {
	t.Helper()
	ctx := context.Background()
	u, err := f.userRepo.Create(ctx, &domain.User{Email: email})
	require.NoError(t, err)
	m.GroupID, m.UserID = groupID, u.ID
	_, err = f.memberRepo.Add(ctx, &m)
	require.NoError(t, err)
	return domain.Principal{UserID: u.ID, Email: u.Email}
}

func TestGroupService_CreateRequiresSuperAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.groups.Create(ctx, domain.Principal{UserID: 1}, domain.CreateGroupRequest{Name: "robotics"})
	var unauthorized *domain.UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)

	g, err := f.groups.Create(ctx, f.superAdmin(t), domain.CreateGroupRequest{Name: "robotics"})
	require.NoError(t, err)
	assert.Equal(t, "robotics", g.Name)
}

func TestGroupService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.superAdmin(t)

	var validation *domain.ValidationError

	_, err := f.groups.Create(ctx, admin, domain.CreateGroupRequest{Name: "   "})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, domain.CodeGroupNameBlank, validation.Code)

	_, err = f.groups.Create(ctx, admin, domain.CreateGroupRequest{Name: "ab"})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, domain.CodeGroupNameTooShort, validation.Code)
}

func TestGroupService_PrivateGroupHiddenFromNonMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.superAdmin(t)

	g, err := f.groups.Create(ctx, admin, domain.CreateGroupRequest{Name: "secret ops"})
	require.NoError(t, err)

	stranger := domain.Principal{UserID: 777}
	_, err = f.groups.Get(ctx, stranger, g.ID)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)

	member := f.memberOf(t, g.ID, "insider@unity.test", domain.GroupUser{})
	got, err := f.groups.Get(ctx, member, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)
}

func TestGroupService_UpdateVisibilityCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.superAdmin(t)

	g, err := f.groups.Create(ctx, admin, domain.CreateGroupRequest{Name: "robotics", IsPublic: true})
	require.NoError(t, err)
	topic, err := f.topicRepo.Create(ctx, &domain.Topic{Name: "telemetry", Kind: domain.TopicKindB, IsPublic: true, GroupID: g.ID})
	require.NoError(t, err)

	groupAdmin := f.memberOf(t, g.ID, "lead@unity.test", domain.GroupUser{GroupAdmin: true})
	_, err = f.groups.Update(ctx, groupAdmin, g.ID,
		domain.CreateGroupRequest{Name: "robotics", IsPublic: false})
	require.NoError(t, err)

	gotTopic, err := f.topicRepo.GetByID(ctx, topic.ID)
	require.NoError(t, err)
	assert.False(t, gotTopic.IsPublic)
}

func TestGroupService_GroupAdminCannotDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.superAdmin(t)

	g, err := f.groups.Create(ctx, admin, domain.CreateGroupRequest{Name: "robotics"})
	require.NoError(t, err)
	groupAdmin := f.memberOf(t, g.ID, "lead@unity.test", domain.GroupUser{GroupAdmin: true})

	var forbidden *domain.ForbiddenError
	require.ErrorAs(t, f.groups.Delete(ctx, groupAdmin, g.ID), &forbidden)

	require.NoError(t, f.groups.Delete(ctx, admin, g.ID))
}

func TestGroupService_ListScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.superAdmin(t)

	a, err := f.groups.Create(ctx, admin, domain.CreateGroupRequest{Name: "alpha"})
	require.NoError(t, err)
	_, err = f.groups.Create(ctx, admin, domain.CreateGroupRequest{Name: "beta"})
	require.NoError(t, err)

	member := f.memberOf(t, a.ID, "dev@unity.test", domain.GroupUser{})

	all, _, err := f.groups.List(ctx, admin, domain.GroupFilter{}, domain.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, _, err := f.groups.List(ctx, member, domain.GroupFilter{}, domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "alpha", mine[0].Name)
}

func TestAdminService_RosterLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.superAdmin(t)

	added, err := f.admins.Add(ctx, admin, "second@unity.test")
	require.NoError(t, err)
	assert.True(t, added.IsAdmin)

	_, err = f.admins.Add(ctx, admin, "second@unity.test")
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)

	var validation *domain.ValidationError
	_, err = f.admins.Add(ctx, admin, "not-an-email")
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, domain.CodeInvalidEmailFormat, validation.Code)

	// Revoking with no remaining memberships removes the user entirely.
	require.NoError(t, f.admins.Revoke(ctx, admin, added.ID))
	_, err = f.userRepo.GetByID(ctx, added.ID)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestAdminService_PromotedMemberAppearsInListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.superAdmin(t)

	g, err := f.groups.Create(ctx, admin, domain.CreateGroupRequest{Name: "ops", IsPublic: true})
	require.NoError(t, err)
	f.memberOf(t, g.ID, "promoted@unity.test", domain.GroupUser{})

	_, err = f.admins.Add(ctx, admin, "promoted@unity.test")
	require.NoError(t, err)

	admins, _, err := f.admins.List(ctx, admin, "", domain.PageRequest{})
	require.NoError(t, err)
	emails := make([]string, 0, len(admins))
	for _, a := range admins {
		emails = append(emails, a.Email)
	}
	assert.Contains(t, emails, "promoted@unity.test")
}

func TestAdminService_ListOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.superAdmin(t) // root@unity.test

	_, err := f.admins.Add(ctx, admin, "alpha@unity.test")
	require.NoError(t, err)
	_, err = f.admins.Add(ctx, admin, "mid@unity.test")
	require.NoError(t, err)

	ascending, _, err := f.admins.List(ctx, admin, "", domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, ascending, 3)
	assert.Equal(t, "alpha@unity.test", ascending[0].Email)
	assert.Equal(t, "root@unity.test", ascending[2].Email)

	descending, _, err := f.admins.List(ctx, admin, "", domain.PageRequest{Descending: true})
	require.NoError(t, err)
	assert.Equal(t, "root@unity.test", descending[0].Email)
	assert.Equal(t, "alpha@unity.test", descending[2].Email)
}

func TestAdminService_RevokeForbiddenForNonAdmins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.superAdmin(t)

	g, err := f.groups.Create(ctx, admin, domain.CreateGroupRequest{Name: "ops", IsPublic: true})
	require.NoError(t, err)
	member := f.memberOf(t, g.ID, "plain@unity.test", domain.GroupUser{})

	var forbidden *domain.ForbiddenError
	require.ErrorAs(t, f.admins.Revoke(ctx, member, admin.UserID), &forbidden)

	// A registered user with no memberships at all is also forbidden here,
	// unlike the listing and escalation paths.
	loner, err := f.userRepo.Create(ctx, &domain.User{Email: "loner@unity.test"})
	require.NoError(t, err)
	caller := domain.Principal{UserID: loner.ID, Email: loner.Email}
	require.ErrorAs(t, f.admins.Revoke(ctx, caller, admin.UserID), &forbidden)
}

func TestAdminService_ListAndAddRequireSuperAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.superAdmin(t)

	g, err := f.groups.Create(ctx, admin, domain.CreateGroupRequest{Name: "ops", IsPublic: true})
	require.NoError(t, err)
	member := f.memberOf(t, g.ID, "plain@unity.test", domain.GroupUser{})

	var unauthorized *domain.UnauthorizedError
	_, _, err = f.admins.List(ctx, domain.Principal{UserID: 999}, "", domain.PageRequest{})
	require.ErrorAs(t, err, &unauthorized)

	// Group membership buys no roster visibility either.
	_, _, err = f.admins.List(ctx, member, "", domain.PageRequest{})
	require.ErrorAs(t, err, &unauthorized)

	_, err = f.admins.Add(ctx, member, "new@unity.test")
	require.ErrorAs(t, err, &unauthorized)
}

func TestMembershipService_AddCreatesUserOnFirstSight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.superAdmin(t)

	g, err := f.groups.Create(ctx, admin, domain.CreateGroupRequest{Name: "robotics"})
	require.NoError(t, err)

	m, err := f.membership.Add(ctx, admin, domain.AddMemberRequest{
		GroupID: g.ID, Email: "NewDev@Unity.Test", TopicAdmin: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "newdev@unity.test", m.UserEmail)
	assert.True(t, m.TopicAdmin)

	// Same pair again conflicts.
	_, err = f.membership.Add(ctx, admin, domain.AddMemberRequest{GroupID: g.ID, Email: "newdev@unity.test"})
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestMembershipService_GroupAdminManages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.superAdmin(t)

	g, err := f.groups.Create(ctx, admin, domain.CreateGroupRequest{Name: "robotics"})
	require.NoError(t, err)
	lead := f.memberOf(t, g.ID, "lead@unity.test", domain.GroupUser{GroupAdmin: true})
	plain := f.memberOf(t, g.ID, "dev@unity.test", domain.GroupUser{})

	var forbidden *domain.ForbiddenError
	_, err = f.membership.Add(ctx, plain, domain.AddMemberRequest{GroupID: g.ID, Email: "x@unity.test"})
	require.ErrorAs(t, err, &forbidden)

	m, err := f.membership.Add(ctx, lead, domain.AddMemberRequest{GroupID: g.ID, Email: "x@unity.test"})
	require.NoError(t, err)

	updated, err := f.membership.UpdateRoles(ctx, lead, domain.UpdateMemberRequest{ID: m.ID, ApplicationAdmin: true})
	require.NoError(t, err)
	assert.True(t, updated.ApplicationAdmin)

	// Removal sweeps the now-orphaned user away.
	require.NoError(t, f.membership.Remove(ctx, lead, m.ID))
	_, err = f.userRepo.GetByEmail(ctx, "x@unity.test")
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}
