// Package app provides application-level wiring and dependency injection
// for the permissions manager.
package app

import (
	"database/sql"
	"log/slog"

	"permissions-manager/internal/config"
	"permissions-manager/internal/db/repository"
	"permissions-manager/internal/domain"
	"permissions-manager/internal/notify"
	"permissions-manager/internal/service/directory"
	"permissions-manager/internal/service/grants"
	"permissions-manager/internal/service/registry"
	"permissions-manager/internal/service/security"
)

// Deps holds the external dependencies that main() must provide:
// database handles, config and the root logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// Services groups all service pointers the API handler and router need.
type Services struct {
	Group       *directory.GroupService
	Admin       *directory.AdminService
	Membership  *directory.MembershipService
	Topic       *registry.TopicService
	Application *registry.ApplicationService
	Permission  *registry.PermissionService
	Duration    *grants.DurationService
	Grant       *grants.GrantService
}

// App holds the fully-wired application. Users is exposed for the auth
// middleware, Notifier for the websocket endpoints and Refresher for the
// materialization cron lifecycle.
type App struct {
	Services     Services
	Users        domain.UserRepository
	Notifier     *notify.Registry
	Materializer *grants.Materializer
	Refresher    *grants.Refresher
}

// New wires all repositories and services from the provided deps.
func New(deps Deps) *App {
	logger := deps.Logger

	// Mutating repositories share the single-connection write pool. The auth
	// middleware's per-request user lookup is read-only and goes to the read
	// pool instead.
	userRepo := repository.NewUserRepo(deps.WriteDB)
	authUserRepo := repository.NewUserRepo(deps.ReadDB)
	groupRepo := repository.NewGroupRepo(deps.WriteDB)
	memberRepo := repository.NewGroupUserRepo(deps.WriteDB)
	topicRepo := repository.NewTopicRepo(deps.WriteDB)
	appRepo := repository.NewApplicationRepo(deps.WriteDB)
	permRepo := repository.NewApplicationPermissionRepo(deps.WriteDB)
	durationRepo := repository.NewGrantDurationRepo(deps.WriteDB)
	grantRepo := repository.NewApplicationGrantRepo(deps.WriteDB)
	docRepo := repository.NewGrantDocumentRepo(deps.WriteDB)

	resolver := security.NewResolver(memberRepo, logger.With("component", "resolver"))
	notifier := notify.NewRegistry(logger.With("component", "notify"))

	materializer := grants.NewMaterializer(
		appRepo, permRepo, grantRepo, durationRepo, docRepo,
		deps.Cfg.GrantDomainID, logger.With("component", "materializer"))
	refresher := grants.NewRefresher(materializer, docRepo, notifier, logger.With("component", "refresher"))

	return &App{
		Services: Services{
			Group:       directory.NewGroupService(groupRepo, resolver, notifier, logger.With("component", "groups")),
			Admin:       directory.NewAdminService(userRepo, logger.With("component", "admins")),
			Membership:  directory.NewMembershipService(memberRepo, userRepo, groupRepo, resolver, logger.With("component", "membership")),
			Topic:       registry.NewTopicService(topicRepo, groupRepo, memberRepo, resolver, notifier, logger.With("component", "topics")),
			Application: registry.NewApplicationService(appRepo, groupRepo, memberRepo, resolver, notifier, logger.With("component", "applications")),
			Permission:  registry.NewPermissionService(permRepo, topicRepo, appRepo, docRepo, resolver, notifier, logger.With("component", "permissions")),
			Duration:    grants.NewDurationService(durationRepo, groupRepo, resolver, logger.With("component", "durations")),
			Grant:       grants.NewGrantService(grantRepo, durationRepo, appRepo, docRepo, resolver, notifier, logger.With("component", "grants")),
		},
		Users:        authUserRepo,
		Notifier:     notifier,
		Materializer: materializer,
		Refresher:    refresher,
	}
}
