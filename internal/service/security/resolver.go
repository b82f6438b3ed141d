// Package security resolves principals to group-scoped role sets and
// decides whether a role set may perform an action.
package security

import (
	"context"
	"errors"
	"log/slog"

	"permissions-manager/internal/domain"
)

// Resolver computes the effective RoleSet of a principal for a group.
type Resolver struct {
	members domain.GroupUserRepository
	logger  *slog.Logger
}

func NewResolver(members domain.GroupUserRepository, logger *slog.Logger) *Resolver {
	return &Resolver{members: members, logger: logger}
}

// Resolve looks up the principal's membership in the group and folds the
// super admin flag in. A missing membership yields the zero RoleSet (or
// SuperAdmin-only for super admins); it is not an error.
func (r *Resolver) Resolve(ctx context.Context, p domain.Principal, groupID int64) (domain.RoleSet, error) {
	roles := domain.RoleSet{SuperAdmin: p.IsAdmin}

	m, err := r.members.Get(ctx, groupID, p.UserID)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return roles, nil
		}
		return domain.RoleSet{}, err
	}

	roles.Member = true
	roles.GroupAdmin = m.GroupAdmin
	roles.TopicAdmin = m.TopicAdmin
	roles.ApplicationAdmin = m.ApplicationAdmin

	r.logger.Debug("resolved roles",
		"user_id", p.UserID, "group_id", groupID,
		"group_admin", roles.GroupAdmin, "topic_admin", roles.TopicAdmin,
		"application_admin", roles.ApplicationAdmin)
	return roles, nil
}
