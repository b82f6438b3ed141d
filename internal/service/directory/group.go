// Package directory manages groups, their memberships and the super admin
// roster.
package directory

import (
	"context"
	"log/slog"

	"permissions-manager/internal/domain"
	"permissions-manager/internal/service/security"
)

// GroupService owns the group lifecycle, including the visibility cascade.
type GroupService struct {
	groups   domain.GroupRepository
	resolver *security.Resolver
	notifier domain.ChangeNotifier
	logger   *slog.Logger
}

func NewGroupService(groups domain.GroupRepository, resolver *security.Resolver, notifier domain.ChangeNotifier, logger *slog.Logger) *GroupService {
	return &GroupService{groups: groups, resolver: resolver, notifier: notifier, logger: logger}
}

// Create makes a new group. Only super admins create groups.
func (s *GroupService) Create(ctx context.Context, p domain.Principal, req domain.CreateGroupRequest) (*domain.Group, error) {
	roles := domain.RoleSet{SuperAdmin: p.IsAdmin}
	if err := security.Authorize(roles, domain.ActionCreate, domain.ResourceGroup); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	g, err := s.groups.Create(ctx, &domain.Group{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("group created", "group_id", g.ID, "name", g.Name, "public", g.IsPublic)
	return g, nil
}

// Get returns the group if the caller may see it. Private groups are
// invisible to non-members.
func (s *GroupService) Get(ctx context.Context, p domain.Principal, id int64) (*domain.Group, error) {
	g, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.IsPublic {
		return g, nil
	}
	roles, err := s.resolver.Resolve(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !roles.IsMember() {
		return nil, domain.ErrNotFound(domain.CodeGroupNotFound, "group %d not found", id)
	}
	return g, nil
}

// Update alters the group's name, description and visibility. A visibility
// change from public to private cascades over the group's topics and
// applications; the reverse direction leaves them untouched.
func (s *GroupService) Update(ctx context.Context, p domain.Principal, id int64, req domain.CreateGroupRequest) (*domain.Group, error) {
	roles, err := s.resolver.Resolve(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := security.Authorize(roles, domain.ActionUpdate, domain.ResourceGroup); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if current.IsPublic != req.IsPublic {
		if err := s.groups.UpdateVisibility(ctx, id, req.IsPublic); err != nil {
			return nil, err
		}
	}

	g, err := s.groups.Update(ctx, &domain.Group{ID: id, Name: req.Name, Description: req.Description})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(domain.EntityGroup, id, domain.EventGroupUpdated)
	s.logger.Info("group updated", "group_id", id, "public", req.IsPublic)
	return g, nil
}

// Delete removes the group and everything it owns. Only super admins delete
// groups; group admins cannot.
func (s *GroupService) Delete(ctx context.Context, p domain.Principal, id int64) error {
	roles, err := s.resolver.Resolve(ctx, p, id)
	if err != nil {
		return err
	}
	if err := security.Authorize(roles, domain.ActionDelete, domain.ResourceGroup); err != nil {
		return err
	}

	if err := s.groups.Delete(ctx, id); err != nil {
		return err
	}
	s.notifier.Publish(domain.EntityGroup, id, domain.EventGroupDeleted)
	s.logger.Info("group deleted", "group_id", id)
	return nil
}

// List returns the groups visible to the caller: all groups for super
// admins, membership-scoped otherwise.
func (s *GroupService) List(ctx context.Context, p domain.Principal, f domain.GroupFilter, page domain.PageRequest) ([]domain.Group, string, error) {
	var (
		groups []domain.Group
		total  int64
		err    error
	)
	if p.IsAdmin {
		groups, total, err = s.groups.ListAll(ctx, f, page)
	} else {
		groups, total, err = s.groups.ListForUser(ctx, p.UserID, f, page)
	}
	if err != nil {
		return nil, "", err
	}
	return groups, domain.NextPageToken(page.Offset(), page.Limit(), total), nil
}
