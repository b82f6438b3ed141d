package registry

import (
	"context"
	"log/slog"

	"permissions-manager/internal/domain"
	"permissions-manager/internal/service/security"
)

// ApplicationService owns the application lifecycle. Name and group
// association are fixed at creation.
type ApplicationService struct {
	apps     domain.ApplicationRepository
	groups   domain.GroupRepository
	members  domain.GroupUserRepository
	resolver *security.Resolver
	notifier domain.ChangeNotifier
	logger   *slog.Logger
}

func NewApplicationService(apps domain.ApplicationRepository, groups domain.GroupRepository, members domain.GroupUserRepository, resolver *security.Resolver, notifier domain.ChangeNotifier, logger *slog.Logger) *ApplicationService {
	return &ApplicationService{apps: apps, groups: groups, members: members, resolver: resolver, notifier: notifier, logger: logger}
}

// Create makes a new application in the group. The public-under-private
// rejection mirrors the topic rule.
func (s *ApplicationService) Create(ctx context.Context, p domain.Principal, req domain.CreateApplicationRequest) (*domain.Application, error) {
	roles, err := s.resolver.Resolve(ctx, p, req.GroupID)
	if err != nil {
		return nil, err
	}
	if err := security.Authorize(roles, domain.ActionCreate, domain.ResourceApplication); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	g, err := s.groups.GetByID(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	if req.IsPublic && !g.IsPublic {
		return nil, domain.ErrValidation(domain.CodeApplicationPublicPrivateGroup,
			"application cannot be public under private group %q", g.Name)
	}

	a, err := s.apps.Create(ctx, &domain.Application{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		GroupID:     req.GroupID,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("application created", "application_id", a.ID, "group_id", a.GroupID)
	return a, nil
}

// Get returns the application if the caller may see it.
func (s *ApplicationService) Get(ctx context.Context, p domain.Principal, id int64) (*domain.Application, error) {
	a, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.IsPublic {
		return a, nil
	}
	roles, err := s.resolver.Resolve(ctx, p, a.GroupID)
	if err != nil {
		return nil, err
	}
	if !roles.IsMember() {
		return nil, domain.ErrNotFound(domain.CodeApplicationNotFound, "application %d not found", id)
	}
	return a, nil
}

// Update alters the application's description and visibility.
func (s *ApplicationService) Update(ctx context.Context, p domain.Principal, req domain.UpdateApplicationRequest) (*domain.Application, error) {
	a, err := s.apps.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	roles, err := s.resolver.Resolve(ctx, p, a.GroupID)
	if err != nil {
		return nil, err
	}
	if err := security.Authorize(roles, domain.ActionUpdate, domain.ResourceApplication); err != nil {
		return nil, err
	}
	if len(req.Description) > domain.MaxDescriptionLength {
		return nil, domain.ErrValidation(domain.CodeApplicationDescriptionLimit,
			"application description exceeds %d characters", domain.MaxDescriptionLength)
	}

	if req.IsPublic {
		g, err := s.groups.GetByID(ctx, a.GroupID)
		if err != nil {
			return nil, err
		}
		if !g.IsPublic {
			return nil, domain.ErrValidation(domain.CodeApplicationPublicPrivateGroup,
				"application cannot be public under private group %q", g.Name)
		}
	}

	a.Description = req.Description
	a.IsPublic = req.IsPublic
	updated, err := s.apps.Update(ctx, a)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(domain.EntityApplication, a.ID, domain.EventApplicationUpdated)
	return updated, nil
}

// Delete removes the application along with its permissions, grants and
// cached grant document.
func (s *ApplicationService) Delete(ctx context.Context, p domain.Principal, id int64) error {
	a, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return err
	}
	roles, err := s.resolver.Resolve(ctx, p, a.GroupID)
	if err != nil {
		return err
	}
	if err := security.Authorize(roles, domain.ActionDelete, domain.ResourceApplication); err != nil {
		return err
	}

	if err := s.apps.Delete(ctx, id); err != nil {
		return err
	}
	s.notifier.Publish(domain.EntityApplication, id, domain.EventApplicationDeleted)
	s.logger.Info("application deleted", "application_id", id, "group_id", a.GroupID)
	return nil
}

// List returns applications visible to the caller.
func (s *ApplicationService) List(ctx context.Context, p domain.Principal, filter string, page domain.PageRequest) ([]domain.Application, string, error) {
	groupIDs, err := visibleGroupIDs(ctx, s.members, p)
	if err != nil {
		return nil, "", err
	}
	apps, total, err := s.apps.List(ctx, groupIDs, filter, page)
	if err != nil {
		return nil, "", err
	}
	return apps, domain.NextPageToken(page.Offset(), page.Limit(), total), nil
}
