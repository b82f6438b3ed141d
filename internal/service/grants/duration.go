// Package grants manages grant durations and application grants, and
// compiles applications' resolved permissions into DDS permission documents.
package grants

import (
	"context"
	"log/slog"

	"permissions-manager/internal/domain"
	"permissions-manager/internal/service/security"
)

// DurationService owns grant durations. Durations are group-scoped and
// managed by group admins.
type DurationService struct {
	durations domain.GrantDurationRepository
	groups    domain.GroupRepository
	resolver  *security.Resolver
	logger    *slog.Logger
}

func NewDurationService(durations domain.GrantDurationRepository, groups domain.GroupRepository, resolver *security.Resolver, logger *slog.Logger) *DurationService {
	return &DurationService{durations: durations, groups: groups, resolver: resolver, logger: logger}
}

func (s *DurationService) authorize(ctx context.Context, p domain.Principal, groupID int64, action domain.Action) error {
	roles, err := s.resolver.Resolve(ctx, p, groupID)
	if err != nil {
		return err
	}
	return security.Authorize(roles, action, domain.ResourceGrantDuration)
}

func (s *DurationService) Create(ctx context.Context, p domain.Principal, req domain.CreateGrantDurationRequest) (*domain.GrantDuration, error) {
	if err := s.authorize(ctx, p, req.GroupID, domain.ActionCreate); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.groups.GetByID(ctx, req.GroupID); err != nil {
		return nil, err
	}

	d, err := s.durations.Create(ctx, &domain.GrantDuration{
		GroupID:         req.GroupID,
		Name:            req.Name,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("grant duration created", "duration_id", d.ID, "group_id", d.GroupID, "seconds", d.DurationSeconds)
	return d, nil
}

func (s *DurationService) Update(ctx context.Context, p domain.Principal, req domain.CreateGrantDurationRequest, id int64) (*domain.GrantDuration, error) {
	d, err := s.durations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, d.GroupID, domain.ActionUpdate); err != nil {
		return nil, err
	}
	req.GroupID = d.GroupID
	if err := req.Validate(); err != nil {
		return nil, err
	}

	d.Name = req.Name
	d.DurationSeconds = req.DurationSeconds
	return s.durations.Update(ctx, d)
}

// Delete removes the duration. A duration still referenced by grants cannot
// be deleted.
func (s *DurationService) Delete(ctx context.Context, p domain.Principal, id int64) error {
	d, err := s.durations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, p, d.GroupID, domain.ActionDelete); err != nil {
		return err
	}

	n, err := s.durations.CountGrants(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.ErrConflict(domain.CodeDurationInUse,
			"grant duration %d is referenced by %d grants", id, n)
	}
	return s.durations.Delete(ctx, id)
}

// List returns the group's durations. Visible to group members.
func (s *DurationService) List(ctx context.Context, p domain.Principal, groupID int64, page domain.PageRequest) ([]domain.GrantDuration, string, error) {
	roles, err := s.resolver.Resolve(ctx, p, groupID)
	if err != nil {
		return nil, "", err
	}
	if !roles.IsMember() {
		return nil, "", domain.ErrForbidden("duration listing requires group membership")
	}

	durations, total, err := s.durations.List(ctx, groupID, page)
	if err != nil {
		return nil, "", err
	}
	return durations, domain.NextPageToken(page.Offset(), page.Limit(), total), nil
}
