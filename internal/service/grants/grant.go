package grants

import (
	"context"
	"log/slog"

	"permissions-manager/internal/domain"
	"permissions-manager/internal/service/security"
)

// GrantService owns application grants. A grant ties an application to a
// grant duration of the same group.
type GrantService struct {
	grants    domain.ApplicationGrantRepository
	durations domain.GrantDurationRepository
	apps      domain.ApplicationRepository
	docs      domain.GrantDocumentRepository
	resolver  *security.Resolver
	notifier  domain.ChangeNotifier
	logger    *slog.Logger
}

func NewGrantService(grants domain.ApplicationGrantRepository, durations domain.GrantDurationRepository, apps domain.ApplicationRepository, docs domain.GrantDocumentRepository, resolver *security.Resolver, notifier domain.ChangeNotifier, logger *slog.Logger) *GrantService {
	return &GrantService{grants: grants, durations: durations, apps: apps, docs: docs, resolver: resolver, notifier: notifier, logger: logger}
}

// Create issues a grant for the application. The referenced duration must
// belong to the grant's group.
func (s *GrantService) Create(ctx context.Context, p domain.Principal, req domain.CreateApplicationGrantRequest) (*domain.ApplicationGrant, error) {
	app, err := s.apps.GetByID(ctx, req.ApplicationID)
	if err != nil {
		return nil, err
	}
	if req.GroupID == 0 {
		req.GroupID = app.GroupID
	}

	roles, err := s.resolver.Resolve(ctx, p, req.GroupID)
	if err != nil {
		return nil, err
	}
	if err := security.Authorize(roles, domain.ActionCreate, domain.ResourceApplicationGrant); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	dur, err := s.durations.GetByID(ctx, req.GrantDurationID)
	if err != nil {
		return nil, err
	}
	if dur.GroupID != req.GroupID {
		return nil, domain.ErrValidation(domain.CodeGrantDurationWrongGrp,
			"grant duration %d belongs to a different group", dur.ID)
	}

	g, err := s.grants.Create(ctx, &domain.ApplicationGrant{
		Name:            req.Name,
		ApplicationID:   req.ApplicationID,
		GroupID:         req.GroupID,
		GrantDurationID: req.GrantDurationID,
		Subject:         req.Subject,
	})
	if err != nil {
		return nil, err
	}
	// Grants bound the document's validity window, so the cache is stale.
	if err := s.docs.Invalidate(ctx, req.ApplicationID); err != nil {
		return nil, err
	}
	s.notifier.Publish(domain.EntityApplication, req.ApplicationID, domain.EventApplicationUpdated)
	s.logger.Info("grant created", "grant_id", g.ID, "application_id", g.ApplicationID, "group_id", g.GroupID)
	return g, nil
}

// Delete revokes the grant.
func (s *GrantService) Delete(ctx context.Context, p domain.Principal, id int64) error {
	g, err := s.grants.GetByID(ctx, id)
	if err != nil {
		return err
	}
	roles, err := s.resolver.Resolve(ctx, p, g.GroupID)
	if err != nil {
		return err
	}
	if err := security.Authorize(roles, domain.ActionDelete, domain.ResourceApplicationGrant); err != nil {
		return err
	}

	if err := s.grants.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.docs.Invalidate(ctx, g.ApplicationID); err != nil {
		return err
	}
	s.notifier.Publish(domain.EntityApplication, g.ApplicationID, domain.EventApplicationUpdated)
	s.logger.Info("grant deleted", "grant_id", id, "application_id", g.ApplicationID)
	return nil
}

// ListByGroup returns the group's grants. Visible to group members.
func (s *GrantService) ListByGroup(ctx context.Context, p domain.Principal, groupID int64, page domain.PageRequest) ([]domain.ApplicationGrant, string, error) {
	roles, err := s.resolver.Resolve(ctx, p, groupID)
	if err != nil {
		return nil, "", err
	}
	if !roles.IsMember() {
		return nil, "", domain.ErrForbidden("grant listing requires group membership")
	}

	grantList, total, err := s.grants.ListByGroup(ctx, groupID, page)
	if err != nil {
		return nil, "", err
	}
	return grantList, domain.NextPageToken(page.Offset(), page.Limit(), total), nil
}
