package registry

import (
	"context"
	"errors"
	"log/slog"

	"permissions-manager/internal/domain"
	"permissions-manager/internal/service/security"
)

// PermissionService links applications to topics. Access onto a topic is
// granted by the topic's owning group: creating a permission requires topic
// admin there. Removal is also open to the application side.
type PermissionService struct {
	perms    domain.ApplicationPermissionRepository
	topics   domain.TopicRepository
	apps     domain.ApplicationRepository
	docs     domain.GrantDocumentRepository
	resolver *security.Resolver
	notifier domain.ChangeNotifier
	logger   *slog.Logger
}

func NewPermissionService(perms domain.ApplicationPermissionRepository, topics domain.TopicRepository, apps domain.ApplicationRepository, docs domain.GrantDocumentRepository, resolver *security.Resolver, notifier domain.ChangeNotifier, logger *slog.Logger) *PermissionService {
	return &PermissionService{perms: perms, topics: topics, apps: apps, docs: docs, resolver: resolver, notifier: notifier, logger: logger}
}

// Create grants the application read and/or write access onto the topic.
// At most one permission exists per (application, topic) pair.
func (s *PermissionService) Create(ctx context.Context, p domain.Principal, req *domain.ApplicationPermission) (*domain.ApplicationPermission, error) {
	topic, err := s.topics.GetByID(ctx, req.TopicID)
	if err != nil {
		return nil, err
	}
	if _, err := s.apps.GetByID(ctx, req.ApplicationID); err != nil {
		return nil, err
	}

	roles, err := s.resolver.Resolve(ctx, p, topic.GroupID)
	if err != nil {
		return nil, err
	}
	if err := security.Authorize(roles, domain.ActionCreate, domain.ResourceTopic); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	created, err := s.perms.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	// The cached grant document no longer reflects the permission set.
	if err := s.docs.Invalidate(ctx, req.ApplicationID); err != nil {
		return nil, err
	}
	s.notifier.Publish(domain.EntityApplication, req.ApplicationID, domain.EventApplicationUpdated)
	s.logger.Info("permission created",
		"permission_id", created.ID, "application_id", req.ApplicationID,
		"topic", topic.CanonicalName(), "read", req.CanRead, "write", req.CanWrite)
	return created, nil
}

// Delete revokes the permission. Either side may revoke: topic admin of the
// topic's group or application admin of the application's group.
func (s *PermissionService) Delete(ctx context.Context, p domain.Principal, id int64) error {
	perm, err := s.perms.GetByID(ctx, id)
	if err != nil {
		return err
	}
	topic, err := s.topics.GetByID(ctx, perm.TopicID)
	if err != nil {
		return err
	}
	app, err := s.apps.GetByID(ctx, perm.ApplicationID)
	if err != nil {
		return err
	}

	topicRoles, err := s.resolver.Resolve(ctx, p, topic.GroupID)
	if err != nil {
		return err
	}
	topicErr := security.Authorize(topicRoles, domain.ActionDelete, domain.ResourceTopic)
	if topicErr != nil {
		appRoles, err := s.resolver.Resolve(ctx, p, app.GroupID)
		if err != nil {
			return err
		}
		if appErr := security.Authorize(appRoles, domain.ActionDelete, domain.ResourceApplication); appErr != nil {
			// Report the harsher of the two failures: forbidden beats
			// unauthorized when the caller holds a role on either side.
			var forbidden *domain.ForbiddenError
			if errors.As(topicErr, &forbidden) || errors.As(appErr, &forbidden) {
				return domain.ErrForbidden("insufficient role to revoke permission %d", id)
			}
			return appErr
		}
	}

	if err := s.perms.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.docs.Invalidate(ctx, perm.ApplicationID); err != nil {
		return err
	}
	s.notifier.Publish(domain.EntityApplication, perm.ApplicationID, domain.EventApplicationUpdated)
	s.logger.Info("permission deleted", "permission_id", id, "application_id", perm.ApplicationID)
	return nil
}

// ListForApplication returns the application's permissions joined with
// their topics. Visible to members of the application's group.
func (s *PermissionService) ListForApplication(ctx context.Context, p domain.Principal, applicationID int64) ([]domain.ResolvedPermission, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	roles, err := s.resolver.Resolve(ctx, p, app.GroupID)
	if err != nil {
		return nil, err
	}
	if !roles.IsMember() {
		return nil, domain.ErrForbidden("permission listing requires membership in the application's group")
	}
	return s.perms.ListResolved(ctx, applicationID)
}
