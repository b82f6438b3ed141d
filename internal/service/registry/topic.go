// Package registry manages topics, applications and the permissions linking
// them.
package registry

import (
	"context"
	"log/slog"

	"permissions-manager/internal/domain"
	"permissions-manager/internal/service/security"
)

// TopicService owns the topic lifecycle. Name, kind and group association
// are fixed at creation.
type TopicService struct {
	topics   domain.TopicRepository
	groups   domain.GroupRepository
	members  domain.GroupUserRepository
	resolver *security.Resolver
	notifier domain.ChangeNotifier
	logger   *slog.Logger
}

func NewTopicService(topics domain.TopicRepository, groups domain.GroupRepository, members domain.GroupUserRepository, resolver *security.Resolver, notifier domain.ChangeNotifier, logger *slog.Logger) *TopicService {
	return &TopicService{topics: topics, groups: groups, members: members, resolver: resolver, notifier: notifier, logger: logger}
}

// Create makes a new topic in the group. A public topic cannot live under a
// private group; such a request is rejected outright rather than silently
// downgraded.
func (s *TopicService) Create(ctx context.Context, p domain.Principal, req domain.CreateTopicRequest) (*domain.Topic, error) {
	roles, err := s.resolver.Resolve(ctx, p, req.GroupID)
	if err != nil {
		return nil, err
	}
	if err := security.Authorize(roles, domain.ActionCreate, domain.ResourceTopic); err != nil {
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
		return nil, domain.ErrValidation(domain.CodeTopicPublicPrivateGroup,
			"topic cannot be public under private group %q", g.Name)
	}

	t, err := s.topics.Create(ctx, &domain.Topic{
		Name:        req.Name,
		Kind:        req.Kind,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		GroupID:     req.GroupID,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("topic created", "topic_id", t.ID, "group_id", t.GroupID, "canonical", t.CanonicalName())
	return t, nil
}

// Get returns the topic if the caller may see it: public topics to anyone
// authenticated, private ones to group members and super admins.
func (s *TopicService) Get(ctx context.Context, p domain.Principal, id int64) (*domain.Topic, error) {
	t, err := s.topics.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsPublic {
		return t, nil
	}
	roles, err := s.resolver.Resolve(ctx, p, t.GroupID)
	if err != nil {
		return nil, err
	}
	if !roles.IsMember() {
		return nil, domain.ErrNotFound(domain.CodeTopicNotFound, "topic %d not found", id)
	}
	return t, nil
}

// Update alters the topic's description and visibility. The same
// public-under-private rejection applies as on create.
func (s *TopicService) Update(ctx context.Context, p domain.Principal, req domain.UpdateTopicRequest) (*domain.Topic, error) {
	t, err := s.topics.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	roles, err := s.resolver.Resolve(ctx, p, t.GroupID)
	if err != nil {
		return nil, err
	}
	if err := security.Authorize(roles, domain.ActionUpdate, domain.ResourceTopic); err != nil {
		return nil, err
	}
	if len(req.Description) > domain.MaxDescriptionLength {
		return nil, domain.ErrValidation(domain.CodeTopicDescriptionLimit,
			"topic description exceeds %d characters", domain.MaxDescriptionLength)
	}

	if req.IsPublic {
		g, err := s.groups.GetByID(ctx, t.GroupID)
		if err != nil {
			return nil, err
		}
		if !g.IsPublic {
			return nil, domain.ErrValidation(domain.CodeTopicPublicPrivateGroup,
				"topic cannot be public under private group %q", g.Name)
		}
	}

	t.Description = req.Description
	t.IsPublic = req.IsPublic
	updated, err := s.topics.Update(ctx, t)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(domain.EntityTopic, t.ID, domain.EventTopicUpdated)
	return updated, nil
}

// Delete removes the topic and the permissions referencing it.
func (s *TopicService) Delete(ctx context.Context, p domain.Principal, id int64) error {
	t, err := s.topics.GetByID(ctx, id)
	if err != nil {
		return err
	}
	roles, err := s.resolver.Resolve(ctx, p, t.GroupID)
	if err != nil {
		return err
	}
	if err := security.Authorize(roles, domain.ActionDelete, domain.ResourceTopic); err != nil {
		return err
	}

	if err := s.topics.Delete(ctx, id); err != nil {
		return err
	}
	s.notifier.Publish(domain.EntityTopic, id, domain.EventTopicDeleted)
	s.logger.Info("topic deleted", "topic_id", id, "group_id", t.GroupID)
	return nil
}

// List returns topics visible to the caller: everything for super admins,
// member-group topics plus public topics otherwise.
func (s *TopicService) List(ctx context.Context, p domain.Principal, filter string, page domain.PageRequest) ([]domain.Topic, string, error) {
	groupIDs, err := visibleGroupIDs(ctx, s.members, p)
	if err != nil {
		return nil, "", err
	}
	topics, total, err := s.topics.List(ctx, groupIDs, filter, page)
	if err != nil {
		return nil, "", err
	}
	return topics, domain.NextPageToken(page.Offset(), page.Limit(), total), nil
}

// visibleGroupIDs computes the listing scope: nil for super admins (no
// scoping), otherwise the caller's member group ids.
func visibleGroupIDs(ctx context.Context, members domain.GroupUserRepository, p domain.Principal) ([]int64, error) {
	if p.IsAdmin {
		return nil, nil
	}
	return members.ListGroupIDs(ctx, p.UserID)
}
