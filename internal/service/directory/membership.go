package directory

import (
	"context"
	"log/slog"

	"permissions-manager/internal/domain"
	"permissions-manager/internal/service/security"
)

// MembershipService manages group memberships. Membership changes require
// super admin or group admin of the target group.
type MembershipService struct {
	members  domain.GroupUserRepository
	users    domain.UserRepository
	groups   domain.GroupRepository
	resolver *security.Resolver
	logger   *slog.Logger
}

func NewMembershipService(members domain.GroupUserRepository, users domain.UserRepository, groups domain.GroupRepository, resolver *security.Resolver, logger *slog.Logger) *MembershipService {
	return &MembershipService{members: members, users: users, groups: groups, resolver: resolver, logger: logger}
}

func (s *MembershipService) authorize(ctx context.Context, p domain.Principal, groupID int64) error {
	roles, err := s.resolver.Resolve(ctx, p, groupID)
	if err != nil {
		return err
	}
	return security.Authorize(roles, domain.ActionManageMembership, domain.ResourceMembership)
}

// Add puts a user into a group with the given role flags. The user is
// created on first sight of the address.
func (s *MembershipService) Add(ctx context.Context, p domain.Principal, req domain.AddMemberRequest) (*domain.GroupUser, error) {
	if err := s.authorize(ctx, p, req.GroupID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.groups.GetByID(ctx, req.GroupID); err != nil {
		return nil, err
	}

	u, err := s.users.GetByEmail(ctx, req.Email)
	if domain.IsNotFound(err) {
		u, err = s.users.Create(ctx, &domain.User{Email: req.Email})
	}
	if err != nil {
		return nil, err
	}

	m, err := s.members.Add(ctx, &domain.GroupUser{
		GroupID:          req.GroupID,
		UserID:           u.ID,
		GroupAdmin:       req.GroupAdmin,
		TopicAdmin:       req.TopicAdmin,
		ApplicationAdmin: req.ApplicationAdmin,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("member added", "group_id", req.GroupID, "user_id", u.ID)
	return m, nil
}

// UpdateRoles alters an existing membership's role flags.
func (s *MembershipService) UpdateRoles(ctx context.Context, p domain.Principal, req domain.UpdateMemberRequest) (*domain.GroupUser, error) {
	m, err := s.members.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, m.GroupID); err != nil {
		return nil, err
	}

	m.GroupAdmin = req.GroupAdmin
	m.TopicAdmin = req.TopicAdmin
	m.ApplicationAdmin = req.ApplicationAdmin
	updated, err := s.members.UpdateRoles(ctx, m)
	if err != nil {
		return nil, err
	}
	s.logger.Info("member roles updated", "membership_id", m.ID, "group_id", m.GroupID)
	return updated, nil
}

// Remove takes the user out of the group. A user left with no memberships
// and no super admin flag is removed entirely.
func (s *MembershipService) Remove(ctx context.Context, p domain.Principal, membershipID int64) error {
	m, err := s.members.GetByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, p, m.GroupID); err != nil {
		return err
	}

	if err := s.members.Delete(ctx, membershipID); err != nil {
		return err
	}
	deleted, err := s.users.DeleteIfOrphaned(ctx, m.UserID)
	if err != nil {
		return err
	}
	s.logger.Info("member removed", "membership_id", membershipID, "group_id", m.GroupID, "user_removed", deleted)
	return nil
}

// List returns the group's members. Visible to group members and super
// admins only.
func (s *MembershipService) List(ctx context.Context, p domain.Principal, groupID int64, page domain.PageRequest) ([]domain.GroupUser, string, error) {
	roles, err := s.resolver.Resolve(ctx, p, groupID)
	if err != nil {
		return nil, "", err
	}
	if !roles.IsMember() {
		return nil, "", domain.ErrForbidden("membership listing requires group membership")
	}

	members, total, err := s.members.ListByGroup(ctx, groupID, page)
	if err != nil {
		return nil, "", err
	}
	return members, domain.NextPageToken(page.Offset(), page.Limit(), total), nil
}
