package directory

import (
	"context"
	"log/slog"

	"permissions-manager/internal/domain"
	"permissions-manager/internal/service/security"
)

// AdminService manages the super admin roster. Every operation here
// requires the caller to already be a super admin.
type AdminService struct {
	users  domain.UserRepository
	logger *slog.Logger
}

func NewAdminService(users domain.UserRepository, logger *slog.Logger) *AdminService {
	return &AdminService{users: users, logger: logger}
}

// authorize checks roster access. The guard keys the failure on the action:
// viewing and escalation are unauthorized for anyone short of super admin,
// removal attempts are forbidden.
func (s *AdminService) authorize(p domain.Principal, action domain.Action) error {
	return security.Authorize(domain.RoleSet{SuperAdmin: p.IsAdmin}, action, domain.ResourceAdmin)
}

// List returns super admins, optionally filtered by email substring.
func (s *AdminService) List(ctx context.Context, p domain.Principal, filter string, page domain.PageRequest) ([]domain.User, string, error) {
	if err := s.authorize(p, domain.ActionListAll); err != nil {
		return nil, "", err
	}
	admins, total, err := s.users.ListAdmins(ctx, filter, page)
	if err != nil {
		return nil, "", err
	}
	return admins, domain.NextPageToken(page.Offset(), page.Limit(), total), nil
}

// Add escalates the address to super admin, creating the user if it does
// not exist yet.
func (s *AdminService) Add(ctx context.Context, p domain.Principal, email string) (*domain.User, error) {
	if err := s.authorize(p, domain.ActionCreate); err != nil {
		return nil, err
	}
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin {
			return nil, domain.ErrConflict(domain.CodeUserAlreadyExists, "user %q is already an admin", existing.Email)
		}
		if err := s.users.SetAdmin(ctx, existing.ID, true); err != nil {
			return nil, err
		}
		s.logger.Info("user escalated to super admin", "user_id", existing.ID)
		return s.users.GetByID(ctx, existing.ID)
	case domain.IsNotFound(err):
		u, err := s.users.Create(ctx, &domain.User{Email: email, IsAdmin: true})
		if err != nil {
			return nil, err
		}
		s.logger.Info("super admin created", "user_id", u.ID)
		return u, nil
	default:
		return nil, err
	}
}

// Revoke drops the super admin flag. A user left with no memberships is
// removed entirely.
func (s *AdminService) Revoke(ctx context.Context, p domain.Principal, userID int64) error {
	if err := s.authorize(p, domain.ActionDelete); err != nil {
		return err
	}

	if err := s.users.SetAdmin(ctx, userID, false); err != nil {
		return err
	}
	deleted, err := s.users.DeleteIfOrphaned(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.Info("super admin revoked", "user_id", userID, "user_removed", deleted)
	return nil
}
