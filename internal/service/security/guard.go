package security

import (
	"permissions-manager/internal/domain"
)

// Authorize decides whether a role set may perform an action on a resource
// kind. It is a pure function of its inputs.
//
// The failure mode distinguishes two cases: a caller holding no relevant
// role at all gets an UnauthorizedError, while a caller holding some role
// short of the required one gets a ForbiddenError.
func Authorize(roles domain.RoleSet, action domain.Action, resource domain.Resource) error {
	if roles.SuperAdmin {
		return nil
	}

	switch resource {
	case domain.ResourceAdmin:
		// The roster is off limits to everyone else, keyed on the action:
		// viewing or escalating is refused outright, while a removal
		// attempt by any signed-in caller comes back forbidden.
		if action == domain.ActionDelete {
			return domain.ErrForbidden("%s %s requires super admin", action, resource)
		}
		return domain.ErrUnauthorized("not authorized to %s %s", action, resource)

	case domain.ResourceGroup:
		switch action {
		case domain.ActionRead:
			return nil
		case domain.ActionUpdate:
			if roles.GroupAdmin {
				return nil
			}
		case domain.ActionCreate, domain.ActionDelete, domain.ActionListAll, domain.ActionEscalateToAdmin:
			// Group lifecycle stays with super admins. Group admins may
			// reshape their group but not create or destroy it.
		}

	case domain.ResourceMembership:
		if roles.GroupAdmin {
			return nil
		}

	case domain.ResourceTopic:
		if action == domain.ActionRead {
			return nil
		}
		if roles.GroupAdmin || roles.TopicAdmin {
			return nil
		}

	case domain.ResourceApplication:
		if action == domain.ActionRead {
			return nil
		}
		if roles.GroupAdmin || roles.ApplicationAdmin {
			return nil
		}

	case domain.ResourceGrantDuration:
		if action == domain.ActionRead {
			return nil
		}
		if roles.GroupAdmin {
			return nil
		}

	case domain.ResourceApplicationGrant:
		if action == domain.ActionRead {
			return nil
		}
		if roles.GroupAdmin || roles.ApplicationAdmin {
			return nil
		}
	}

	if !roles.IsMember() && !roles.HasAnyAdmin() {
		return domain.ErrUnauthorized("not authorized to %s %s", action, resource)
	}
	return domain.ErrForbidden("insufficient role to %s %s", action, resource)
}
