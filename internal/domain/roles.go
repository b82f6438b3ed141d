package domain

// RoleSet is a principal's effective roles for one group. The zero value is
// NonMember. SuperAdmin subsumes every other role for every group.
type RoleSet struct {
	SuperAdmin       bool
	GroupAdmin       bool
	TopicAdmin       bool
	ApplicationAdmin bool
	Member           bool
}

// IsMember reports whether the principal holds any membership in the group.
func (r RoleSet) IsMember() bool {
	return r.SuperAdmin || r.Member
}

// HasAnyAdmin reports whether the principal holds any admin role at all,
// global or group-scoped.
func (r RoleSet) HasAnyAdmin() bool {
	return r.SuperAdmin || r.GroupAdmin || r.TopicAdmin || r.ApplicationAdmin
}

// Action is the taxonomy of operations the authorization guard decides on.
type Action int

// Guarded actions.
const (
	ActionCreate Action = iota
	ActionRead
	ActionUpdate
	ActionDelete
	ActionListAll
	ActionEscalateToAdmin
	ActionManageMembership
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionRead:
		return "read"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionListAll:
		return "list-all"
	case ActionEscalateToAdmin:
		return "escalate-to-admin"
	case ActionManageMembership:
		return "manage-membership"
	default:
		return "unknown"
	}
}

// Resource is the kind of entity an action targets.
type Resource int

// Guarded resource kinds.
const (
	ResourceAdmin Resource = iota
	ResourceGroup
	ResourceMembership
	ResourceTopic
	ResourceApplication
	ResourceGrantDuration
	ResourceApplicationGrant
)

func (r Resource) String() string {
	switch r {
	case ResourceAdmin:
		return "admin"
	case ResourceGroup:
		return "group"
	case ResourceMembership:
		return "membership"
	case ResourceTopic:
		return "topic"
	case ResourceApplication:
		return "application"
	case ResourceGrantDuration:
		return "grant-duration"
	case ResourceApplicationGrant:
		return "application-grant"
	default:
		return "unknown"
	}
}
