package domain

import "context"

// UserRepository provides CRUD operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListAdmins(ctx context.Context, filter string, page PageRequest) ([]User, int64, error)
	SetAdmin(ctx context.Context, id int64, isAdmin bool) error
	Delete(ctx context.Context, id int64) error
	// DeleteIfOrphaned removes the user when it holds no memberships and is
	// not a super admin. Reports whether a row was deleted.
	DeleteIfOrphaned(ctx context.Context, id int64) (bool, error)
}

// GroupRepository provides CRUD and query operations for groups. Delete and
// UpdateVisibility run their cascades inside a single transaction.
type GroupRepository interface {
	Create(ctx context.Context, g *Group) (*Group, error)
	GetByID(ctx context.Context, id int64) (*Group, error)
	GetByName(ctx context.Context, name string) (*Group, error)
	Update(ctx context.Context, g *Group) (*Group, error)
	// UpdateVisibility sets the group's visibility and, on a public→private
	// transition, forces every owned topic and application private in the
	// same transaction. It re-checks the visibility invariant before commit.
	UpdateVisibility(ctx context.Context, id int64, isPublic bool) error
	// Delete removes the group and everything it owns, then removes users
	// orphaned by the membership deletions.
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context, f GroupFilter, page PageRequest) ([]Group, int64, error)
	ListForUser(ctx context.Context, userID int64, f GroupFilter, page PageRequest) ([]Group, int64, error)
}

// GroupUserRepository provides membership operations.
type GroupUserRepository interface {
	Add(ctx context.Context, m *GroupUser) (*GroupUser, error)
	GetByID(ctx context.Context, id int64) (*GroupUser, error)
	Get(ctx context.Context, groupID, userID int64) (*GroupUser, error)
	UpdateRoles(ctx context.Context, m *GroupUser) (*GroupUser, error)
	Delete(ctx context.Context, id int64) error
	ListByGroup(ctx context.Context, groupID int64, page PageRequest) ([]GroupUser, int64, error)
	// ListGroupIDs returns the ids of every group the user belongs to.
	ListGroupIDs(ctx context.Context, userID int64) ([]int64, error)
}

// TopicRepository provides CRUD and query operations for topics.
type TopicRepository interface {
	Create(ctx context.Context, t *Topic) (*Topic, error)
	GetByID(ctx context.Context, id int64) (*Topic, error)
	GetByGroupAndName(ctx context.Context, groupID int64, name string) (*Topic, error)
	Update(ctx context.Context, t *Topic) (*Topic, error)
	// Delete removes the topic and the application permissions referencing it.
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, groupIDs []int64, filter string, page PageRequest) ([]Topic, int64, error)
}

// ApplicationRepository provides CRUD and query operations for applications.
type ApplicationRepository interface {
	Create(ctx context.Context, a *Application) (*Application, error)
	GetByID(ctx context.Context, id int64) (*Application, error)
	GetByGroupAndName(ctx context.Context, groupID int64, name string) (*Application, error)
	Update(ctx context.Context, a *Application) (*Application, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, groupIDs []int64, filter string, page PageRequest) ([]Application, int64, error)
}

// ApplicationPermissionRepository links applications to topics.
type ApplicationPermissionRepository interface {
	Create(ctx context.Context, p *ApplicationPermission) (*ApplicationPermission, error)
	GetByID(ctx context.Context, id int64) (*ApplicationPermission, error)
	Exists(ctx context.Context, applicationID, topicID int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	// ListResolved returns the application's permissions joined with their
	// topics, in stable creation order.
	ListResolved(ctx context.Context, applicationID int64) ([]ResolvedPermission, error)
}

// GrantDurationRepository provides CRUD operations for grant durations.
type GrantDurationRepository interface {
	Create(ctx context.Context, d *GrantDuration) (*GrantDuration, error)
	GetByID(ctx context.Context, id int64) (*GrantDuration, error)
	Update(ctx context.Context, d *GrantDuration) (*GrantDuration, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, groupID int64, page PageRequest) ([]GrantDuration, int64, error)
	CountGrants(ctx context.Context, durationID int64) (int64, error)
}

// ApplicationGrantRepository provides CRUD operations for application grants.
type ApplicationGrantRepository interface {
	Create(ctx context.Context, g *ApplicationGrant) (*ApplicationGrant, error)
	GetByID(ctx context.Context, id int64) (*ApplicationGrant, error)
	Delete(ctx context.Context, id int64) error
	ListByApplication(ctx context.Context, applicationID int64) ([]ApplicationGrant, error)
	ListByGroup(ctx context.Context, groupID int64, page PageRequest) ([]ApplicationGrant, int64, error)
}

// GrantDocumentRepository caches materialized grant documents.
type GrantDocumentRepository interface {
	Put(ctx context.Context, d *GrantDocument) error
	Get(ctx context.Context, applicationID int64) (*GrantDocument, error)
	// Invalidate drops the application's cached document so the next fetch
	// re-materializes it. Invalidating an uncached application is a no-op.
	Invalidate(ctx context.Context, applicationID int64) error
	// ListStaleApplicationIDs returns ids of applications holding at least
	// one grant, for periodic re-materialization.
	ListStaleApplicationIDs(ctx context.Context) ([]int64, error)
}

// Entity type keys used by the change notifier.
const (
	EntityGroup       = "group"
	EntityTopic       = "topic"
	EntityApplication = "application"
)

// Event tags delivered verbatim to live subscribers.
const (
	EventGroupUpdated       = "GROUP_UPDATED"
	EventGroupDeleted       = "GROUP_DELETED"
	EventTopicUpdated       = "TOPIC_UPDATED"
	EventTopicDeleted       = "TOPIC_DELETED"
	EventApplicationUpdated = "APPLICATION_UPDATED"
	EventApplicationDeleted = "APPLICATION_DELETED"
)

// ChangeNotifier fans entity change events out to live subscribers.
// Delivery is fire-and-forget and at-most-once; implementations must never
// block the mutation path or surface errors into it.
type ChangeNotifier interface {
	Publish(entityType string, entityID int64, eventTag string)
}

// NopNotifier discards all events. Useful in tests and CLI contexts.
type NopNotifier struct{}

// Publish implements ChangeNotifier.
func (NopNotifier) Publish(string, int64, string) {}
