package domain

import (
	"strings"
	"time"
)

// Application is a pub/sub participant owned by exactly one group. Its
// resolved topic permissions are compiled into a signed grant document.
type Application struct {
	ID          int64
	Name        string
	Description string
	IsPublic    bool
	GroupID     int64
	GroupName   string
	CreatedAt   time.Time
}

// CreateApplicationRequest holds parameters for creating an application.
type CreateApplicationRequest struct {
	Name        string
	Description string
	IsPublic    bool
	GroupID     int64
}

// Validate trims the name and checks the application constraints.
func (r *CreateApplicationRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrValidation(CodeApplicationNameBlank, "application name cannot be blank")
	}
	if len(r.Name) < MinNameLength {
		return ErrValidation(CodeApplicationNameTooShort, "application name must be at least %d characters", MinNameLength)
	}
	if len(r.Description) > MaxDescriptionLength {
		return ErrValidation(CodeApplicationDescriptionLimit, "application description exceeds %d characters", MaxDescriptionLength)
	}
	if r.GroupID == 0 {
		return ErrValidation(CodeApplicationRequiresGroup, "application requires a group association")
	}
	return nil
}

// UpdateApplicationRequest holds the mutable application fields. Name and
// group association are immutable after creation.
type UpdateApplicationRequest struct {
	ID          int64
	Description string
	IsPublic    bool
}

// PartitionKindRead and PartitionKindWrite tag which side of a permission a
// partition list belongs to.
const (
	PartitionKindRead  = "read"
	PartitionKindWrite = "write"
)

// ApplicationPermission is an explicit read/write grant of one application
// onto one topic, unique per (application, topic) pair. Partitions are
// ordered; validity, when set, overrides the grant document's outer window
// for this entry only.
type ApplicationPermission struct {
	ID              int64
	ApplicationID   int64
	TopicID         int64
	CanRead         bool
	CanWrite        bool
	ReadPartitions  []string
	WritePartitions []string
	ValidStart      *time.Time
	ValidEnd        *time.Time
}

// Validate checks that the permission grants at least one access direction.
func (p *ApplicationPermission) Validate() error {
	if !p.CanRead && !p.CanWrite {
		return ErrValidation(CodePermissionNoAccess, "permission must grant read or write access")
	}
	return nil
}

// ResolvedPermission is an ApplicationPermission joined with its topic,
// ready for grant compilation. Ordering follows the repository's stable
// listing order.
type ResolvedPermission struct {
	Permission ApplicationPermission
	Topic      Topic
}
