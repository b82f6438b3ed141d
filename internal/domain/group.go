package domain

import (
	"strings"
	"time"
)

// MaxDescriptionLength bounds group, topic and application descriptions.
const MaxDescriptionLength = 4000

// MinNameLength is the minimum length of entity names after trimming.
const MinNameLength = 3

// Group is the ownership and authorization scope containing users (via
// membership), topics, applications and grant durations. Deleting a group
// cascades over everything it owns.
type Group struct {
	ID          int64
	Name        string
	Description string
	IsPublic    bool
	CreatedAt   time.Time
}

// CreateGroupRequest holds parameters for creating or updating a group.
type CreateGroupRequest struct {
	Name        string
	Description string
	IsPublic    bool
}

// Validate trims the name and checks the group constraints. The trimmed name
// is what gets persisted; uniqueness is a repository concern.
func (r *CreateGroupRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrValidation(CodeGroupNameBlank, "group name cannot be blank")
	}
	if len(r.Name) < MinNameLength {
		return ErrValidation(CodeGroupNameTooShort, "group name must be at least %d characters", MinNameLength)
	}
	if len(r.Description) > MaxDescriptionLength {
		return ErrValidation(CodeGroupDescriptionLimit, "group description exceeds %d characters", MaxDescriptionLength)
	}
	return nil
}

// GroupFilter narrows group listings. Filter is a case-insensitive substring
// match on name and description. Role, when set, restricts the listing to
// groups where the caller holds that role.
type GroupFilter struct {
	Filter string
	Role   string // "" | RoleFilterGroupAdmin | RoleFilterApplicationAdmin
}

// Role filter values accepted by group listings.
const (
	RoleFilterGroupAdmin       = "groupAdmin"
	RoleFilterApplicationAdmin = "applicationAdmin"
)
