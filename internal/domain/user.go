package domain

import (
	"net/mail"
	"strings"
	"time"
)

// User is an identity known to the permissions manager. Users with IsAdmin
// set are super admins and bypass all group-scoped role checks.
type User struct {
	ID        int64
	Email     string
	IsAdmin   bool
	CreatedAt time.Time
}

// NormalizeEmail lower-cases and trims an email address for storage and
// comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that the address is non-blank and well-formed.
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrValidation(CodeEmailBlank, "email cannot be blank")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrValidation(CodeInvalidEmailFormat, "email %q is not a valid address", email)
	}
	return nil
}

// GroupUser links one User to one Group with per-group role flags.
// At most one membership exists per (group, user) pair.
type GroupUser struct {
	ID               int64
	GroupID          int64
	UserID           int64
	UserEmail        string
	GroupAdmin       bool
	TopicAdmin       bool
	ApplicationAdmin bool
}

// AddMemberRequest holds parameters for adding a user to a group.
type AddMemberRequest struct {
	GroupID          int64
	Email            string
	GroupAdmin       bool
	TopicAdmin       bool
	ApplicationAdmin bool
}

// Validate checks that the request is well-formed.
func (r *AddMemberRequest) Validate() error {
	if r.GroupID == 0 {
		return ErrValidation(CodeMembershipRequiresGroup, "membership requires a group association")
	}
	return ValidateEmail(r.Email)
}

// UpdateMemberRequest alters the role flags of an existing membership.
type UpdateMemberRequest struct {
	ID               int64
	GroupAdmin       bool
	TopicAdmin       bool
	ApplicationAdmin bool
}
