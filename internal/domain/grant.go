package domain

import (
	"strings"
	"time"
)

// GrantDuration is a named validity length owned by a group. Application
// grants reference a duration; the shortest duration across an application's
// grants bounds its compiled document's outer validity window.
type GrantDuration struct {
	ID              int64
	GroupID         int64
	Name            string
	DurationSeconds int64
	CreatedAt       time.Time
}

// CreateGrantDurationRequest holds parameters for creating a grant duration.
type CreateGrantDurationRequest struct {
	GroupID         int64
	Name            string
	DurationSeconds int64
}

// Validate trims the name and checks the duration constraints.
func (r *CreateGrantDurationRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrValidation(CodeDurationNameBlank, "grant duration name cannot be blank")
	}
	if len(r.Name) < MinNameLength {
		return ErrValidation(CodeDurationNameTooShort, "grant duration name must be at least %d characters", MinNameLength)
	}
	if r.DurationSeconds <= 0 {
		return ErrValidation(CodeDurationNotPositive, "grant duration must be positive")
	}
	if r.GroupID == 0 {
		return ErrValidation(CodeDurationRequiresGroup, "grant duration requires a group association")
	}
	return nil
}

// ApplicationGrant names a time-bounded permission issuance for one
// application, tying it to a group and a grant duration. The grant name is
// unique within its owning group.
type ApplicationGrant struct {
	ID              int64
	Name            string
	ApplicationID   int64
	GroupID         int64
	GrantDurationID int64
	Subject         string
	CreatedAt       time.Time
}

// CreateApplicationGrantRequest holds parameters for creating an application grant.
type CreateApplicationGrantRequest struct {
	Name            string
	ApplicationID   int64
	GroupID         int64
	GrantDurationID int64
	Subject         string
}

// Validate trims the name and checks the grant constraints.
func (r *CreateApplicationGrantRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrValidation(CodeGrantNameBlank, "grant name cannot be blank")
	}
	if len(r.Name) < MinNameLength {
		return ErrValidation(CodeGrantNameTooShort, "grant name must be at least %d characters", MinNameLength)
	}
	if r.GrantDurationID == 0 {
		return ErrValidation(CodeGrantRequiresDuration, "grant requires a grant duration association")
	}
	if strings.TrimSpace(r.Subject) == "" {
		return ErrValidation(CodeGrantSubjectBlank, "grant subject cannot be blank")
	}
	return nil
}

// GrantDocument is a materialized permissions XML document for one
// application, cached with an etag for conditional fetches.
type GrantDocument struct {
	ApplicationID int64
	Document      string
	ETag          string
	CompiledAt    time.Time
}
