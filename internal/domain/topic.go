package domain

import (
	"fmt"
	"strings"
	"time"
)

// TopicKind is the fixed enumeration of topic categories.
type TopicKind string

// Topic kinds.
const (
	TopicKindB TopicKind = "B"
	TopicKindC TopicKind = "C"
)

// TopicKinds lists all valid kinds, in declaration order.
func TopicKinds() []TopicKind {
	return []TopicKind{TopicKindB, TopicKindC}
}

// Valid reports whether k is a member of the enumeration.
func (k TopicKind) Valid() bool {
	return k == TopicKindB || k == TopicKindC
}

// Topic is a named pub/sub channel owned by exactly one group. A topic can
// only be public while its owning group is public.
type Topic struct {
	ID          int64
	Name        string
	Kind        TopicKind
	Description string
	IsPublic    bool
	GroupID     int64
	GroupName   string
	CreatedAt   time.Time
}

// CanonicalName is the globally unique wire name of the topic.
func (t *Topic) CanonicalName() string {
	return fmt.Sprintf("%s.%d.%s", t.Kind, t.GroupID, t.Name)
}

// CreateTopicRequest holds parameters for creating a topic.
type CreateTopicRequest struct {
	Name        string
	Kind        TopicKind
	Description string
	IsPublic    bool
	GroupID     int64
}

// Validate trims the name and checks the topic constraints.
func (r *CreateTopicRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrValidation(CodeTopicNameBlank, "topic name cannot be blank")
	}
	if len(r.Name) < MinNameLength {
		return ErrValidation(CodeTopicNameTooShort, "topic name must be at least %d characters", MinNameLength)
	}
	if len(r.Description) > MaxDescriptionLength {
		return ErrValidation(CodeTopicDescriptionLimit, "topic description exceeds %d characters", MaxDescriptionLength)
	}
	if !r.Kind.Valid() {
		return ErrValidation(CodeTopicInvalidKind, "topic kind %q is not valid", r.Kind)
	}
	if r.GroupID == 0 {
		return ErrValidation(CodeTopicRequiresGroup, "topic requires a group association")
	}
	return nil
}

// UpdateTopicRequest holds the mutable topic fields. Name, kind and group
// association are immutable after creation.
type UpdateTopicRequest struct {
	ID          int64
	Description string
	IsPublic    bool
}
