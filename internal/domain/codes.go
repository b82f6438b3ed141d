package domain

// Machine-readable response codes. Callers distinguish failure reasons by
// these codes, not by message text.
const (
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"

	// email
	CodeInvalidEmailFormat = "email.is-not-format"
	CodeEmailBlank         = "email.cannot-be-blank-or-null"

	// user / admin
	CodeUserAlreadyExists = "user.exists"
	CodeUserNotFound      = "user.not-found"

	// group
	CodeGroupNotFound         = "group.not-found"
	CodeGroupAlreadyExists    = "group.exists"
	CodeGroupNameBlank        = "group.name.cannot-be-blank-or-null"
	CodeGroupNameTooShort     = "group.name.cannot-be-less-than-three-characters"
	CodeGroupDescriptionLimit = "group.description.cannot-be-more-than-four-thousand-characters"

	// group membership
	CodeMembershipNotFound      = "group-membership.not-found"
	CodeMembershipAlreadyExists = "group-membership.exists"
	CodeMembershipRequiresGroup = "group-membership.requires-group-association"

	// topic
	CodeTopicNotFound           = "topic.not-found"
	CodeTopicAlreadyExists      = "topic.exists"
	CodeTopicNameBlank          = "topic.name.cannot-be-blank-or-null"
	CodeTopicDescriptionLimit   = "topic.description.cannot-be-more-than-four-thousand-characters"
	CodeTopicNameTooShort       = "topic.name.cannot-be-less-than-three-characters"
	CodeTopicRequiresGroup      = "topic.requires-group-association"
	CodeTopicGroupImmutable     = "topic.cannot-update-group-association"
	CodeTopicNameImmutable      = "topic.name.update-not-allowed"
	CodeTopicKindImmutable      = "topic.kind.update-not-allowed"
	CodeTopicInvalidKind        = "topic.kind.is-not-valid"
	CodeTopicPublicPrivateGroup = "topic.cannot-create-nor-update-under-private-group"

	// application
	CodeApplicationNotFound           = "application.not-found"
	CodeApplicationAlreadyExists      = "application.exists"
	CodeApplicationNameBlank          = "application.name.cannot-be-blank-or-null"
	CodeApplicationNameTooShort       = "application.name.cannot-be-less-than-three-characters"
	CodeApplicationDescriptionLimit   = "application.description.cannot-be-more-than-four-thousand-characters"
	CodeApplicationRequiresGroup      = "application.requires-group-association"
	CodeApplicationGroupImmutable     = "application.cannot-update-group-association"
	CodeApplicationPublicPrivateGroup = "application.cannot-create-nor-update-under-private-group"

	// application permission
	CodePermissionNotFound      = "application.permission.not-found"
	CodePermissionAlreadyExists = "application.permission.exists"
	CodePermissionNoAccess      = "application.permission.requires-read-or-write"

	// grant duration
	CodeDurationNotFound      = "grant-duration.not-found"
	CodeDurationAlreadyExists = "grant-duration.exists"
	CodeDurationNameBlank     = "grant-duration.name.cannot-be-blank-or-null"
	CodeDurationNameTooShort  = "grant-duration.name.cannot-be-less-than-three-characters"
	CodeDurationNotPositive   = "grant-duration.duration.must-be-positive"
	CodeDurationRequiresGroup = "grant-duration.requires-group-association"
	CodeDurationInUse         = "grant-duration.has-one-or-more-grant-associations"

	// application grant
	CodeGrantNotFound          = "application-grant.not-found"
	CodeGrantAlreadyExists     = "application-grant.exists"
	CodeGrantNameBlank         = "application-grant.name.cannot-be-blank-or-null"
	CodeGrantNameTooShort      = "application-grant.name.cannot-be-less-than-three-characters"
	CodeGrantRequiresDuration  = "application-grant.requires-grant-duration-association"
	CodeGrantDurationWrongGrp  = "application-grant.grant-duration.not.same-group"
	CodeGrantSubjectBlank      = "application-grant.subject.cannot-be-blank-or-null"

	// grant document
	CodeGrantDocumentNotFound = "grant-document.not-found"
	CodeGrantCompileFailed    = "grant.compile-failed"
)
