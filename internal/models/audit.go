package models

import "time"

// AuditStream is the logical stream an entry belongs to.
type AuditStream string

const (
	StreamAuth      AuditStream = "auth"
	StreamAdmin     AuditStream = "admin"
	StreamOperation AuditStream = "operation"
)

// Event types written to the audit log.
const (
	EventSuccessfulLogin        = "Successful Login"
	EventFailedLoginDeactivated = "Failed Login: Deactivated User"
	EventFailedLoginLocked      = "Failed Login: Locked User"
	EventFailedLoginBadPassword = "Failed Login: Wrong Password"
	EventAccountLocked          = "Account Locked"
	EventPasswordChange         = "Password Change"

	EventCreateUser     = "Create User"
	EventEditUser       = "Edit User"
	EventLockUser       = "Lock User"
	EventUnlockUser     = "Unlock User"
	EventDeactivateUser = "Deactivate User"

	EventViewSource   = "View Source"
	EventCreateSource = "Create Source"
	EventEditSource   = "Edit Source"
)

// AttributeChange is the optional {field, old, new} triple of an entry.
type AttributeChange struct {
	Field    string
	OldValue string
	NewValue string
}

// AuditEntry is an immutable record of a security or data relevant action.
// SubjectID is the affected user for auth/admin entries and the source id
// for operation entries.
type AuditEntry struct {
	ID        int64
	Timestamp time.Time
	Stream    AuditStream
	EventType string
	ActorID   int64
	SubjectID int64
	Change    *AttributeChange
}
