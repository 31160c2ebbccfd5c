package domain

import "time"

// AuditAction labels the business operation an audit entry records.
type AuditAction string

const (
	AuditUserCreated         AuditAction = "USER_CREATED"
	AuditUserUpdated         AuditAction = "USER_UPDATED"
	AuditUserActivated       AuditAction = "USER_ACTIVATED"
	AuditUserDeactivated     AuditAction = "USER_DEACTIVATED"
	AuditLoginSuccess        AuditAction = "USER_LOGIN_SUCCESS"
	AuditLoginFailure        AuditAction = "USER_LOGIN_FAILURE"
	AuditLogout              AuditAction = "USER_LOGOUT"
	AuditPasswordChanged     AuditAction = "PASSWORD_CHANGED"
	AuditPasswordResetReq    AuditAction = "PASSWORD_RESET_REQUEST"
	AuditPasswordResetDone   AuditAction = "PASSWORD_RESET_SUCCESS"
	AuditRoleCreated         AuditAction = "ROLE_CREATED"
	AuditRoleUpdated         AuditAction = "ROLE_UPDATED"
	AuditRoleDeleted         AuditAction = "ROLE_DELETED"
	AuditRoleAssigned        AuditAction = "ROLE_ASSIGNED"
	AuditRoleRevoked         AuditAction = "ROLE_REVOKED"
	AuditPermissionCreated   AuditAction = "PERMISSION_CREATED"
	AuditPermissionGranted   AuditAction = "PERMISSION_GRANTED"
	AuditSessionsRevoked     AuditAction = "SESSIONS_REVOKED"
	AuditUnauthorizedAttempt AuditAction = "UNAUTHORIZED_ACCESS_ATTEMPT"
)

// Resource types referenced by audit entries.
const (
	ResourceTypeUser       = "USER"
	ResourceTypeRole       = "ROLE"
	ResourceTypePermission = "PERMISSION"
	ResourceTypeSession    = "SESSION"
)

// AuditLogEntry is an immutable, append-only record of an authentication
// event or a permission-gated mutation. Application logic never updates or
// deletes entries.
type AuditLogEntry struct {
	ID           string
	UserID       *string
	Action       AuditAction
	ResourceType string
	ResourceID   *string
	OldValues    map[string]any
	NewValues    map[string]any
	IPAddress    *string
	UserAgent    *string
	CreatedAt    time.Time
}

// AuditFilter narrows audit queries. Zero values mean "no constraint".
type AuditFilter struct {
	UserID       string
	Action       AuditAction
	ResourceType string
	From         time.Time
	To           time.Time
}

// AuditActionCount aggregates entry counts per action for reporting.
type AuditActionCount struct {
	Action AuditAction
	Count  int64
}

// Pagination bounds for audit queries.
const (
	AuditDefaultPageSize = 20
	AuditMaxPageSize     = 100
)

// AuditPage describes a page request; ordering is always created_at
// descending.
type AuditPage struct {
	Number int
	Size   int
}

// Normalize clamps the page request into the supported bounds.
func (p AuditPage) Normalize() AuditPage {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = AuditDefaultPageSize
	}
	if p.Size > AuditMaxPageSize {
		p.Size = AuditMaxPageSize
	}
	return p
}

// Offset converts the page request into a row offset.
func (p AuditPage) Offset() int {
	return (p.Number - 1) * p.Size
}
