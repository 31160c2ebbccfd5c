package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request trace ID.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserPayload describes a user as returned by the API. Password material
// never appears here.
type UserPayload struct {
	ID        string            `json:"id"`
	Email     string            `json:"email"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Phone     *string           `json:"phone,omitempty"`
	Status    domain.UserStatus `json:"status"`
	Roles     []string          `json:"roles,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	LastLogin *time.Time        `json:"last_login,omitempty"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        UserPayload `json:"user"`
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
}

// RegisterResponse contains the newly created account.
type RegisterResponse struct {
	Message string      `json:"message"`
	User    UserPayload `json:"user"`
}

// SessionsRevokeRequest invalidates outstanding credentials. UserID defaults
// to the caller's own account.
type SessionsRevokeRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// PasswordChangeRequest captures a password change request body. UserID is
// only honoured for administrative changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"required"`
	UserID          string `json:"user_id"`
}

// PasswordResetRequest represents a password reset initiation payload.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

// PasswordResetResponse acknowledges a reset request. The body is identical
// for known and unknown addresses.
type PasswordResetResponse struct {
	Message           string    `json:"message"`
	MaskedDestination string    `json:"masked_destination,omitempty"`
	ExpiresAt         time.Time `json:"expires_at"`
	// DevToken is only populated in development mode; production delivers
	// the token via the notification channel exclusively.
	DevToken *string `json:"dev_token,omitempty"`
}

// PasswordResetConfirmRequest redeems a reset token for a new password.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateProfileRequest mutates profile fields. Omitted fields stay
// unchanged; an empty phone clears the stored number.
type UpdateProfileRequest struct {
	FirstName         *string    `json:"first_name,omitempty"`
	LastName          *string    `json:"last_name,omitempty"`
	Phone             *string    `json:"phone,omitempty"`
	ExpectedUpdatedAt *time.Time `json:"expected_updated_at,omitempty"`
}

// UserListResponse wraps one page of the user directory.
type UserListResponse struct {
	Users    []UserPayload `json:"users"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// RoleCreateRequest defines the payload for creating a role.
type RoleCreateRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description *string  `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

// RoleUpdateRequest renames a role or replaces its description.
type RoleUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// RolePayload summarizes a role entity.
type RolePayload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PermissionPayload describes a permission attached to a role.
type PermissionPayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Module      string  `json:"module"`
	Action      string  `json:"action"`
	Description *string `json:"description,omitempty"`
}

// RoleDetailResponse returns a role with its granted permissions.
type RoleDetailResponse struct {
	Role        RolePayload         `json:"role"`
	Permissions []PermissionPayload `json:"permissions"`
}

// RoleListResponse wraps multiple roles.
type RoleListResponse struct {
	Roles []RolePayload `json:"roles"`
}

// PermissionListResponse wraps the permission catalogue.
type PermissionListResponse struct {
	Permissions []PermissionPayload `json:"permissions"`
}

// RoleAssignmentRequest links or unlinks a user and a role.
type RoleAssignmentRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Reason string `json:"reason"`
}

// RoleAssignmentResponse reports whether the edge changed and the role
// names held afterwards.
type RoleAssignmentResponse struct {
	Changed bool     `json:"changed"`
	Roles   []string `json:"roles"`
}

// GrantPermissionRequest attaches a permission to a role, creating the
// permission on first use.
type GrantPermissionRequest struct {
	Permission  string  `json:"permission" binding:"required"`
	Description *string `json:"description,omitempty"`
}

// GrantPermissionResponse reports whether the grant changed anything.
type GrantPermissionResponse struct {
	Granted    bool              `json:"granted"`
	Permission PermissionPayload `json:"permission"`
}

// AuditEntryPayload describes one audit trail entry.
type AuditEntryPayload struct {
	ID           string         `json:"id"`
	UserID       *string        `json:"user_id,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   *string        `json:"resource_id,omitempty"`
	OldValues    map[string]any `json:"old_values,omitempty"`
	NewValues    map[string]any `json:"new_values,omitempty"`
	IPAddress    *string        `json:"ip_address,omitempty"`
	UserAgent    *string        `json:"user_agent,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditListResponse wraps one page of audit entries, newest first.
type AuditListResponse struct {
	Entries  []AuditEntryPayload `json:"entries"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// AuditActionCountPayload aggregates entry counts per action.
type AuditActionCountPayload struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

// AuditStatsResponse reports per-action entry counts for a time range.
type AuditStatsResponse struct {
	Counts []AuditActionCountPayload `json:"counts"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// newUserPayload converts a domain user to an API payload.
func newUserPayload(user domain.User, roles []string) UserPayload {
	payload := UserPayload{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Status:    user.Status,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}

	if user.Phone != nil {
		phone := strings.TrimSpace(*user.Phone)
		if phone != "" {
			payload.Phone = &phone
		}
	}

	if user.LastLogin != nil {
		payload.LastLogin = user.LastLogin
	}

	if len(roles) > 0 {
		rolesCopy := make([]string, len(roles))
		copy(rolesCopy, roles)
		payload.Roles = rolesCopy
	}

	return payload
}

// newRolePayload converts a domain role to an API payload.
func newRolePayload(role domain.Role) RolePayload {
	return RolePayload{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

// newPermissionPayload converts a domain permission to an API payload.
func newPermissionPayload(permission domain.Permission) PermissionPayload {
	return PermissionPayload{
		ID:          permission.ID,
		Name:        permission.Name,
		Module:      string(permission.Module),
		Action:      string(permission.Action),
		Description: permission.Description,
	}
}

// newAuditEntryPayload converts a domain audit entry to an API payload.
func newAuditEntryPayload(entry domain.AuditLogEntry) AuditEntryPayload {
	return AuditEntryPayload{
		ID:           entry.ID,
		UserID:       entry.UserID,
		Action:       string(entry.Action),
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		OldValues:    entry.OldValues,
		NewValues:    entry.NewValues,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		CreatedAt:    entry.CreatedAt,
	}
}

// clientMeta extracts the caller address and user agent as optional strings.
func clientMeta(c *gin.Context) (ip *string, userAgent *string) {
	meta := middleware.GetRequestMeta(c)
	if v := strings.TrimSpace(meta.IP); v != "" {
		ip = &v
	}
	if v := strings.TrimSpace(meta.UserAgent); v != "" {
		userAgent = &v
	}
	return ip, userAgent
}
