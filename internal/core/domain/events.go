package domain

import "time"

// UserRegisteredEvent represents the payload for auth.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Email        string
	Status       string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// PasswordChangedEvent represents the payload for auth.user.password.changed messages.
type PasswordChangedEvent struct {
	EventID         string
	UserID          string
	ChangedAt       time.Time
	ChangedBy       string
	SessionsRevoked bool
	Metadata        map[string]any
}

// PasswordResetRequestedEvent represents the payload for auth.user.password.reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID           string
	UserID            string
	RequestID         string
	RequestedAt       time.Time
	MaskedDestination string
	IPAddress         *string
	ExpiresAt         time.Time
	Metadata          map[string]any
}

// RolesAssignedEvent represents the payload for auth.user.roles.assigned
// messages. Grants are single-role operations, so each event carries one role.
type RolesAssignedEvent struct {
	EventID    string
	UserID     string
	RoleID     string
	RoleName   string
	AssignedBy string
	AssignedAt time.Time
	Metadata   map[string]any
}

// RolesRevokedEvent represents the payload for auth.user.roles.revoked messages.
type RolesRevokedEvent struct {
	EventID   string
	UserID    string
	RoleID    string
	RoleName  string
	RevokedBy string
	RevokedAt time.Time
	Reason    string
	Metadata  map[string]any
}

// SessionsRevokedEvent represents the payload for auth.sessions.revoked
// messages, emitted when every outstanding credential of a user is
// invalidated at once.
type SessionsRevokedEvent struct {
	EventID   string
	UserID    string
	RevokedAt time.Time
	RevokedBy string
	Reason    string
	Metadata  map[string]any
}

// TokenRevokedEvent represents the payload for auth.token.revoked messages.
type TokenRevokedEvent struct {
	EventID   string
	TokenID   string
	SubjectID string
	ExpiresAt time.Time
	Reason    string
	RevokedAt time.Time
	Metadata  map[string]any
}
