package domain

import "time"

// UserStatus enumerates possible account states.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusInactive  UserStatus = "INACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// Valid reports whether the status is one of the supported account states.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended:
		return true
	default:
		return false
	}
}

// Well-known role names. Seeding them is a data concern, not an engine one.
const (
	DefaultRoleName = "USER"
	AdminRoleName   = "ADMIN"
)

// User mirrors the persisted representation in the users table.
// Accounts are never physically deleted; deactivation transitions Status.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	PasswordAlgo string
	Status       UserStatus
	FirstName    string
	LastName     string
	Phone        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    *time.Time
}

// IsActive reports whether the account may authenticate and act.
func (u User) IsActive() bool {
	return u.Status == UserStatusActive
}

// PasswordContext carries user inputs a password must not resemble.
type PasswordContext struct {
	Email string
	Phone *string
}

// ProfileValues returns the mutable profile fields as a snapshot map,
// suitable for audit diff capture.
func (u User) ProfileValues() map[string]any {
	values := map[string]any{
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"status":     string(u.Status),
	}
	if u.Phone != nil {
		values["phone"] = *u.Phone
	}
	return values
}
