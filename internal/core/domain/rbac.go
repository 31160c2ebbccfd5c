package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Module identifies the functional area a permission applies to.
type Module string

// Action identifies the operation a permission grants within a module.
type Action string

// Known modules. The set is closed at the decision boundary: authorization
// checks go through PermissionKey, never raw strings.
const (
	ModuleUser       Module = "USER"
	ModuleProfile    Module = "PROFILE"
	ModuleRole       Module = "ROLE"
	ModulePermission Module = "PERMISSION"
	ModuleSession    Module = "SESSION"
	ModuleAudit      Module = "AUDIT"
)

// Known actions. Own/all variants encode scope in the permission itself;
// callers pick the variant after comparing target and caller identity.
const (
	ActionCreate    Action = "CREATE"
	ActionRead      Action = "READ"
	ActionReadOwn   Action = "READ_OWN"
	ActionReadAll   Action = "READ_ALL"
	ActionUpdate    Action = "UPDATE"
	ActionUpdateOwn Action = "UPDATE_OWN"
	ActionUpdateAll Action = "UPDATE_ALL"
	ActionDelete    Action = "DELETE"
	ActionAssign    Action = "ASSIGN"
	ActionRevoke    Action = "REVOKE"
	ActionRevokeAll Action = "REVOKE_ALL"
)

// Permission keys the engine's own operations check before acting.
var (
	PermProfileReadOwn   = PermissionKey{Module: ModuleProfile, Action: ActionReadOwn}
	PermProfileReadAll   = PermissionKey{Module: ModuleProfile, Action: ActionReadAll}
	PermProfileUpdateOwn = PermissionKey{Module: ModuleProfile, Action: ActionUpdateOwn}
	PermProfileUpdateAll = PermissionKey{Module: ModuleProfile, Action: ActionUpdateAll}
	PermUserRead         = PermissionKey{Module: ModuleUser, Action: ActionRead}
	PermUserUpdate       = PermissionKey{Module: ModuleUser, Action: ActionUpdate}
	PermUserUpdateAll    = PermissionKey{Module: ModuleUser, Action: ActionUpdateAll}
	PermUserDelete       = PermissionKey{Module: ModuleUser, Action: ActionDelete}
	PermRoleCreate       = PermissionKey{Module: ModuleRole, Action: ActionCreate}
	PermRoleRead         = PermissionKey{Module: ModuleRole, Action: ActionRead}
	PermRoleUpdate       = PermissionKey{Module: ModuleRole, Action: ActionUpdate}
	PermRoleDelete       = PermissionKey{Module: ModuleRole, Action: ActionDelete}
	PermRoleAssign       = PermissionKey{Module: ModuleRole, Action: ActionAssign}
	PermRoleRevoke       = PermissionKey{Module: ModuleRole, Action: ActionRevoke}
	PermPermissionRead   = PermissionKey{Module: ModulePermission, Action: ActionRead}
	PermPermissionAssign = PermissionKey{Module: ModulePermission, Action: ActionAssign}
	PermSessionRevokeAll = PermissionKey{Module: ModuleSession, Action: ActionRevokeAll}
	PermAuditRead        = PermissionKey{Module: ModuleAudit, Action: ActionRead}
)

var permissionTokenPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// PermissionKey is the validated (module, action) pair the authorization
// engine decides on.
type PermissionKey struct {
	Module Module
	Action Action
}

// NewPermissionKey validates and normalizes a (module, action) pair.
func NewPermissionKey(module, action string) (PermissionKey, error) {
	module = strings.ToUpper(strings.TrimSpace(module))
	action = strings.ToUpper(strings.TrimSpace(action))
	if module == "" {
		return PermissionKey{}, fmt.Errorf("permission module is required")
	}
	if action == "" {
		return PermissionKey{}, fmt.Errorf("permission action is required")
	}
	if !permissionTokenPattern.MatchString(module) {
		return PermissionKey{}, fmt.Errorf("invalid permission module %q", module)
	}
	if !permissionTokenPattern.MatchString(action) {
		return PermissionKey{}, fmt.Errorf("invalid permission action %q", action)
	}
	return PermissionKey{Module: Module(module), Action: Action(action)}, nil
}

// String renders the canonical permission name, e.g. "PROFILE_READ_OWN".
func (k PermissionKey) String() string {
	return fmt.Sprintf("%s_%s", k.Module, k.Action)
}

// ParsePermissionName splits a canonical "<MODULE>_<ACTION>" name back into
// its key. The module is always a single token; everything after the first
// underscore is the action.
func ParsePermissionName(name string) (PermissionKey, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	module, action, found := strings.Cut(name, "_")
	if !found {
		return PermissionKey{}, fmt.Errorf("invalid permission name %q", name)
	}
	return NewPermissionKey(module, action)
}

// ValidRoleName reports whether name is usable as a role identifier.
// Role names share the uppercase token grammar of permission parts.
func ValidRoleName(name string) bool {
	return permissionTokenPattern.MatchString(name)
}

// PermissionSet is the effective permission set of a user. It is a set:
// membership only, no ordering.
type PermissionSet map[PermissionKey]struct{}

// Has reports whether the set grants the supplied key.
func (s PermissionSet) Has(key PermissionKey) bool {
	_, ok := s[key]
	return ok
}

// Add inserts a key into the set.
func (s PermissionSet) Add(key PermissionKey) {
	s[key] = struct{}{}
}

// Names returns the canonical permission names contained in the set.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for key := range s {
		names = append(names, key.String())
	}
	return names
}

// Role defines a named bundle of permissions.
type Role struct {
	ID          string
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsProtected reports whether the role must never be deleted.
func (r Role) IsProtected() bool {
	return r.Name == AdminRoleName
}

// Permission defines an atomic capability identified by (module, action).
// Name is the canonical "<MODULE>_<ACTION>" rendering and is unique.
type Permission struct {
	ID          string
	Name        string
	Module      Module
	Action      Action
	Description *string
}

// Key returns the typed decision pair for this permission.
func (p Permission) Key() PermissionKey {
	return PermissionKey{Module: p.Module, Action: p.Action}
}

// RolePermission links a role with a permission.
type RolePermission struct {
	RoleID       string
	PermissionID string
	GrantedAt    time.Time
	GrantedBy    *string
}

// UserRole assigns a role to a user.
type UserRole struct {
	UserID     string
	RoleID     string
	AssignedAt time.Time
	AssignedBy *string
}
