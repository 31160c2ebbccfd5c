package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/core/port"
	"github.com/Ezra31448/soap-api/internal/repository"
)

var (
	// ErrRoleExists indicates a role with the requested name already exists.
	ErrRoleExists = errors.New("role already exists")
	// ErrRoleNotFound indicates the requested role does not exist.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleProtected indicates the role is essential and cannot be deleted or renamed.
	ErrRoleProtected = errors.New("role is protected")
	// ErrRoleInUse indicates the role still has user assignments.
	ErrRoleInUse = errors.New("role has active assignments")
	// ErrInvalidRoleName indicates the role name does not match the allowed grammar.
	ErrInvalidRoleName = errors.New("invalid role name")
)

// CreateRoleInput describes a new role and its initial permissions.
type CreateRoleInput struct {
	ActorID     string
	Name        string
	Description *string
	Permissions []domain.PermissionKey
	IPAddress   *string
	UserAgent   *string
}

// CreateRoleResult is a successful role creation outcome.
type CreateRoleResult struct {
	Role        domain.Role
	Permissions []domain.Permission
}

// UpdateRoleInput mutates a role's name or description. Nil fields stay
// unchanged.
type UpdateRoleInput struct {
	ActorID     string
	RoleID      string
	Name        *string
	Description *string
	IPAddress   *string
	UserAgent   *string
}

// DeleteRoleInput removes an unassigned role.
type DeleteRoleInput struct {
	ActorID   string
	RoleID    string
	IPAddress *string
	UserAgent *string
}

// RoleAssignmentInput links or unlinks a user and a role.
type RoleAssignmentInput struct {
	ActorID   string
	UserID    string
	RoleID    string
	Reason    string
	IPAddress *string
	UserAgent *string
}

// RoleAssignmentResult reports whether the edge changed and the role names
// held afterwards.
type RoleAssignmentResult struct {
	Changed bool
	Roles   []string
}

// GrantPermissionInput attaches a permission to a role, creating the
// permission on first use.
type GrantPermissionInput struct {
	ActorID     string
	RoleID      string
	Permission  domain.PermissionKey
	Description *string
	IPAddress   *string
	UserAgent   *string
}

// GrantPermissionResult reports whether the grant changed anything.
type GrantPermissionResult struct {
	Granted    bool
	Permission domain.Permission
}

// RoleDetail pairs a role with its granted permissions.
type RoleDetail struct {
	Role        domain.Role
	Permissions []domain.Permission
}

// RoleService administers roles, assignments, and permission grants.
type RoleService struct {
	users       port.UserRepository
	roles       port.RoleRepository
	permissions port.PermissionRepository
	store       port.UnitOfWork
	authz       *AuthorizationService
	events      port.EventPublisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewRoleService constructs a RoleService instance.
func NewRoleService(
	users port.UserRepository,
	roles port.RoleRepository,
	permissions port.PermissionRepository,
	store port.UnitOfWork,
	authz *AuthorizationService,
	logger *zap.Logger,
) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{
		users:       users,
		roles:       roles,
		permissions: permissions,
		store:       store,
		authz:       authz,
		logger:      logger,
		now:         time.Now,
	}
}

// WithEvents attaches an event publisher for role change notifications.
func (s *RoleService) WithEvents(events port.EventPublisher) *RoleService {
	s.events = events
	return s
}

// WithClock overrides the time source.
func (s *RoleService) WithClock(now func() time.Time) *RoleService {
	if now != nil {
		s.now = now
	}
	return s
}

// CreateRole creates a role with an optional initial permission set.
// Permissions named for the first time are created on the fly.
func (s *RoleService) CreateRole(ctx context.Context, input CreateRoleInput) (*CreateRoleResult, error) {
	if err := s.authorize(ctx, input.ActorID, domain.PermRoleCreate, nil, input.IPAddress, input.UserAgent); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, fmt.Errorf("role service not configured")
	}

	name := strings.ToUpper(strings.TrimSpace(input.Name))
	if name == "" {
		return nil, fmt.Errorf("role name is required")
	}
	if !domain.ValidRoleName(name) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoleName, name)
	}

	if _, err := s.roles.GetByName(ctx, name); err == nil {
		return nil, ErrRoleExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup role: %w", err)
	}

	now := s.now().UTC()
	role := domain.Role{
		ID:          uuid.NewString(),
		Name:        name,
		Description: trimmedPtr(input.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	granted, toCreate, err := s.resolvePermissions(ctx, input.Permissions)
	if err != nil {
		return nil, err
	}

	actorID := strings.TrimSpace(input.ActorID)
	err = s.store.WithinTx(ctx, func(tx port.TxRepositories) error {
		if err := tx.Roles.Create(ctx, role); err != nil {
			return fmt.Errorf("create role: %w", err)
		}

		for _, perm := range toCreate {
			if err := tx.Permissions.Create(ctx, perm); err != nil {
				return fmt.Errorf("create permission %s: %w", perm.Name, err)
			}
			if err := tx.Audit.Insert(ctx, permissionCreatedEntry(actorID, perm, input.IPAddress, input.UserAgent, now)); err != nil {
				return fmt.Errorf("append audit entry: %w", err)
			}
		}

		for _, perm := range granted {
			grant := domain.RolePermission{
				RoleID:       role.ID,
				PermissionID: perm.ID,
				GrantedAt:    now,
				GrantedBy:    &actorID,
			}
			if _, err := tx.Permissions.GrantToRole(ctx, grant); err != nil {
				return fmt.Errorf("grant permission %s: %w", perm.Name, err)
			}
		}

		entry := domain.AuditLogEntry{
			ID:           uuid.NewString(),
			UserID:       &actorID,
			Action:       domain.AuditRoleCreated,
			ResourceType: domain.ResourceTypeRole,
			ResourceID:   &role.ID,
			NewValues:    roleValues(role, permissionNames(granted)),
			IPAddress:    input.IPAddress,
			UserAgent:    input.UserAgent,
			CreatedAt:    now,
		}
		if err := tx.Audit.Insert(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CreateRoleResult{Role: role, Permissions: granted}, nil
}

// UpdateRole changes a role's name or description.
func (s *RoleService) UpdateRole(ctx context.Context, input UpdateRoleInput) (*domain.Role, error) {
	if err := s.authorize(ctx, input.ActorID, domain.PermRoleUpdate, &input.RoleID, input.IPAddress, input.UserAgent); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, fmt.Errorf("role service not configured")
	}

	role, err := s.getRole(ctx, input.RoleID)
	if err != nil {
		return nil, err
	}

	old := roleValues(*role, nil)
	updated := *role

	if input.Name != nil {
		name := strings.ToUpper(strings.TrimSpace(*input.Name))
		if name == "" {
			return nil, fmt.Errorf("role name is required")
		}
		if !domain.ValidRoleName(name) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRoleName, name)
		}
		if name != role.Name {
			if role.IsProtected() {
				return nil, ErrRoleProtected
			}
			if _, err := s.roles.GetByName(ctx, name); err == nil {
				return nil, ErrRoleExists
			} else if !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("lookup role: %w", err)
			}
			updated.Name = name
		}
	}
	if input.Description != nil {
		updated.Description = trimmedPtr(input.Description)
	}

	if updated.Name == role.Name && equalPtr(updated.Description, role.Description) {
		return role, nil
	}

	now := s.now().UTC()
	updated.UpdatedAt = now
	actorID := strings.TrimSpace(input.ActorID)

	err = s.store.WithinTx(ctx, func(tx port.TxRepositories) error {
		if err := tx.Roles.Update(ctx, updated); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRoleNotFound
			}
			return fmt.Errorf("update role: %w", err)
		}

		entry := domain.AuditLogEntry{
			ID:           uuid.NewString(),
			UserID:       &actorID,
			Action:       domain.AuditRoleUpdated,
			ResourceType: domain.ResourceTypeRole,
			ResourceID:   &role.ID,
			OldValues:    old,
			NewValues:    roleValues(updated, nil),
			IPAddress:    input.IPAddress,
			UserAgent:    input.UserAgent,
			CreatedAt:    now,
		}
		if err := tx.Audit.Insert(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// DeleteRole removes a role that has no remaining assignments. The ADMIN
// role can never be deleted.
func (s *RoleService) DeleteRole(ctx context.Context, input DeleteRoleInput) error {
	if err := s.authorize(ctx, input.ActorID, domain.PermRoleDelete, &input.RoleID, input.IPAddress, input.UserAgent); err != nil {
		return err
	}
	if s.store == nil {
		return fmt.Errorf("role service not configured")
	}

	role, err := s.getRole(ctx, input.RoleID)
	if err != nil {
		return err
	}
	if role.IsProtected() {
		return ErrRoleProtected
	}

	assigned, err := s.roles.CountAssignments(ctx, role.ID)
	if err != nil {
		return fmt.Errorf("count role assignments: %w", err)
	}
	if assigned > 0 {
		return ErrRoleInUse
	}

	now := s.now().UTC()
	actorID := strings.TrimSpace(input.ActorID)

	return s.store.WithinTx(ctx, func(tx port.TxRepositories) error {
		if err := tx.Roles.Delete(ctx, role.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRoleNotFound
			}
			return fmt.Errorf("delete role: %w", err)
		}

		entry := domain.AuditLogEntry{
			ID:           uuid.NewString(),
			UserID:       &actorID,
			Action:       domain.AuditRoleDeleted,
			ResourceType: domain.ResourceTypeRole,
			ResourceID:   &role.ID,
			OldValues:    roleValues(*role, nil),
			IPAddress:    input.IPAddress,
			UserAgent:    input.UserAgent,
			CreatedAt:    now,
		}
		if err := tx.Audit.Insert(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}

		return nil
	})
}

// ListRoles returns every role.
func (s *RoleService) ListRoles(ctx context.Context, actorID string, ip, userAgent *string) ([]domain.Role, error) {
	if err := s.authorize(ctx, actorID, domain.PermRoleRead, nil, ip, userAgent); err != nil {
		return nil, err
	}

	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	return roles, nil
}

// GetRole returns a role together with its granted permissions.
func (s *RoleService) GetRole(ctx context.Context, actorID, roleID string, ip, userAgent *string) (*RoleDetail, error) {
	if err := s.authorize(ctx, actorID, domain.PermRoleRead, &roleID, ip, userAgent); err != nil {
		return nil, err
	}

	role, err := s.getRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	perms, err := s.permissions.ListByRole(ctx, role.ID)
	if err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}

	return &RoleDetail{Role: *role, Permissions: perms}, nil
}

// AssignRole grants a role to a user. Assigning an already held role is a
// no-op and leaves no audit entry.
func (s *RoleService) AssignRole(ctx context.Context, input RoleAssignmentInput) (*RoleAssignmentResult, error) {
	if err := s.authorize(ctx, input.ActorID, domain.PermRoleAssign, &input.RoleID, input.IPAddress, input.UserAgent); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, fmt.Errorf("role service not configured")
	}

	user, err := s.getUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	role, err := s.getRole(ctx, input.RoleID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	actorID := strings.TrimSpace(input.ActorID)

	var (
		changed bool
		after   []string
	)
	err = s.store.WithinTx(ctx, func(tx port.TxRepositories) error {
		before, err := tx.Roles.ListByUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("list user roles: %w", err)
		}

		assignment := domain.UserRole{
			UserID:     user.ID,
			RoleID:     role.ID,
			AssignedAt: now,
			AssignedBy: &actorID,
		}
		inserted, err := tx.Roles.AssignToUser(ctx, assignment)
		if err != nil {
			return fmt.Errorf("assign role: %w", err)
		}

		if !inserted {
			after = roleNames(before)
			return nil
		}
		changed = true

		current, err := tx.Roles.ListByUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("list user roles: %w", err)
		}
		after = roleNames(current)

		entry := domain.AuditLogEntry{
			ID:           uuid.NewString(),
			UserID:       &user.ID,
			Action:       domain.AuditRoleAssigned,
			ResourceType: domain.ResourceTypeRole,
			ResourceID:   &role.ID,
			OldValues:    map[string]any{"roles": roleNames(before)},
			NewValues:    map[string]any{"roles": after, "assigned_by": actorID},
			IPAddress:    input.IPAddress,
			UserAgent:    input.UserAgent,
			CreatedAt:    now,
		}
		if err := tx.Audit.Insert(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		if s.authz != nil {
			if err := s.authz.InvalidateUsers(ctx, user.ID); err != nil {
				return nil, err
			}
		}

		s.publishRolesAssignedEvent(ctx, domain.RolesAssignedEvent{
			EventID:    uuid.NewString(),
			UserID:     user.ID,
			RoleID:     role.ID,
			RoleName:   role.Name,
			AssignedBy: actorID,
			AssignedAt: now,
		})
	}

	return &RoleAssignmentResult{Changed: changed, Roles: after}, nil
}

// RevokeRole removes a role from a user. Revoking a role the user does not
// hold is a no-op and leaves no audit entry.
func (s *RoleService) RevokeRole(ctx context.Context, input RoleAssignmentInput) (*RoleAssignmentResult, error) {
	if err := s.authorize(ctx, input.ActorID, domain.PermRoleRevoke, &input.RoleID, input.IPAddress, input.UserAgent); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, fmt.Errorf("role service not configured")
	}

	user, err := s.getUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	role, err := s.getRole(ctx, input.RoleID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	actorID := strings.TrimSpace(input.ActorID)

	var (
		changed bool
		after   []string
	)
	err = s.store.WithinTx(ctx, func(tx port.TxRepositories) error {
		before, err := tx.Roles.ListByUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("list user roles: %w", err)
		}

		removed, err := tx.Roles.RemoveFromUser(ctx, user.ID, role.ID)
		if err != nil {
			return fmt.Errorf("revoke role: %w", err)
		}

		if !removed {
			after = roleNames(before)
			return nil
		}
		changed = true

		current, err := tx.Roles.ListByUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("list user roles: %w", err)
		}
		after = roleNames(current)

		entry := domain.AuditLogEntry{
			ID:           uuid.NewString(),
			UserID:       &user.ID,
			Action:       domain.AuditRoleRevoked,
			ResourceType: domain.ResourceTypeRole,
			ResourceID:   &role.ID,
			OldValues:    map[string]any{"roles": roleNames(before)},
			NewValues:    map[string]any{"roles": after, "revoked_by": actorID, "reason": input.Reason},
			IPAddress:    input.IPAddress,
			UserAgent:    input.UserAgent,
			CreatedAt:    now,
		}
		if err := tx.Audit.Insert(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		if s.authz != nil {
			if err := s.authz.InvalidateUsers(ctx, user.ID); err != nil {
				return nil, err
			}
		}

		s.publishRolesRevokedEvent(ctx, domain.RolesRevokedEvent{
			EventID:   uuid.NewString(),
			UserID:    user.ID,
			RoleID:    role.ID,
			RoleName:  role.Name,
			RevokedBy: actorID,
			RevokedAt: now,
			Reason:    input.Reason,
		})
	}

	return &RoleAssignmentResult{Changed: changed, Roles: after}, nil
}

// GrantPermissionToRole attaches a permission to a role, creating the
// permission record on first use. Re-granting is a no-op.
func (s *RoleService) GrantPermissionToRole(ctx context.Context, input GrantPermissionInput) (*GrantPermissionResult, error) {
	if err := s.authorize(ctx, input.ActorID, domain.PermPermissionAssign, &input.RoleID, input.IPAddress, input.UserAgent); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, fmt.Errorf("role service not configured")
	}

	role, err := s.getRole(ctx, input.RoleID)
	if err != nil {
		return nil, err
	}

	key, err := domain.NewPermissionKey(string(input.Permission.Module), string(input.Permission.Action))
	if err != nil {
		return nil, err
	}

	perm, created, err := s.resolvePermission(ctx, key, input.Description)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	actorID := strings.TrimSpace(input.ActorID)

	var granted bool
	err = s.store.WithinTx(ctx, func(tx port.TxRepositories) error {
		if created {
			if err := tx.Permissions.Create(ctx, perm); err != nil {
				return fmt.Errorf("create permission %s: %w", perm.Name, err)
			}
			if err := tx.Audit.Insert(ctx, permissionCreatedEntry(actorID, perm, input.IPAddress, input.UserAgent, now)); err != nil {
				return fmt.Errorf("append audit entry: %w", err)
			}
		}

		grant := domain.RolePermission{
			RoleID:       role.ID,
			PermissionID: perm.ID,
			GrantedAt:    now,
			GrantedBy:    &actorID,
		}
		inserted, err := tx.Permissions.GrantToRole(ctx, grant)
		if err != nil {
			return fmt.Errorf("grant permission: %w", err)
		}
		if !inserted {
			return nil
		}
		granted = true

		entry := domain.AuditLogEntry{
			ID:           uuid.NewString(),
			UserID:       &actorID,
			Action:       domain.AuditPermissionGranted,
			ResourceType: domain.ResourceTypeRole,
			ResourceID:   &role.ID,
			NewValues: map[string]any{
				"role":       role.Name,
				"permission": perm.Name,
			},
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
			CreatedAt: now,
		}
		if err := tx.Audit.Insert(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if granted && s.authz != nil {
		if err := s.authz.InvalidateRole(ctx, role.ID); err != nil {
			return nil, err
		}
	}

	return &GrantPermissionResult{Granted: granted, Permission: perm}, nil
}

// ListPermissions returns the permission catalog.
func (s *RoleService) ListPermissions(ctx context.Context, actorID string, ip, userAgent *string) ([]domain.Permission, error) {
	if err := s.authorize(ctx, actorID, domain.PermPermissionRead, nil, ip, userAgent); err != nil {
		return nil, err
	}

	perms, err := s.permissions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}

	return perms, nil
}

func (s *RoleService) authorize(ctx context.Context, actorID string, key domain.PermissionKey, resourceID, ip, userAgent *string) error {
	if s.authz == nil {
		return fmt.Errorf("role service not configured")
	}

	decision, err := s.authz.Authorize(ctx, AuthorizeInput{
		UserID:     actorID,
		Permission: key,
		ResourceID: resourceID,
		IPAddress:  ip,
		UserAgent:  userAgent,
	})
	if err != nil {
		return fmt.Errorf("authorize %s: %w", key, err)
	}
	if !decision.Allowed {
		return ErrPermissionDenied
	}

	return nil
}

func (s *RoleService) getRole(ctx context.Context, roleID string) (*domain.Role, error) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return nil, fmt.Errorf("role id is required")
	}

	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("lookup role: %w", err)
	}

	return role, nil
}

func (s *RoleService) getUser(ctx context.Context, userID string) (*domain.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	return user, nil
}

// resolvePermissions splits requested keys into already existing permissions
// and records that must be created, returning the union in grant order.
func (s *RoleService) resolvePermissions(ctx context.Context, keys []domain.PermissionKey) ([]domain.Permission, []domain.Permission, error) {
	granted := make([]domain.Permission, 0, len(keys))
	toCreate := make([]domain.Permission, 0)
	seen := make(map[string]struct{}, len(keys))

	for _, requested := range keys {
		key, err := domain.NewPermissionKey(string(requested.Module), string(requested.Action))
		if err != nil {
			return nil, nil, err
		}
		name := key.String()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		perm, created, err := s.resolvePermission(ctx, key, nil)
		if err != nil {
			return nil, nil, err
		}
		if created {
			toCreate = append(toCreate, perm)
		}
		granted = append(granted, perm)
	}

	return granted, toCreate, nil
}

func (s *RoleService) resolvePermission(ctx context.Context, key domain.PermissionKey, description *string) (domain.Permission, bool, error) {
	existing, err := s.permissions.GetByName(ctx, key.String())
	if err == nil {
		return *existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Permission{}, false, fmt.Errorf("lookup permission %s: %w", key, err)
	}

	perm := domain.Permission{
		ID:          uuid.NewString(),
		Name:        key.String(),
		Module:      key.Module,
		Action:      key.Action,
		Description: trimmedPtr(description),
	}
	return perm, true, nil
}

func (s *RoleService) publishRolesAssignedEvent(ctx context.Context, event domain.RolesAssignedEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishRolesAssigned(ctx, event); err != nil {
		s.logger.Warn("publish roles assigned event failed",
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
	}
}

func (s *RoleService) publishRolesRevokedEvent(ctx context.Context, event domain.RolesRevokedEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishRolesRevoked(ctx, event); err != nil {
		s.logger.Warn("publish roles revoked event failed",
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
	}
}

func roleNames(roles []domain.Role) []string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	return names
}

func permissionNames(perms []domain.Permission) []string {
	names := make([]string, 0, len(perms))
	for _, perm := range perms {
		names = append(names, perm.Name)
	}
	return names
}

func roleValues(role domain.Role, permissions []string) map[string]any {
	values := map[string]any{"name": role.Name}
	if role.Description != nil {
		values["description"] = *role.Description
	}
	if len(permissions) > 0 {
		values["permissions"] = permissions
	}
	return values
}

// permissionCreatedEntry records a permission definition entering the
// catalog. Definitions are created on first grant, so the entry rides the
// same transaction as the grant that introduced them.
func permissionCreatedEntry(actorID string, perm domain.Permission, ip, userAgent *string, now time.Time) domain.AuditLogEntry {
	return domain.AuditLogEntry{
		ID:           uuid.NewString(),
		UserID:       &actorID,
		Action:       domain.AuditPermissionCreated,
		ResourceType: domain.ResourceTypePermission,
		ResourceID:   &perm.ID,
		NewValues: map[string]any{
			"name":   perm.Name,
			"module": string(perm.Module),
			"action": string(perm.Action),
		},
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: now,
	}
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
