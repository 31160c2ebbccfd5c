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

// ErrPermissionDenied indicates the actor lacks the permission an operation requires.
var ErrPermissionDenied = errors.New("permission denied")

// Decision reasons returned by Authorize.
const (
	DecisionReasonAuthorized             = "AUTHORIZED"
	DecisionReasonNotAuthenticated       = "NOT_AUTHENTICATED"
	DecisionReasonInsufficientPermission = "INSUFFICIENT_PERMISSION"
	DecisionReasonAccountInactive        = "ACCOUNT_INACTIVE"
)

const defaultPermissionCacheTTL = 10 * time.Second

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

// AuthorizeInput describes a permission check against a single actor.
type AuthorizeInput struct {
	UserID     string
	Permission domain.PermissionKey
	ResourceID *string
	IPAddress  *string
	UserAgent  *string
}

// AuthorizationService resolves effective permissions and decides whether an
// actor may perform an operation. Denied attempts are recorded in the audit
// trail without blocking the caller.
type AuthorizationService struct {
	users       port.UserRepository
	roles       port.RoleRepository
	permissions port.PermissionRepository
	cache       port.PermissionCache
	audit       port.AuditRepository
	logger      *zap.Logger
	cacheTTL    time.Duration
	now         func() time.Time
}

// NewAuthorizationService constructs an AuthorizationService instance.
func NewAuthorizationService(
	users port.UserRepository,
	roles port.RoleRepository,
	permissions port.PermissionRepository,
	audit port.AuditRepository,
	logger *zap.Logger,
) *AuthorizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthorizationService{
		users:       users,
		roles:       roles,
		permissions: permissions,
		audit:       audit,
		logger:      logger,
		cacheTTL:    defaultPermissionCacheTTL,
		now:         time.Now,
	}
}

// WithCache attaches a permission cache with the supplied entry TTL.
func (s *AuthorizationService) WithCache(cache port.PermissionCache, ttl time.Duration) *AuthorizationService {
	s.cache = cache
	if ttl > 0 {
		s.cacheTTL = ttl
	}
	return s
}

// WithClock overrides the time source used for audit timestamps.
func (s *AuthorizationService) WithClock(now func() time.Time) *AuthorizationService {
	if now != nil {
		s.now = now
	}
	return s
}

// ResolvePermissions returns the union of permissions over every role the
// user holds, consulting the cache first. Cache failures fall through to
// storage.
func (s *AuthorizationService) ResolvePermissions(ctx context.Context, userID string) (domain.PermissionSet, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if s.permissions == nil {
		return nil, fmt.Errorf("authorization service not configured")
	}

	if s.cache != nil {
		set, err := s.cache.GetPermissionSet(ctx, userID)
		if err == nil {
			return set, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("permission cache read failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}

	perms, err := s.permissions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user permissions: %w", err)
	}

	set := make(domain.PermissionSet, len(perms))
	for _, perm := range perms {
		set.Add(perm.Key())
	}

	if s.cache != nil {
		if err := s.cache.SetPermissionSet(ctx, userID, set, s.cacheTTL); err != nil {
			s.logger.Warn("permission cache write failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}

	return set, nil
}

// HasPermission reports whether the user's effective permission set grants
// the supplied key.
func (s *AuthorizationService) HasPermission(ctx context.Context, userID string, key domain.PermissionKey) (bool, error) {
	set, err := s.ResolvePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	return set.Has(key), nil
}

// Authorize decides whether the actor may perform the operation guarded by
// the permission key. An error is returned only when the decision could not
// be computed.
func (s *AuthorizationService) Authorize(ctx context.Context, input AuthorizeInput) (Decision, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return Decision{Reason: DecisionReasonNotAuthenticated}, nil
	}
	if s.users == nil {
		return Decision{}, fmt.Errorf("authorization service not configured")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Decision{Reason: DecisionReasonNotAuthenticated}, nil
		}
		return Decision{}, fmt.Errorf("lookup user: %w", err)
	}

	if !user.IsActive() {
		s.recordDenial(ctx, userID, input, DecisionReasonAccountInactive)
		return Decision{Reason: DecisionReasonAccountInactive}, nil
	}

	set, err := s.ResolvePermissions(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	if !set.Has(input.Permission) {
		s.recordDenial(ctx, userID, input, DecisionReasonInsufficientPermission)
		return Decision{Reason: DecisionReasonInsufficientPermission}, nil
	}

	return Decision{Allowed: true, Reason: DecisionReasonAuthorized}, nil
}

// InvalidateUsers drops cached permission sets for the supplied users.
// Failures propagate so a stale grant can never be served past a write.
func (s *AuthorizationService) InvalidateUsers(ctx context.Context, userIDs ...string) error {
	if s.cache == nil || len(userIDs) == 0 {
		return nil
	}
	if err := s.cache.DeletePermissionSets(ctx, userIDs...); err != nil {
		return fmt.Errorf("invalidate permission cache: %w", err)
	}
	return nil
}

// InvalidateRole drops cached permission sets for every user holding the role.
func (s *AuthorizationService) InvalidateRole(ctx context.Context, roleID string) error {
	if s.cache == nil {
		return nil
	}
	if s.roles == nil {
		return fmt.Errorf("authorization service not configured")
	}

	userIDs, err := s.roles.ListUserIDsByRole(ctx, roleID)
	if err != nil {
		return fmt.Errorf("list role members: %w", err)
	}

	return s.InvalidateUsers(ctx, userIDs...)
}

func (s *AuthorizationService) recordDenial(ctx context.Context, userID string, input AuthorizeInput, reason string) {
	if s.audit == nil {
		return
	}

	entry := domain.AuditLogEntry{
		ID:           uuid.NewString(),
		UserID:       &userID,
		Action:       domain.AuditUnauthorizedAttempt,
		ResourceType: string(input.Permission.Module),
		ResourceID:   input.ResourceID,
		NewValues: map[string]any{
			"required_permission": input.Permission.String(),
			"reason":              reason,
		},
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
		CreatedAt: s.now().UTC(),
	}

	if err := s.audit.Insert(ctx, entry); err != nil {
		s.logger.Warn("record unauthorized attempt failed",
			zap.String("user_id", userID),
			zap.String("permission", input.Permission.String()),
			zap.Error(err),
		)
	}
}
