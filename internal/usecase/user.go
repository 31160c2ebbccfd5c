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
	"github.com/Ezra31448/soap-api/internal/infra/security"
	"github.com/Ezra31448/soap-api/internal/repository"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrCurrentPasswordRequired indicates the caller must supply the current password.
	ErrCurrentPasswordRequired = errors.New("current password is required")
	// ErrCurrentPasswordInvalid indicates the supplied current password is wrong.
	ErrCurrentPasswordInvalid = errors.New("current password is invalid")
	// ErrNewPasswordInvalid indicates the new password is unusable, e.g. equal to the old one.
	ErrNewPasswordInvalid = errors.New("new password is invalid")
	// ErrConcurrentUpdate indicates the profile changed between read and write.
	ErrConcurrentUpdate = errors.New("user was modified concurrently")
)

const (
	passwordChangeReason     = "password_change"
	accountDeactivatedReason = "account_deactivated"

	defaultUserPageSize = 20
	maxUserPageSize     = 100
)

// ProfileInput identifies whose profile an actor wants to read.
type ProfileInput struct {
	ActorID   string
	UserID    string
	IPAddress *string
	UserAgent *string
}

// ListUsersInput pages through the user directory.
type ListUsersInput struct {
	ActorID   string
	Page      int
	PageSize  int
	IPAddress *string
	UserAgent *string
}

// ListUsersResult is one page of users plus the total count.
type ListUsersResult struct {
	Users    []domain.User
	Total    int64
	Page     int
	PageSize int
}

// UpdateProfileInput mutates profile fields. Nil fields stay unchanged; a
// blank phone clears the stored number.
type UpdateProfileInput struct {
	ActorID           string
	UserID            string
	FirstName         *string
	LastName          *string
	Phone             *string
	ExpectedUpdatedAt time.Time
	IPAddress         *string
	UserAgent         *string
}

// AccountStatusInput activates or deactivates an account.
type AccountStatusInput struct {
	ActorID   string
	UserID    string
	IPAddress *string
	UserAgent *string
}

// ChangePasswordInput replaces a password. Self-service callers must supply
// the current password; administrators changing another account do not.
type ChangePasswordInput struct {
	ActorID         string
	UserID          string
	CurrentPassword string
	NewPassword     string
	IPAddress       *string
	UserAgent       *string
}

// UserService covers profile reads and writes, account state transitions,
// and password changes.
type UserService struct {
	users             port.UserRepository
	store             port.UnitOfWork
	authz             *AuthorizationService
	tokens            *TokenService
	passwordValidator port.PasswordPolicyValidator
	events            port.EventPublisher
	logger            *zap.Logger
	now               func() time.Time
}

// NewUserService constructs a UserService instance.
func NewUserService(
	users port.UserRepository,
	store port.UnitOfWork,
	authz *AuthorizationService,
	tokens *TokenService,
	passwordValidator port.PasswordPolicyValidator,
	logger *zap.Logger,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:             users,
		store:             store,
		authz:             authz,
		tokens:            tokens,
		passwordValidator: passwordValidator,
		logger:            logger,
		now:               time.Now,
	}
}

// WithEvents attaches an event publisher for password change notifications.
func (s *UserService) WithEvents(events port.EventPublisher) *UserService {
	s.events = events
	return s
}

// WithClock overrides the time source.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	if now != nil {
		s.now = now
	}
	return s
}

// GetProfile returns a user profile. Reading your own profile and reading
// someone else's are gated by different permissions.
func (s *UserService) GetProfile(ctx context.Context, input ProfileInput) (*domain.User, error) {
	targetID := strings.TrimSpace(input.UserID)
	if targetID == "" {
		targetID = strings.TrimSpace(input.ActorID)
	}
	if targetID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	key := domain.PermProfileReadAll
	if input.ActorID == targetID {
		key = domain.PermProfileReadOwn
	}
	if err := s.authorize(ctx, input.ActorID, key, &targetID, input.IPAddress, input.UserAgent); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	sanitized := *user
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

// ListUsers returns one page of the user directory, newest first.
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) (*ListUsersResult, error) {
	if err := s.authorize(ctx, input.ActorID, domain.PermUserRead, nil, input.IPAddress, input.UserAgent); err != nil {
		return nil, err
	}

	page := input.Page
	if page < 1 {
		page = 1
	}
	size := input.PageSize
	if size <= 0 {
		size = defaultUserPageSize
	}
	if size > maxUserPageSize {
		size = maxUserPageSize
	}

	users, err := s.users.List(ctx, size, (page-1)*size)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	for i := range users {
		users[i].PasswordHash = ""
	}

	return &ListUsersResult{
		Users:    users,
		Total:    total,
		Page:     page,
		PageSize: size,
	}, nil
}

// UpdateProfile mutates profile fields under compare-and-swap and records
// the old and new values in one transaction with the write.
func (s *UserService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*domain.User, error) {
	targetID := strings.TrimSpace(input.UserID)
	if targetID == "" {
		targetID = strings.TrimSpace(input.ActorID)
	}
	if targetID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if s.store == nil {
		return nil, fmt.Errorf("user service not configured")
	}

	key := domain.PermProfileUpdateAll
	if input.ActorID == targetID {
		key = domain.PermProfileUpdateOwn
	}
	if err := s.authorize(ctx, input.ActorID, key, &targetID, input.IPAddress, input.UserAgent); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	old := user.ProfileValues()
	updated := *user

	if input.FirstName != nil {
		firstName := strings.TrimSpace(*input.FirstName)
		if firstName == "" {
			return nil, fmt.Errorf("first name is required")
		}
		updated.FirstName = firstName
	}
	if input.LastName != nil {
		lastName := strings.TrimSpace(*input.LastName)
		if lastName == "" {
			return nil, fmt.Errorf("last name is required")
		}
		updated.LastName = lastName
	}
	if input.Phone != nil {
		updated.Phone = trimmedPtr(input.Phone)
	}

	if updated.FirstName == user.FirstName &&
		updated.LastName == user.LastName &&
		equalPtr(updated.Phone, user.Phone) {
		sanitized := *user
		sanitized.PasswordHash = ""
		return &sanitized, nil
	}

	expected := user.UpdatedAt
	if !input.ExpectedUpdatedAt.IsZero() {
		expected = input.ExpectedUpdatedAt
	}

	now := s.now().UTC()
	updated.UpdatedAt = now

	err = s.store.WithinTx(ctx, func(tx port.TxRepositories) error {
		if err := tx.Users.Update(ctx, updated, expected); err != nil {
			if errors.Is(err, repository.ErrConcurrentUpdate) {
				return ErrConcurrentUpdate
			}
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("update user: %w", err)
		}

		entry := domain.AuditLogEntry{
			ID:           uuid.NewString(),
			UserID:       &targetID,
			Action:       domain.AuditUserUpdated,
			ResourceType: domain.ResourceTypeUser,
			ResourceID:   &targetID,
			OldValues:    old,
			NewValues:    updated.ProfileValues(),
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

	sanitized := updated
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

// DeactivateUser transitions an account to INACTIVE and revokes every
// outstanding credential. Accounts are never physically deleted.
func (s *UserService) DeactivateUser(ctx context.Context, input AccountStatusInput) error {
	if err := s.authorize(ctx, input.ActorID, domain.PermUserDelete, &input.UserID, input.IPAddress, input.UserAgent); err != nil {
		return err
	}

	if err := s.transitionStatus(ctx, input, domain.UserStatusInactive, domain.AuditUserDeactivated); err != nil {
		return err
	}

	if s.tokens != nil {
		if err := s.tokens.RevokeAllForUser(ctx, input.UserID, input.ActorID, accountDeactivatedReason); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}

	return nil
}

// ActivateUser transitions an account back to ACTIVE.
func (s *UserService) ActivateUser(ctx context.Context, input AccountStatusInput) error {
	if err := s.authorize(ctx, input.ActorID, domain.PermUserUpdate, &input.UserID, input.IPAddress, input.UserAgent); err != nil {
		return err
	}

	return s.transitionStatus(ctx, input, domain.UserStatusActive, domain.AuditUserActivated)
}

// ChangePassword replaces the password and revokes every outstanding
// credential before returning.
func (s *UserService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	targetID := strings.TrimSpace(input.UserID)
	if targetID == "" {
		targetID = strings.TrimSpace(input.ActorID)
	}
	if targetID == "" {
		return fmt.Errorf("user id is required")
	}
	if s.store == nil || s.tokens == nil {
		return fmt.Errorf("user service not configured")
	}

	self := input.ActorID == targetID
	if !self {
		if err := s.authorize(ctx, input.ActorID, domain.PermUserUpdateAll, &targetID, input.IPAddress, input.UserAgent); err != nil {
			return err
		}
	}

	user, err := s.getUser(ctx, targetID)
	if err != nil {
		return err
	}

	if self {
		if input.CurrentPassword == "" {
			return ErrCurrentPasswordRequired
		}
		ok, err := security.VerifyPassword(input.CurrentPassword, user.PasswordHash)
		if err != nil {
			return fmt.Errorf("verify current password: %w", err)
		}
		if !ok {
			return ErrCurrentPasswordInvalid
		}
	}

	if input.NewPassword == "" {
		return fmt.Errorf("new password is required")
	}

	if s.passwordValidator != nil {
		policyCtx := domain.PasswordContext{Email: user.Email, Phone: user.Phone}
		if err := s.passwordValidator.Validate(input.NewPassword, policyCtx); err != nil {
			return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
		}
	}

	same, err := security.VerifyPassword(input.NewPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("compare password: %w", err)
	}
	if same {
		return ErrNewPasswordInvalid
	}

	newHash, err := security.HashPassword(input.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	actorID := strings.TrimSpace(input.ActorID)

	err = s.store.WithinTx(ctx, func(tx port.TxRepositories) error {
		if err := tx.Users.UpdatePassword(ctx, user.ID, newHash, passwordAlgorithm, now); err != nil {
			return fmt.Errorf("update password: %w", err)
		}

		entry := domain.AuditLogEntry{
			ID:           uuid.NewString(),
			UserID:       &user.ID,
			Action:       domain.AuditPasswordChanged,
			ResourceType: domain.ResourceTypeUser,
			ResourceID:   &user.ID,
			NewValues:    map[string]any{"changed_by": actorID},
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
		return err
	}

	if err := s.tokens.RevokeAllForUser(ctx, user.ID, actorID, passwordChangeReason); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.publishPasswordChangedEvent(ctx, domain.PasswordChangedEvent{
		EventID:         uuid.NewString(),
		UserID:          user.ID,
		ChangedAt:       now,
		ChangedBy:       actorID,
		SessionsRevoked: true,
	})

	return nil
}

func (s *UserService) transitionStatus(ctx context.Context, input AccountStatusInput, status domain.UserStatus, action domain.AuditAction) error {
	if s.store == nil {
		return fmt.Errorf("user service not configured")
	}

	user, err := s.getUser(ctx, input.UserID)
	if err != nil {
		return err
	}
	if user.Status == status {
		return nil
	}

	now := s.now().UTC()

	return s.store.WithinTx(ctx, func(tx port.TxRepositories) error {
		if err := tx.Users.UpdateStatus(ctx, user.ID, status, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("update status: %w", err)
		}

		entry := domain.AuditLogEntry{
			ID:           uuid.NewString(),
			UserID:       &user.ID,
			Action:       action,
			ResourceType: domain.ResourceTypeUser,
			ResourceID:   &user.ID,
			OldValues:    map[string]any{"status": string(user.Status)},
			NewValues:    map[string]any{"status": string(status)},
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

func (s *UserService) authorize(ctx context.Context, actorID string, key domain.PermissionKey, resourceID, ip, userAgent *string) error {
	if s.authz == nil {
		return fmt.Errorf("user service not configured")
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

func (s *UserService) getUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, strings.TrimSpace(userID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *UserService) publishPasswordChangedEvent(ctx context.Context, event domain.PasswordChangedEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed event failed",
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
	}
}
