package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
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
	// ErrEmailExists indicates the email address is already registered.
	ErrEmailExists = errors.New("email already registered")
	// ErrInvalidEmail indicates the email address is malformed.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrPasswordPolicyViolation indicates the password failed policy validation.
	ErrPasswordPolicyViolation = errors.New("password does not meet policy requirements")
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

const passwordAlgorithm = "argon2id"

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	IPAddress *string
	UserAgent *string
}

// RegisterResult is a successful registration outcome.
type RegisterResult struct {
	User  domain.User
	Roles []string
}

// RegistrationService handles account creation.
type RegistrationService struct {
	users             port.UserRepository
	roles             port.RoleRepository
	store             port.UnitOfWork
	passwordValidator port.PasswordPolicyValidator
	events            port.EventPublisher
	logger            *zap.Logger
	now               func() time.Time
}

// NewRegistrationService constructs a RegistrationService instance.
func NewRegistrationService(
	users port.UserRepository,
	roles port.RoleRepository,
	store port.UnitOfWork,
	passwordValidator port.PasswordPolicyValidator,
	logger *zap.Logger,
) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		users:             users,
		roles:             roles,
		store:             store,
		passwordValidator: passwordValidator,
		logger:            logger,
		now:               time.Now,
	}
}

// WithEvents attaches an event publisher for registration notifications.
func (s *RegistrationService) WithEvents(events port.EventPublisher) *RegistrationService {
	s.events = events
	return s
}

// WithClock overrides the time source.
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	if now != nil {
		s.now = now
	}
	return s
}

// Register creates an account, assigns the default role, and records the
// creation in the audit trail within one transaction.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}

	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if firstName == "" {
		return nil, fmt.Errorf("first name is required")
	}
	if lastName == "" {
		return nil, fmt.Errorf("last name is required")
	}
	if input.Password == "" {
		return nil, fmt.Errorf("password is required")
	}
	if s.store == nil {
		return nil, fmt.Errorf("registration service not configured")
	}

	phone := trimmedPtr(input.Phone)

	if s.passwordValidator != nil {
		policyCtx := domain.PasswordContext{Email: email, Phone: phone}
		if err := s.passwordValidator.Validate(input.Password, policyCtx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
		}
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	defaultRole, err := s.roles.GetByName(ctx, domain.DefaultRoleName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("default role %q not provisioned", domain.DefaultRoleName)
		}
		return nil, fmt.Errorf("lookup default role: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		PasswordAlgo: passwordAlgorithm,
		Status:       domain.UserStatusActive,
		FirstName:    firstName,
		LastName:     lastName,
		Phone:        phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.WithinTx(ctx, func(tx port.TxRepositories) error {
		if err := tx.Users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrEmailExists
			}
			return fmt.Errorf("create user: %w", err)
		}

		assignment := domain.UserRole{
			UserID:     user.ID,
			RoleID:     defaultRole.ID,
			AssignedAt: now,
		}
		if _, err := tx.Roles.AssignToUser(ctx, assignment); err != nil {
			return fmt.Errorf("assign default role: %w", err)
		}

		entry := domain.AuditLogEntry{
			ID:           uuid.NewString(),
			UserID:       &user.ID,
			Action:       domain.AuditUserCreated,
			ResourceType: domain.ResourceTypeUser,
			ResourceID:   &user.ID,
			NewValues:    user.ProfileValues(),
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

	s.publishUserRegisteredEvent(ctx, domain.UserRegisteredEvent{
		EventID:      uuid.NewString(),
		UserID:       user.ID,
		Email:        user.Email,
		Status:       string(user.Status),
		RegisteredAt: now,
	})

	sanitized := user
	sanitized.PasswordHash = ""

	return &RegisterResult{
		User:  sanitized,
		Roles: []string{defaultRole.Name},
	}, nil
}

func (s *RegistrationService) publishUserRegisteredEvent(ctx context.Context, event domain.UserRegisteredEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishUserRegistered(ctx, event); err != nil {
		s.logger.Warn("publish user registered event failed",
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
	}
}

// normalizeEmail lowercases and trims an email address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// trimmedPtr trims the pointed-at string and drops it entirely when blank.
func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
