package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/core/port"
	"github.com/Ezra31448/soap-api/internal/infra/config"
	"github.com/Ezra31448/soap-api/internal/infra/security"
	"github.com/Ezra31448/soap-api/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account is deactivated or suspended.
	ErrInactiveAccount = errors.New("account is not active")
)

const (
	loginRateLimitScope   = "login"
	logoutReason          = "logout"
	sessionsRevokedReason = "sessions_revoked"
)

// AuthenticateInput carries the credentials and request context of a login
// attempt.
type AuthenticateInput struct {
	Email     string
	Password  string
	IPAddress *string
	UserAgent *string
}

// AuthenticateResult is a successful login outcome.
type AuthenticateResult struct {
	Token domain.IssuedToken
	User  domain.User
	Roles []string
}

// LogoutInput identifies the credential being surrendered.
type LogoutInput struct {
	Credential string
	IPAddress  *string
	UserAgent  *string
}

// RevokeAllSessionsInput invalidates every outstanding credential of a user.
type RevokeAllSessionsInput struct {
	ActorID   string
	UserID    string
	Reason    string
	IPAddress *string
	UserAgent *string
}

// AuthService coordinates authentication flows.
type AuthService struct {
	cfg        *config.AppConfig
	users      port.UserRepository
	roles      port.RoleRepository
	tokens     *TokenService
	authz      *AuthorizationService
	audit      *AuditService
	rateLimits port.RateLimitStore
	metrics    port.EngineMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	cfg *config.AppConfig,
	users port.UserRepository,
	roles port.RoleRepository,
	tokens *TokenService,
	authz *AuthorizationService,
	audit *AuditService,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		cfg:    cfg,
		users:  users,
		roles:  roles,
		tokens: tokens,
		authz:  authz,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// WithRateLimiter attaches a sliding-window store for login throttling.
func (s *AuthService) WithRateLimiter(store port.RateLimitStore) *AuthService {
	s.rateLimits = store
	return s
}

// WithMetrics attaches engine counters for login outcomes.
func (s *AuthService) WithMetrics(metrics port.EngineMetrics) *AuthService {
	s.metrics = metrics
	return s
}

// WithClock overrides the time source.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Authenticate validates credentials and issues an access token. Unknown
// email and wrong password collapse into the same opaque failure.
func (s *AuthService) Authenticate(ctx context.Context, input AuthenticateInput) (*AuthenticateResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if input.Password == "" {
		return nil, fmt.Errorf("password is required")
	}
	if s.tokens == nil {
		return nil, fmt.Errorf("auth service not configured")
	}

	now := s.now().UTC()

	if err := s.enforceLoginRateLimit(ctx, email, input.IPAddress, now); err != nil {
		s.countLogin("rate_limited")
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordLoginFailure(ctx, nil, email, "unknown_email", input, now)
			s.countLogin("invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.IsActive() {
		s.recordLoginFailure(ctx, &user.ID, email, "account_"+strings.ToLower(string(user.Status)), input, now)
		s.countLogin("inactive")
		return nil, ErrInactiveAccount
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.recordLoginFailure(ctx, &user.ID, email, "invalid_password", input, now)
		s.countLogin("invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	roleNames, err := s.collectRoles(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("collect roles: %w", err)
	}

	issued, err := s.tokens.Issue(ctx, *user, roleNames)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("record last login failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	if s.audit != nil {
		s.audit.RecordAuthEvent(ctx, domain.AuditLogEntry{
			UserID:       &user.ID,
			Action:       domain.AuditLoginSuccess,
			ResourceType: domain.ResourceTypeUser,
			ResourceID:   &user.ID,
			NewValues:    map[string]any{"token_id": issued.TokenID},
			IPAddress:    input.IPAddress,
			UserAgent:    input.UserAgent,
			CreatedAt:    now,
		})
	}

	s.countLogin("success")

	sanitized := *user
	sanitized.PasswordHash = ""

	return &AuthenticateResult{
		Token: issued,
		User:  sanitized,
		Roles: roleNames,
	}, nil
}

// Logout verifies and revokes the presented credential.
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if s.tokens == nil {
		return fmt.Errorf("auth service not configured")
	}

	claims, err := s.tokens.Verify(ctx, input.Credential)
	if err != nil {
		return err
	}

	if err := s.tokens.Revoke(ctx, input.Credential, logoutReason); err != nil {
		return err
	}

	if s.audit != nil {
		s.audit.RecordAuthEvent(ctx, domain.AuditLogEntry{
			UserID:       &claims.UserID,
			Action:       domain.AuditLogout,
			ResourceType: domain.ResourceTypeSession,
			ResourceID:   &claims.TokenID,
			IPAddress:    input.IPAddress,
			UserAgent:    input.UserAgent,
			CreatedAt:    s.now().UTC(),
		})
	}

	return nil
}

// VerifyAccessToken exposes credential verification to transports.
func (s *AuthService) VerifyAccessToken(ctx context.Context, credential string) (*domain.TokenClaims, error) {
	if s.tokens == nil {
		return nil, fmt.Errorf("auth service not configured")
	}
	return s.tokens.Verify(ctx, credential)
}

// RevokeAllSessions invalidates every outstanding credential of a user.
// Users may revoke their own; revoking another user's requires the session
// revoke-all permission.
func (s *AuthService) RevokeAllSessions(ctx context.Context, input RevokeAllSessionsInput) error {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if s.tokens == nil {
		return fmt.Errorf("auth service not configured")
	}

	if input.ActorID != userID {
		if s.authz == nil {
			return fmt.Errorf("auth service not configured")
		}
		decision, err := s.authz.Authorize(ctx, AuthorizeInput{
			UserID:     input.ActorID,
			Permission: domain.PermSessionRevokeAll,
			ResourceID: &userID,
			IPAddress:  input.IPAddress,
			UserAgent:  input.UserAgent,
		})
		if err != nil {
			return fmt.Errorf("authorize session revocation: %w", err)
		}
		if !decision.Allowed {
			return ErrPermissionDenied
		}
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = sessionsRevokedReason
	}

	if err := s.tokens.RevokeAllForUser(ctx, userID, input.ActorID, reason); err != nil {
		return err
	}

	if s.audit != nil {
		return s.audit.Record(ctx, domain.AuditLogEntry{
			UserID:       &userID,
			Action:       domain.AuditSessionsRevoked,
			ResourceType: domain.ResourceTypeSession,
			NewValues: map[string]any{
				"revoked_by": input.ActorID,
				"reason":     reason,
			},
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
			CreatedAt: s.now().UTC(),
		})
	}

	return nil
}

func (s *AuthService) collectRoles(ctx context.Context, userID string) ([]string, error) {
	if s.roles == nil {
		return nil, nil
	}

	roles, err := s.roles.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}

	return names, nil
}

func (s *AuthService) enforceLoginRateLimit(ctx context.Context, email string, ip *string, now time.Time) error {
	if s.rateLimits == nil || s.cfg == nil {
		return nil
	}

	limit := s.cfg.RateLimit.LoginMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := s.cfg.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Hour
	}

	identifierKey := normalizeIdentifierKey(email)
	if identifierKey == "" {
		return nil
	}
	if ip != nil && strings.TrimSpace(*ip) != "" {
		identifierKey = fmt.Sprintf("%s:%s", identifierKey, strings.TrimSpace(*ip))
	}

	storageKey := fmt.Sprintf("%s:%s", loginRateLimitScope, identifierKey)

	if err := s.rateLimits.TrimWindow(ctx, storageKey, window, now); err != nil {
		s.logger.Warn("login rate limit trim failed", zap.String("scope", loginRateLimitScope), zap.Error(err))
		return nil
	}

	count, err := s.rateLimits.CountAttempts(ctx, storageKey, window, now)
	if err != nil {
		s.logger.Warn("login rate limit count failed", zap.String("scope", loginRateLimitScope), zap.Error(err))
		return nil
	}

	if count >= limit {
		retryAfter := time.Duration(0)
		if oldest, ok, err := s.rateLimits.OldestAttempt(ctx, storageKey, window, now); err == nil && ok {
			reset := oldest.Add(window)
			if reset.After(now) {
				retryAfter = reset.Sub(now)
			}
		} else if err != nil {
			s.logger.Warn("login rate limit oldest lookup failed", zap.Error(err))
		}
		return &RateLimitExceededError{Scope: loginRateLimitScope, RetryAfter: retryAfter}
	}

	if err := s.rateLimits.RecordAttempt(ctx, storageKey, now); err != nil {
		s.logger.Warn("login rate limit record failed", zap.Error(err))
	}

	return nil
}

func (s *AuthService) recordLoginFailure(ctx context.Context, userID *string, email, reason string, input AuthenticateInput, now time.Time) {
	if s.audit == nil {
		return
	}

	s.audit.RecordAuthEvent(ctx, domain.AuditLogEntry{
		UserID:       userID,
		Action:       domain.AuditLoginFailure,
		ResourceType: domain.ResourceTypeUser,
		ResourceID:   userID,
		NewValues: map[string]any{
			"email":  email,
			"reason": reason,
		},
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
		CreatedAt: now,
	})
}

func (s *AuthService) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttempt(outcome)
	}
}
