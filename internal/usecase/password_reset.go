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
	"github.com/Ezra31448/soap-api/internal/infra/config"
	"github.com/Ezra31448/soap-api/internal/infra/security"
	"github.com/Ezra31448/soap-api/internal/repository"
)

var (
	// ErrPasswordResetTokenInvalid indicates the reset token is unknown, consumed, or revoked.
	ErrPasswordResetTokenInvalid = errors.New("password reset token invalid")
	// ErrPasswordResetTokenExpired indicates the reset token expired before redemption.
	ErrPasswordResetTokenExpired = errors.New("password reset token expired")
)

const (
	defaultResetTTL             = time.Hour
	resetTokenBytes             = 32
	passwordResetRateLimitScope = "password_reset"
	passwordResetReason         = "password_reset"
)

// RequestPasswordResetInput starts a reset flow for an email address.
type RequestPasswordResetInput struct {
	Email     string
	IPAddress *string
	UserAgent *string
}

// RequestPasswordResetResult acknowledges a reset request. The response is
// identical for known and unknown addresses; Token is populated only for
// known accounts and must never reach the requester directly.
type RequestPasswordResetResult struct {
	Token             string
	MaskedDestination string
	ExpiresAt         time.Time
}

// ResetPasswordInput redeems a reset token for a new password.
type ResetPasswordInput struct {
	Token       string
	NewPassword string
	IPAddress   *string
	UserAgent   *string
}

// PasswordResetService manages the request/redeem reset flow.
type PasswordResetService struct {
	cfg               *config.AppConfig
	users             port.UserRepository
	resets            port.TokenRepository
	store             port.UnitOfWork
	passwordValidator port.PasswordPolicyValidator
	tokens            *TokenService
	audit             *AuditService
	rateLimits        port.RateLimitStore
	events            port.EventPublisher
	logger            *zap.Logger
	resetTTL          time.Duration
	now               func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService instance.
func NewPasswordResetService(
	cfg *config.AppConfig,
	users port.UserRepository,
	resets port.TokenRepository,
	store port.UnitOfWork,
	passwordValidator port.PasswordPolicyValidator,
	tokens *TokenService,
	audit *AuditService,
	logger *zap.Logger,
) *PasswordResetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PasswordResetService{
		cfg:               cfg,
		users:             users,
		resets:            resets,
		store:             store,
		passwordValidator: passwordValidator,
		tokens:            tokens,
		audit:             audit,
		logger:            logger,
		resetTTL:          defaultResetTTL,
		now:               time.Now,
	}
}

// WithRateLimiter attaches a sliding-window store for reset throttling.
func (s *PasswordResetService) WithRateLimiter(store port.RateLimitStore) *PasswordResetService {
	s.rateLimits = store
	return s
}

// WithEvents attaches an event publisher for reset notifications.
func (s *PasswordResetService) WithEvents(events port.EventPublisher) *PasswordResetService {
	s.events = events
	return s
}

// WithResetTTL overrides the reset token lifetime.
func (s *PasswordResetService) WithResetTTL(ttl time.Duration) *PasswordResetService {
	if ttl > 0 {
		s.resetTTL = ttl
	}
	return s
}

// WithClock overrides the time source.
func (s *PasswordResetService) WithClock(now func() time.Time) *PasswordResetService {
	if now != nil {
		s.now = now
	}
	return s
}

// RequestPasswordReset creates a single-use reset token for the account
// behind the email. Unknown addresses produce the same acknowledgement so
// the endpoint cannot be used to probe for accounts.
func (s *PasswordResetService) RequestPasswordReset(ctx context.Context, input RequestPasswordResetInput) (*RequestPasswordResetResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if s.resets == nil {
		return nil, fmt.Errorf("password reset service not configured")
	}

	now := s.now().UTC()

	if err := s.enforceResetRateLimit(ctx, email, now); err != nil {
		return nil, err
	}

	result := &RequestPasswordResetResult{
		MaskedDestination: maskEmail(email),
		ExpiresAt:         now.Add(s.resetTTL),
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return result, nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	raw, err := security.GenerateSecureToken(resetTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}

	record := domain.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(raw),
		IP:        input.IPAddress,
		UserAgent: input.UserAgent,
		CreatedAt: now,
		ExpiresAt: result.ExpiresAt,
	}

	if err := s.resets.RevokePasswordResetsForUser(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("revoke outstanding reset tokens: %w", err)
	}
	if err := s.resets.CreatePasswordReset(ctx, record); err != nil {
		return nil, fmt.Errorf("store reset token: %w", err)
	}

	if s.audit != nil {
		s.audit.RecordAuthEvent(ctx, domain.AuditLogEntry{
			UserID:       &user.ID,
			Action:       domain.AuditPasswordResetReq,
			ResourceType: domain.ResourceTypeUser,
			ResourceID:   &user.ID,
			NewValues: map[string]any{
				"request_id": record.ID,
				"expires_at": record.ExpiresAt.Format(time.RFC3339),
			},
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
			CreatedAt: now,
		})
	}

	s.publishResetRequestedEvent(ctx, domain.PasswordResetRequestedEvent{
		EventID:           uuid.NewString(),
		UserID:            user.ID,
		RequestID:         record.ID,
		RequestedAt:       now,
		MaskedDestination: result.MaskedDestination,
		IPAddress:         input.IPAddress,
		ExpiresAt:         record.ExpiresAt,
	})

	result.Token = raw
	return result, nil
}

// ResetPassword redeems a reset token, applies the new password, and revokes
// every outstanding credential of the account.
func (s *PasswordResetService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	raw := strings.TrimSpace(input.Token)
	if raw == "" {
		return fmt.Errorf("reset token is required")
	}
	if input.NewPassword == "" {
		return fmt.Errorf("new password is required")
	}
	if s.store == nil || s.tokens == nil {
		return fmt.Errorf("password reset service not configured")
	}

	now := s.now().UTC()

	record, err := s.resets.GetPasswordResetByHash(ctx, security.HashToken(raw))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPasswordResetTokenInvalid
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	if record.UsedAt != nil || record.RevokedAt != nil {
		return ErrPasswordResetTokenInvalid
	}
	if record.IsExpired(now) {
		return ErrPasswordResetTokenExpired
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPasswordResetTokenInvalid
		}
		return fmt.Errorf("lookup user: %w", err)
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

	err = s.store.WithinTx(ctx, func(tx port.TxRepositories) error {
		if err := tx.Users.UpdatePassword(ctx, user.ID, newHash, passwordAlgorithm, now); err != nil {
			return fmt.Errorf("update password: %w", err)
		}

		consumed, err := tx.Tokens.ConsumePasswordReset(ctx, record.ID, now)
		if err != nil {
			return fmt.Errorf("consume reset token: %w", err)
		}
		if !consumed {
			return ErrPasswordResetTokenInvalid
		}

		entry := domain.AuditLogEntry{
			ID:           uuid.NewString(),
			UserID:       &user.ID,
			Action:       domain.AuditPasswordResetDone,
			ResourceType: domain.ResourceTypeUser,
			ResourceID:   &user.ID,
			NewValues:    map[string]any{"request_id": record.ID},
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

	if err := s.tokens.RevokeAllForUser(ctx, user.ID, user.ID, passwordResetReason); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.publishPasswordChangedEvent(ctx, domain.PasswordChangedEvent{
		EventID:         uuid.NewString(),
		UserID:          user.ID,
		ChangedAt:       now,
		ChangedBy:       user.ID,
		SessionsRevoked: true,
	})

	return nil
}

func (s *PasswordResetService) enforceResetRateLimit(ctx context.Context, identifier string, now time.Time) error {
	if s.rateLimits == nil || s.cfg == nil {
		return nil
	}

	limit := s.cfg.RateLimit.PasswordResetMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := s.cfg.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Hour
	}

	identifierKey := normalizeIdentifierKey(identifier)
	if identifierKey == "" {
		return nil
	}

	storageKey := fmt.Sprintf("%s:%s", passwordResetRateLimitScope, identifierKey)

	if err := s.rateLimits.TrimWindow(ctx, storageKey, window, now); err != nil {
		s.logger.Warn("password reset rate limit trim failed", zap.String("scope", passwordResetRateLimitScope), zap.Error(err))
		return nil
	}

	count, err := s.rateLimits.CountAttempts(ctx, storageKey, window, now)
	if err != nil {
		s.logger.Warn("password reset rate limit count failed", zap.String("scope", passwordResetRateLimitScope), zap.Error(err))
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
			s.logger.Warn("password reset rate limit oldest lookup failed", zap.Error(err))
		}
		return &RateLimitExceededError{Scope: passwordResetRateLimitScope, RetryAfter: retryAfter}
	}

	if err := s.rateLimits.RecordAttempt(ctx, storageKey, now); err != nil {
		s.logger.Warn("password reset rate limit record failed", zap.Error(err))
	}

	return nil
}

func (s *PasswordResetService) publishResetRequestedEvent(ctx context.Context, event domain.PasswordResetRequestedEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
		s.logger.Warn("publish password reset requested event failed",
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
	}
}

func (s *PasswordResetService) publishPasswordChangedEvent(ctx context.Context, event domain.PasswordChangedEvent) {
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

// maskEmail hides most of the local part: "someone@example.com" becomes
// "som***@example.com".
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}

	local := email[:at]
	domainPart := email[at:]
	if len(local) <= 3 {
		return "***" + domainPart
	}

	return local[:3] + "***" + domainPart
}
