package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/core/port"
	"github.com/Ezra31448/soap-api/internal/infra/config"
	"github.com/Ezra31448/soap-api/internal/infra/security"
)

var (
	// ErrInvalidAccessToken indicates the provided access token is malformed or signature validation failed.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the provided access token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
	// ErrRevokedAccessToken indicates the provided access token was revoked before expiry.
	ErrRevokedAccessToken = errors.New("access token revoked")
	// ErrRevocationUnavailable indicates revocation state could not be confirmed under a strict policy.
	ErrRevocationUnavailable = errors.New("revocation state unavailable")
)

const defaultAccessTokenTTL = time.Hour

// TokenService issues, verifies, and revokes signed access tokens. Tokens
// are stateless; early invalidation goes through the revocation registry.
type TokenService struct {
	cfg         *config.AppConfig
	keys        *security.JWTManager
	signingKID  string
	revocations port.RevocationStore
	events      port.EventPublisher
	metrics     port.EngineMetrics
	policy      domain.DegradationPolicy
	logger      *zap.Logger
	now         func() time.Time
}

// NewTokenService constructs a TokenService instance. signingKID identifies
// the key the manager signs with and is published in the token header.
func NewTokenService(
	cfg *config.AppConfig,
	keys *security.JWTManager,
	signingKID string,
	revocations port.RevocationStore,
	logger *zap.Logger,
) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{
		cfg:         cfg,
		keys:        keys,
		signingKID:  signingKID,
		revocations: revocations,
		policy:      domain.NewDegradationPolicy(domain.DegradationPolicyModeLenient),
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the time source used for issuance and expiry checks.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithDegradationPolicy sets the behavior applied when the revocation
// registry cannot be consulted.
func (s *TokenService) WithDegradationPolicy(policy domain.DegradationPolicy) *TokenService {
	s.policy = policy
	return s
}

// WithEvents attaches an event publisher for revocation notifications.
func (s *TokenService) WithEvents(events port.EventPublisher) *TokenService {
	s.events = events
	return s
}

// WithMetrics attaches engine counters for issuance and revocation.
func (s *TokenService) WithMetrics(metrics port.EngineMetrics) *TokenService {
	s.metrics = metrics
	return s
}

// Issue signs a fresh access token for the user carrying the supplied role
// names. Only ACTIVE users receive credentials.
func (s *TokenService) Issue(ctx context.Context, user domain.User, roles []string) (domain.IssuedToken, error) {
	if s.keys == nil || s.signingKID == "" {
		return domain.IssuedToken{}, fmt.Errorf("token service not configured")
	}
	if strings.TrimSpace(user.ID) == "" {
		return domain.IssuedToken{}, ErrUserNotFound
	}
	if !user.IsActive() {
		return domain.IssuedToken{}, ErrInactiveAccount
	}

	issuer := s.issuer()
	claims, err := security.NewAccessTokenClaims(security.AccessTokenOptions{
		UserID:   user.ID,
		Roles:    roles,
		Issuer:   issuer,
		Audience: []string{issuer},
		Subject:  user.ID,
		TTL:      s.accessTokenTTL(),
		IssuedAt: s.now().UTC(),
		JTI:      uuid.NewString(),
	})
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("build access token claims: %w", err)
	}

	signed, err := s.keys.SignAccessToken(s.signingKID, claims)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("sign access token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.TokenIssued()
	}

	return domain.IssuedToken{
		Credential: signed,
		TokenID:    claims.ID,
		UserID:     user.ID,
		IssuedAt:   claims.IssuedAt.Time,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

// Verify checks signature, expiry, and revocation state of a presented
// credential and returns its verified claims.
func (s *TokenService) Verify(ctx context.Context, credential string) (*domain.TokenClaims, error) {
	claims, err := s.parseCredential(credential)
	if err != nil {
		return nil, err
	}

	tokenID := strings.TrimSpace(claims.ID)
	if tokenID == "" {
		return nil, ErrInvalidAccessToken
	}

	if s.revocations != nil {
		revoked, _, err := s.revocations.IsRevoked(ctx, tokenID)
		if err != nil {
			if !s.policy.AllowsFallback(domain.DegradationReasonRegistryUnavailable) {
				return nil, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
			}
			s.logger.Warn("revocation registry unavailable, accepting token",
				zap.String("token_id", tokenID),
				zap.Error(err),
			)
		} else if revoked {
			return nil, ErrRevokedAccessToken
		}

		marker, err := s.revocations.SubjectRevocation(ctx, claims.UserID)
		if err != nil {
			if !s.policy.AllowsFallback(domain.DegradationReasonSubjectMarkerUnavailable) {
				return nil, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
			}
			s.logger.Warn("subject revocation lookup failed, accepting token",
				zap.String("user_id", claims.UserID),
				zap.Error(err),
			)
		} else if marker != nil && claims.IssuedAt != nil && marker.Covers(claims.IssuedAt.Time) {
			return nil, ErrRevokedAccessToken
		}
	}

	verified := &domain.TokenClaims{
		UserID:  claims.UserID,
		TokenID: tokenID,
		Roles:   claims.Roles,
	}
	if claims.IssuedAt != nil {
		verified.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		verified.ExpiresAt = claims.ExpiresAt.Time
	}

	return verified, nil
}

// Revoke invalidates a single credential ahead of expiry. Revoking an
// already revoked or expired credential is a no-op.
func (s *TokenService) Revoke(ctx context.Context, credential, reason string) error {
	claims, err := s.parseCredential(credential)
	if err != nil {
		if errors.Is(err, ErrExpiredAccessToken) {
			return nil
		}
		return err
	}

	tokenID := strings.TrimSpace(claims.ID)
	if tokenID == "" {
		return ErrInvalidAccessToken
	}

	ttl := s.accessTokenTTL()
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
		ttl = expiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		return nil
	}

	if s.revocations == nil {
		return fmt.Errorf("revocation store not configured")
	}
	if err := s.revocations.MarkRevoked(ctx, tokenID, reason, ttl); err != nil {
		return fmt.Errorf("mark token revoked: %w", err)
	}

	if s.metrics != nil {
		s.metrics.TokenRevoked("token")
	}

	s.publishTokenRevokedEvent(ctx, domain.TokenRevokedEvent{
		EventID:   uuid.NewString(),
		TokenID:   tokenID,
		SubjectID: claims.UserID,
		ExpiresAt: expiresAt,
		Reason:    reason,
		RevokedAt: s.now().UTC(),
	})

	return nil
}

// RevokeAllForUser invalidates every outstanding credential of the user by
// writing a subject marker covering everything issued up to now.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID, revokedBy, reason string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if s.revocations == nil {
		return fmt.Errorf("revocation store not configured")
	}

	revokedAt := s.now().UTC()
	marker := domain.SubjectRevocation{
		SubjectID: userID,
		Since:     revokedAt,
		Reason:    reason,
	}

	if err := s.revocations.MarkSubjectRevoked(ctx, marker, s.accessTokenTTL()); err != nil {
		return fmt.Errorf("mark subject revoked: %w", err)
	}

	if s.metrics != nil {
		s.metrics.TokenRevoked("subject")
	}

	s.publishSessionsRevokedEvent(ctx, domain.SessionsRevokedEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		RevokedAt: revokedAt,
		RevokedBy: revokedBy,
		Reason:    reason,
	})

	return nil
}

func (s *TokenService) parseCredential(credential string) (*security.AccessTokenClaims, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, fmt.Errorf("access token is required")
	}
	if s.keys == nil {
		return nil, fmt.Errorf("token service not configured")
	}

	issuer := s.issuer()
	claims := &security.AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		kid, ok := t.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("kid header not found")
		}

		return s.keys.GetVerificationKey(kid)
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(issuer),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, ErrInvalidAccessToken
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrInvalidAccessToken
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}

func (s *TokenService) issuer() string {
	if s.cfg != nil && strings.TrimSpace(s.cfg.App.Name) != "" {
		return s.cfg.App.Name
	}
	return "auth-engine"
}

func (s *TokenService) accessTokenTTL() time.Duration {
	if s.cfg != nil && s.cfg.JWT.AccessTokenTTL > 0 {
		return s.cfg.JWT.AccessTokenTTL
	}
	return defaultAccessTokenTTL
}

func (s *TokenService) publishTokenRevokedEvent(ctx context.Context, event domain.TokenRevokedEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTokenRevoked(ctx, event); err != nil {
		s.logger.Warn("publish token revoked event failed",
			zap.String("token_id", event.TokenID),
			zap.Error(err),
		)
	}
}

func (s *TokenService) publishSessionsRevokedEvent(ctx context.Context, event domain.SessionsRevokedEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishSessionsRevoked(ctx, event); err != nil {
		s.logger.Warn("publish sessions revoked event failed",
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
	}
}
