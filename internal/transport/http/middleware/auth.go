package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/usecase"
)

const claimsKey = "access_claims"

// CredentialVerifier is the slice of the auth service the middleware needs:
// it turns a presented bearer credential into verified claims.
type CredentialVerifier interface {
	VerifyAccessToken(ctx context.Context, credential string) (*domain.TokenClaims, error)
}

// ErrorResponse mirrors the handlers error payload so aborted requests look
// identical to handler failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, message string) ErrorResponse {
	return ErrorResponse{
		Error:   message,
		TraceID: GetTraceID(c),
	}
}

// RequireAuth validates the bearer credential and records the actor on the
// request context. Requests with revoked or expired credentials are refused
// before any handler runs.
func RequireAuth(auth CredentialVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		credential := strings.TrimSpace(parts[1])
		if credential == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing access token"))
			return
		}

		claims, err := auth.VerifyAccessToken(c.Request.Context(), credential)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrExpiredAccessToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "access token expired"))
			case errors.Is(err, usecase.ErrRevokedAccessToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "access token revoked"))
			case errors.Is(err, usecase.ErrInvalidAccessToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid access token"))
			case errors.Is(err, usecase.ErrRevocationUnavailable):
				c.AbortWithStatusJSON(http.StatusServiceUnavailable,
					newErrorResponse(c, "revocation state unavailable"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		c.Set(ActorIDKey, claims.UserID)
		c.Set(claimsKey, claims)
		GetRequestMeta(c).ActorID = claims.UserID

		c.Next()
	}
}

// ActorID returns the authenticated user ID recorded by RequireAuth.
func ActorID(c *gin.Context) (string, bool) {
	value, exists := c.Get(ActorIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// AccessClaims returns the verified token claims, or nil before RequireAuth.
func AccessClaims(c *gin.Context) *domain.TokenClaims {
	value, exists := c.Get(claimsKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*domain.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
