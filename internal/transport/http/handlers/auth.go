package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Ezra31448/soap-api/internal/transport/http/middleware"
	"github.com/Ezra31448/soap-api/internal/usecase"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds authentication routes, applying optional middleware
// ahead of the login handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	if len(loginMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
		chain = append(chain, h.Login)
		r.POST("/login", chain...)
	} else {
		r.POST("/login", h.Login)
	}

	authed := middleware.RequireAuth(h.auth)
	r.POST("/logout", authed, h.Logout)
	r.POST("/sessions/revoke", authed, h.RevokeSessions)
}

// Login verifies credentials and issues a signed access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	ip, userAgent := clientMeta(c)

	result, err := h.auth.Authenticate(c.Request.Context(), usecase.AuthenticateInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: ip,
		UserAgent: userAgent,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
			{Err: usecase.ErrInactiveAccount, Status: http.StatusForbidden, Message: "account is not active"},
		}, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: result.Token.Credential,
		TokenType:   "Bearer",
		ExpiresIn:   result.Token.ExpiresIn(),
		User:        newUserPayload(result.User, result.Roles),
	})
}

// Logout revokes the presented access token.
func (h *AuthHandler) Logout(c *gin.Context) {
	credential := bearerCredential(c)
	if credential == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "missing bearer token"))
		return
	}

	ip, userAgent := clientMeta(c)

	err := h.auth.Logout(c.Request.Context(), usecase.LogoutInput{
		Credential: credential,
		IPAddress:  ip,
		UserAgent:  userAgent,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidAccessToken, Status: http.StatusUnauthorized, Message: "invalid access token"},
			{Err: usecase.ErrExpiredAccessToken, Status: http.StatusUnauthorized, Message: "access token expired"},
			{Err: usecase.ErrRevokedAccessToken, Status: http.StatusUnauthorized, Message: "access token revoked"},
		}, http.StatusInternalServerError, "failed to log out")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// RevokeSessions invalidates every outstanding credential of a user. The
// target defaults to the caller; revoking another account requires the
// session revocation permission.
func (h *AuthHandler) RevokeSessions(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req SessionsRevokeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid revocation payload"))
			return
		}
	}

	ip, userAgent := clientMeta(c)

	err := h.auth.RevokeAllSessions(c.Request.Context(), usecase.RevokeAllSessionsInput{
		ActorID:   actorID,
		UserID:    strings.TrimSpace(req.UserID),
		Reason:    strings.TrimSpace(req.Reason),
		IPAddress: ip,
		UserAgent: userAgent,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to revoke sessions")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "sessions revoked"})
}

// bearerCredential extracts the raw token from the Authorization header.
func bearerCredential(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
