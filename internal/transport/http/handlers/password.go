package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Ezra31448/soap-api/internal/transport/http/middleware"
	"github.com/Ezra31448/soap-api/internal/usecase"
)

// PasswordHandler exposes password change and reset endpoints.
type PasswordHandler struct {
	users  *usecase.UserService
	resets *usecase.PasswordResetService
	isDev  bool
}

// NewPasswordHandler constructs PasswordHandler. Development mode exposes
// reset tokens in responses so flows can be exercised without a mail sink.
func NewPasswordHandler(users *usecase.UserService, resets *usecase.PasswordResetService, isDev bool) *PasswordHandler {
	return &PasswordHandler{
		users:  users,
		resets: resets,
		isDev:  isDev,
	}
}

// Change replaces the caller's password, or another account's when the
// caller holds the administrative permission.
func (h *PasswordHandler) Change(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password change payload"))
		return
	}

	ip, userAgent := clientMeta(c)

	err := h.users.ChangePassword(c.Request.Context(), usecase.ChangePasswordInput{
		ActorID:         actorID,
		UserID:          strings.TrimSpace(req.UserID),
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		IPAddress:       ip,
		UserAgent:       userAgent,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrCurrentPasswordRequired, Status: http.StatusBadRequest, Message: "current password is required"},
			{Err: usecase.ErrCurrentPasswordInvalid, Status: http.StatusUnauthorized, Message: "current password is invalid"},
			{Err: usecase.ErrNewPasswordInvalid, Status: http.StatusBadRequest, Message: "new password does not meet requirements"},
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to change password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}

// RequestReset starts the password reset flow. The response does not reveal
// whether the address belongs to an account.
func (h *PasswordHandler) RequestReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset request payload"))
		return
	}

	ip, userAgent := clientMeta(c)

	result, err := h.resets.RequestPasswordReset(c.Request.Context(), usecase.RequestPasswordResetInput{
		Email:     req.Email,
		IPAddress: ip,
		UserAgent: userAgent,
	})
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to request password reset")
		return
	}

	resp := PasswordResetResponse{
		Message:           "if the address is registered, reset instructions have been sent",
		MaskedDestination: result.MaskedDestination,
		ExpiresAt:         result.ExpiresAt,
	}

	if h.isDev {
		if token := strings.TrimSpace(result.Token); token != "" {
			resp.DevToken = &token
		}
	}

	c.JSON(http.StatusOK, resp)
}

// ConfirmReset redeems a reset token for a new password.
func (h *PasswordHandler) ConfirmReset(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset confirmation payload"))
		return
	}

	ip, userAgent := clientMeta(c)

	err := h.resets.ResetPassword(c.Request.Context(), usecase.ResetPasswordInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
		IPAddress:   ip,
		UserAgent:   userAgent,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPasswordResetTokenInvalid, Status: http.StatusBadRequest, Message: "reset token is invalid"},
			{Err: usecase.ErrPasswordResetTokenExpired, Status: http.StatusBadRequest, Message: "reset token has expired"},
			{Err: usecase.ErrNewPasswordInvalid, Status: http.StatusBadRequest, Message: "new password does not meet requirements"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "new password does not meet requirements"},
		}, http.StatusInternalServerError, "failed to reset password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password reset"})
}
