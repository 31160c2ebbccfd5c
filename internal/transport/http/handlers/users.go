package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Ezra31448/soap-api/internal/transport/http/middleware"
	"github.com/Ezra31448/soap-api/internal/usecase"
)

// UserHandler exposes profile and account management endpoints. Every route
// requires authentication; per-operation permissions are enforced by the
// services.
type UserHandler struct {
	users *usecase.UserService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users *usecase.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterRoutes binds user endpoints.
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.GET("", h.List)
	r.GET("/me", h.Me)
	r.GET("/:user_id", h.Get)
	r.PUT("/me", h.UpdateMe)
	r.PUT("/:user_id", h.Update)
	r.POST("/:user_id/activate", h.Activate)
	r.POST("/:user_id/deactivate", h.Deactivate)
}

// Me returns the caller's own profile.
func (h *UserHandler) Me(c *gin.Context) {
	h.profile(c, "")
}

// Get returns a profile by user ID.
func (h *UserHandler) Get(c *gin.Context) {
	h.profile(c, strings.TrimSpace(c.Param("user_id")))
}

func (h *UserHandler) profile(c *gin.Context, targetID string) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	ip, userAgent := clientMeta(c)

	user, err := h.users.GetProfile(c.Request.Context(), usecase.ProfileInput{
		ActorID:   actorID,
		UserID:    targetID,
		IPAddress: ip,
		UserAgent: userAgent,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, newUserPayload(*user, nil))
}

// List returns one page of the user directory.
func (h *UserHandler) List(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	ip, userAgent := clientMeta(c)

	result, err := h.users.ListUsers(c.Request.Context(), usecase.ListUsersInput{
		ActorID:   actorID,
		Page:      page,
		PageSize:  pageSize,
		IPAddress: ip,
		UserAgent: userAgent,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
		}, http.StatusInternalServerError, "failed to list users")
		return
	}

	users := make([]UserPayload, 0, len(result.Users))
	for _, user := range result.Users {
		users = append(users, newUserPayload(user, nil))
	}

	c.JSON(http.StatusOK, UserListResponse{
		Users:    users,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	})
}

// UpdateMe updates the caller's own profile.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	h.update(c, "")
}

// Update updates a profile by user ID.
func (h *UserHandler) Update(c *gin.Context) {
	h.update(c, strings.TrimSpace(c.Param("user_id")))
}

func (h *UserHandler) update(c *gin.Context, targetID string) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	ip, userAgent := clientMeta(c)

	input := usecase.UpdateProfileInput{
		ActorID:   actorID,
		UserID:    targetID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if req.ExpectedUpdatedAt != nil {
		input.ExpectedUpdatedAt = *req.ExpectedUpdatedAt
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
			{Err: usecase.ErrConcurrentUpdate, Status: http.StatusConflict, Message: "profile was modified concurrently"},
		}, http.StatusInternalServerError, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, newUserPayload(*user, nil))
}

// Activate transitions an account back to ACTIVE.
func (h *UserHandler) Activate(c *gin.Context) {
	h.transition(c, h.users.ActivateUser, "failed to activate user", "user activated")
}

// Deactivate transitions an account to INACTIVE and revokes its sessions.
func (h *UserHandler) Deactivate(c *gin.Context) {
	h.transition(c, h.users.DeactivateUser, "failed to deactivate user", "user deactivated")
}

func (h *UserHandler) transition(c *gin.Context, op func(ctx context.Context, input usecase.AccountStatusInput) error, failure, success string) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	targetID := strings.TrimSpace(c.Param("user_id"))
	if targetID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "user id is required"))
		return
	}

	ip, userAgent := clientMeta(c)

	err := op(c.Request.Context(), usecase.AccountStatusInput{
		ActorID:   actorID,
		UserID:    targetID,
		IPAddress: ip,
		UserAgent: userAgent,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, failure)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: success})
}
