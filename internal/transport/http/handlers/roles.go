package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/transport/http/middleware"
	"github.com/Ezra31448/soap-api/internal/usecase"
)

// RoleHandler exposes role and permission administration endpoints.
type RoleHandler struct {
	roles *usecase.RoleService
}

// NewRoleHandler constructs RoleHandler.
func NewRoleHandler(roles *usecase.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

// RegisterRoutes binds role endpoints.
func (h *RoleHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.GET("", h.List)
	r.POST("", h.Create)
	r.GET("/:role_id", h.Get)
	r.PUT("/:role_id", h.Update)
	r.DELETE("/:role_id", h.Delete)
	r.POST("/:role_id/assign", h.Assign)
	r.POST("/:role_id/revoke", h.Revoke)
	r.POST("/:role_id/permissions", h.GrantPermission)
}

// RegisterPermissionRoutes binds the permission catalogue endpoint.
func (h *RoleHandler) RegisterPermissionRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.GET("", h.ListPermissions)
}

// Create creates a role, optionally seeding permissions.
func (h *RoleHandler) Create(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req RoleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	keys := make([]domain.PermissionKey, 0, len(req.Permissions))
	for _, name := range req.Permissions {
		key, err := domain.ParsePermissionName(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid permission name"))
			return
		}
		keys = append(keys, key)
	}

	ip, userAgent := clientMeta(c)

	input := usecase.CreateRoleInput{
		ActorID:     actorID,
		Name:        req.Name,
		Permissions: keys,
		IPAddress:   ip,
		UserAgent:   userAgent,
	}

	if req.Description != nil {
		trimmed := strings.TrimSpace(*req.Description)
		if trimmed != "" {
			input.Description = &trimmed
		}
	}

	result, err := h.roles.CreateRole(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
			{Err: usecase.ErrRoleExists, Status: http.StatusConflict, Message: "role already exists"},
			{Err: usecase.ErrInvalidRoleName, Status: http.StatusBadRequest, Message: "invalid role name"},
		}, http.StatusInternalServerError, "failed to create role")
		return
	}

	permissions := make([]PermissionPayload, 0, len(result.Permissions))
	for _, permission := range result.Permissions {
		permissions = append(permissions, newPermissionPayload(permission))
	}

	c.JSON(http.StatusCreated, RoleDetailResponse{
		Role:        newRolePayload(result.Role),
		Permissions: permissions,
	})
}

// List returns every role.
func (h *RoleHandler) List(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	ip, userAgent := clientMeta(c)

	roles, err := h.roles.ListRoles(c.Request.Context(), actorID, ip, userAgent)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
		}, http.StatusInternalServerError, "failed to list roles")
		return
	}

	payloads := make([]RolePayload, 0, len(roles))
	for _, role := range roles {
		payloads = append(payloads, newRolePayload(role))
	}

	c.JSON(http.StatusOK, RoleListResponse{Roles: payloads})
}

// Get returns a role with its granted permissions.
func (h *RoleHandler) Get(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	roleID := strings.TrimSpace(c.Param("role_id"))
	ip, userAgent := clientMeta(c)

	detail, err := h.roles.GetRole(c.Request.Context(), actorID, roleID, ip, userAgent)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
		}, http.StatusInternalServerError, "failed to load role")
		return
	}

	permissions := make([]PermissionPayload, 0, len(detail.Permissions))
	for _, permission := range detail.Permissions {
		permissions = append(permissions, newPermissionPayload(permission))
	}

	c.JSON(http.StatusOK, RoleDetailResponse{
		Role:        newRolePayload(detail.Role),
		Permissions: permissions,
	})
}

// Update renames a role or replaces its description.
func (h *RoleHandler) Update(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req RoleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	ip, userAgent := clientMeta(c)

	role, err := h.roles.UpdateRole(c.Request.Context(), usecase.UpdateRoleInput{
		ActorID:     actorID,
		RoleID:      strings.TrimSpace(c.Param("role_id")),
		Name:        req.Name,
		Description: req.Description,
		IPAddress:   ip,
		UserAgent:   userAgent,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
			{Err: usecase.ErrRoleProtected, Status: http.StatusForbidden, Message: "role is protected"},
			{Err: usecase.ErrRoleExists, Status: http.StatusConflict, Message: "role name already in use"},
			{Err: usecase.ErrInvalidRoleName, Status: http.StatusBadRequest, Message: "invalid role name"},
		}, http.StatusInternalServerError, "failed to update role")
		return
	}

	c.JSON(http.StatusOK, newRolePayload(*role))
}

// Delete removes a role that has no assignments.
func (h *RoleHandler) Delete(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	ip, userAgent := clientMeta(c)

	err := h.roles.DeleteRole(c.Request.Context(), usecase.DeleteRoleInput{
		ActorID:   actorID,
		RoleID:    strings.TrimSpace(c.Param("role_id")),
		IPAddress: ip,
		UserAgent: userAgent,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
			{Err: usecase.ErrRoleProtected, Status: http.StatusForbidden, Message: "role is protected"},
			{Err: usecase.ErrRoleInUse, Status: http.StatusConflict, Message: "role has active assignments"},
		}, http.StatusInternalServerError, "failed to delete role")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role deleted"})
}

// Assign grants a role to a user. Repeating an assignment is a no-op.
func (h *RoleHandler) Assign(c *gin.Context) {
	h.assignment(c, h.roles.AssignRole, "failed to assign role")
}

// Revoke removes a role from a user. Revoking an absent role is a no-op.
func (h *RoleHandler) Revoke(c *gin.Context) {
	h.assignment(c, h.roles.RevokeRole, "failed to revoke role")
}

func (h *RoleHandler) assignment(c *gin.Context, op func(ctx context.Context, input usecase.RoleAssignmentInput) (*usecase.RoleAssignmentResult, error), failure string) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req RoleAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid assignment payload"))
		return
	}

	ip, userAgent := clientMeta(c)

	result, err := op(c.Request.Context(), usecase.RoleAssignmentInput{
		ActorID:   actorID,
		UserID:    strings.TrimSpace(req.UserID),
		RoleID:    strings.TrimSpace(c.Param("role_id")),
		Reason:    strings.TrimSpace(req.Reason),
		IPAddress: ip,
		UserAgent: userAgent,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, failure)
		return
	}

	c.JSON(http.StatusOK, RoleAssignmentResponse{
		Changed: result.Changed,
		Roles:   result.Roles,
	})
}

// GrantPermission attaches a permission to a role, creating the permission
// on first use.
func (h *RoleHandler) GrantPermission(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req GrantPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid permission payload"))
		return
	}

	key, err := domain.ParsePermissionName(req.Permission)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid permission name"))
		return
	}

	ip, userAgent := clientMeta(c)

	input := usecase.GrantPermissionInput{
		ActorID:    actorID,
		RoleID:     strings.TrimSpace(c.Param("role_id")),
		Permission: key,
		IPAddress:  ip,
		UserAgent:  userAgent,
	}

	if req.Description != nil {
		trimmed := strings.TrimSpace(*req.Description)
		if trimmed != "" {
			input.Description = &trimmed
		}
	}

	result, err := h.roles.GrantPermissionToRole(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
		}, http.StatusInternalServerError, "failed to grant permission")
		return
	}

	c.JSON(http.StatusOK, GrantPermissionResponse{
		Granted:    result.Granted,
		Permission: newPermissionPayload(result.Permission),
	})
}

// ListPermissions returns the permission catalogue.
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	ip, userAgent := clientMeta(c)

	permissions, err := h.roles.ListPermissions(c.Request.Context(), actorID, ip, userAgent)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
		}, http.StatusInternalServerError, "failed to list permissions")
		return
	}

	payloads := make([]PermissionPayload, 0, len(permissions))
	for _, permission := range permissions {
		payloads = append(payloads, newPermissionPayload(permission))
	}

	c.JSON(http.StatusOK, PermissionListResponse{Permissions: payloads})
}
