package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/transport/http/middleware"
	"github.com/Ezra31448/soap-api/internal/usecase"
)

// AuditHandler exposes read access to the audit trail. Entries are append
// only; no mutation endpoints exist.
type AuditHandler struct {
	audit *usecase.AuditService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audit *usecase.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// RegisterRoutes binds audit endpoints.
func (h *AuditHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.GET("", h.Query)
	r.GET("/stats", h.Statistics)
}

// Query returns one page of audit entries across all users, newest first.
func (h *AuditHandler) Query(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	input, err := h.queryInput(c, actorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return
	}
	input.UserID = strings.TrimSpace(c.Query("user_id"))

	result, err := h.audit.Query(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
		}, http.StatusInternalServerError, "failed to query audit trail")
		return
	}

	c.JSON(http.StatusOK, newAuditListResponse(result))
}

// UserHistory returns the audit entries of a single user. Reading someone
// else's trail requires the audit read permission.
func (h *AuditHandler) UserHistory(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	input, err := h.queryInput(c, actorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return
	}
	input.UserID = strings.TrimSpace(c.Param("user_id"))

	result, err := h.audit.QueryForUser(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
		}, http.StatusInternalServerError, "failed to query audit trail")
		return
	}

	c.JSON(http.StatusOK, newAuditListResponse(result))
}

// Statistics returns per-action entry counts within the supplied range.
func (h *AuditHandler) Statistics(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	input, err := h.queryInput(c, actorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return
	}

	counts, err := h.audit.Statistics(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
		}, http.StatusInternalServerError, "failed to compute audit statistics")
		return
	}

	payloads := make([]AuditActionCountPayload, 0, len(counts))
	for _, count := range counts {
		payloads = append(payloads, AuditActionCountPayload{
			Action: string(count.Action),
			Count:  count.Count,
		})
	}

	c.JSON(http.StatusOK, AuditStatsResponse{Counts: payloads})
}

// queryInput assembles the common filter parameters from the query string.
func (h *AuditHandler) queryInput(c *gin.Context, actorID string) (usecase.AuditQueryInput, error) {
	ip, userAgent := clientMeta(c)

	input := usecase.AuditQueryInput{
		ActorID:      actorID,
		Action:       domain.AuditAction(strings.TrimSpace(c.Query("action"))),
		ResourceType: strings.TrimSpace(c.Query("resource_type")),
		IPAddress:    ip,
		UserAgent:    userAgent,
	}

	input.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	input.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return usecase.AuditQueryInput{}, fmt.Errorf("from must be RFC 3339 formatted")
		}
		input.From = from
	}

	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return usecase.AuditQueryInput{}, fmt.Errorf("to must be RFC 3339 formatted")
		}
		input.To = to
	}

	return input, nil
}

func newAuditListResponse(result *usecase.AuditQueryResult) AuditListResponse {
	entries := make([]AuditEntryPayload, 0, len(result.Entries))
	for _, entry := range result.Entries {
		entries = append(entries, newAuditEntryPayload(entry))
	}

	return AuditListResponse{
		Entries:  entries,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	}
}
