package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ezra31448/soap-api/internal/transport/http/middleware"
	"github.com/Ezra31448/soap-api/internal/usecase"
)

const rateLimitProblemType = "https://auth.service.example.com/errors/rate-limit-exceeded"

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or
// falls back to a generic response. Rate-limit errors short-circuit into a
// 429 problem response regardless of the case list.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	var limited *usecase.RateLimitExceededError
	if errors.As(err, &limited) {
		respondRateLimited(c, limited)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

func respondRateLimited(c *gin.Context, limited *usecase.RateLimitExceededError) {
	seconds := int(limited.RetryAfter.Round(time.Second).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.Header("Content-Type", "application/problem+json")

	problem := middleware.ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      "Too Many Requests",
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Rate limit exceeded for %s. Try again later.", limited.Scope),
		Instance:   c.Request.URL.Path,
		RetryAfter: seconds,
		TraceID:    middleware.GetTraceID(c),
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, problem)
}
