package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const rateLimitProblemType = "https://auth.service.example.com/errors/rate-limit-exceeded"

// RateLimitStore is the attempt log consulted by the HTTP-level limiter.
// The Redis adapter satisfies it.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}

// IdentifierFunc derives the throttling key for a request.
type IdentifierFunc func(c *gin.Context) string

// RateLimitRule bounds the number of requests per identifier inside a
// sliding window. A Limit of zero disables the rule.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// ProblemDetails is the RFC 9457 body returned on throttled requests.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance,omitempty"`
	RetryAfter int    `json:"retry_after_seconds,omitempty"`
	TraceID    string `json:"trace_id,omitempty"`
}

// ClientIPIdentifier keys the window on the caller's IP address.
func ClientIPIdentifier(prefix string) IdentifierFunc {
	return func(c *gin.Context) string {
		return fmt.Sprintf("%s:ip:%s", prefix, c.ClientIP())
	}
}

// RateLimiter enforces per-endpoint request ceilings before the handler runs.
type RateLimiter struct {
	store RateLimitStore
	log   *zap.Logger
	now   func() time.Time
}

// NewRateLimiter builds a limiter backed by the given attempt store.
func NewRateLimiter(store RateLimitStore, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// WithClock overrides the limiter's time source.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// Limit returns a middleware applying the rule to each request. Store
// failures let the request through so that a degraded Redis does not take
// the endpoint down with it.
func (rl *RateLimiter) Limit(rule RateLimitRule) gin.HandlerFunc {
	identify := rule.Identifier
	if identify == nil {
		identify = ClientIPIdentifier(rule.Name)
	}

	return func(c *gin.Context) {
		if rl == nil || rl.store == nil || rule.Limit <= 0 || rule.Window <= 0 {
			c.Next()
			return
		}

		identifier := identify(c)
		if identifier == "" {
			c.Next()
			return
		}

		allowed, retryAfter, remaining, err := rl.evaluate(c.Request.Context(), identifier, rule)
		if err != nil {
			rl.log.Warn("rate limit check failed, allowing request",
				zap.String("rule", rule.Name),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(rl.now().Add(retryAfter).Unix(), 10))

		if allowed {
			c.Next()
			return
		}

		seconds := int(retryAfter.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))

		problem := ProblemDetails{
			Type:       rateLimitProblemType,
			Title:      "Too Many Requests",
			Status:     http.StatusTooManyRequests,
			Detail:     fmt.Sprintf("Rate limit exceeded for %s. Try again later.", rule.Name),
			Instance:   c.Request.URL.Path,
			RetryAfter: seconds,
			TraceID:    GetTraceID(c),
		}

		c.Header("Content-Type", "application/problem+json")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, problem)
	}
}

func (rl *RateLimiter) evaluate(ctx context.Context, identifier string, rule RateLimitRule) (allowed bool, retryAfter time.Duration, remaining int, err error) {
	now := rl.now()

	if err := rl.store.TrimWindow(ctx, identifier, rule.Window, now); err != nil {
		return false, 0, 0, fmt.Errorf("trim window: %w", err)
	}

	count, err := rl.store.CountAttempts(ctx, identifier, rule.Window, now)
	if err != nil {
		return false, 0, 0, fmt.Errorf("count attempts: %w", err)
	}

	if count >= rule.Limit {
		retryAfter = rule.Window
		if oldest, ok, err := rl.store.OldestAttempt(ctx, identifier, rule.Window, now); err == nil && ok {
			retryAfter = oldest.Add(rule.Window).Sub(now)
			if retryAfter < 0 {
				retryAfter = 0
			}
		}
		return false, retryAfter, 0, nil
	}

	if err := rl.store.RecordAttempt(ctx, identifier, now); err != nil {
		return false, 0, 0, fmt.Errorf("record attempt: %w", err)
	}

	remaining = rule.Limit - count - 1
	if remaining < 0 {
		remaining = 0
	}
	return true, rule.Window, remaining, nil
}
