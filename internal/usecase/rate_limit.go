package usecase

import (
	"fmt"
	"strings"
	"time"
)

// RateLimitExceededError signals that a sliding-window limit rejected the
// attempt. RetryAfter is zero when the window start could not be determined.
type RateLimitExceededError struct {
	Scope      string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitExceededError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded, retry in %s", e.Scope, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded", e.Scope)
}

// normalizeIdentifierKey lowercases and trims an identifier so limits keyed
// on it survive case and whitespace variance.
func normalizeIdentifierKey(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
