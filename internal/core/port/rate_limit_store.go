package port

import (
	"context"
	"time"
)

// RateLimitStore defines the persistence operations required to enforce
// sliding-window limits on login and password-reset attempts.
type RateLimitStore interface {
	// RecordAttempt appends one attempt for the identifier at the given
	// instant. Instants carry nanosecond precision so bursts within the
	// same second stay distinguishable.
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error

	// CountAttempts reports how many recorded attempts fall inside the
	// window ending at reference.
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)

	// TrimWindow discards attempts older than the window ending at
	// reference so abandoned identifiers do not accumulate state.
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error

	// OldestAttempt returns the earliest attempt still inside the window.
	// The second result is false when no attempt remains.
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
