package port

import (
	"context"
	"time"

	"github.com/Ezra31448/soap-api/internal/core/domain"
)

// RevocationStore is the shared revocation registry consulted during
// credential verification. Entries carry a TTL equal to the credential's
// remaining lifetime so the registry never outgrows the live token set.
type RevocationStore interface {
	MarkRevoked(ctx context.Context, tokenID string, reason string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, string, error)
	// MarkSubjectRevoked invalidates every credential of the subject issued
	// at or before the marker instant, without enumerating token ids.
	MarkSubjectRevoked(ctx context.Context, revocation domain.SubjectRevocation, ttl time.Duration) error
	SubjectRevocation(ctx context.Context, subjectID string) (*domain.SubjectRevocation, error)
}
