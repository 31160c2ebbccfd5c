package port

import (
	"context"
	"time"

	"github.com/Ezra31448/soap-api/internal/core/domain"
)

// TokenRepository manages password reset token records. Bearer credentials
// themselves are never persisted here; only hashed reset artifacts are.
type TokenRepository interface {
	CreatePasswordReset(ctx context.Context, token domain.PasswordResetToken) error
	GetPasswordResetByHash(ctx context.Context, hash string) (*domain.PasswordResetToken, error)
	// ConsumePasswordReset marks the token used exactly once; a second call
	// for the same id reports consumed=false.
	ConsumePasswordReset(ctx context.Context, id string, usedAt time.Time) (consumed bool, err error)
	RevokePasswordResetsForUser(ctx context.Context, userID string, revokedAt time.Time) error
}
