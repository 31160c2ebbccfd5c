package port

import (
	"context"
	"time"

	"github.com/Ezra31448/soap-api/internal/core/domain"
)

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Update persists the mutable profile fields guarded by compare-and-swap
	// on updated_at; repository.ErrConcurrentUpdate signals a lost race.
	Update(ctx context.Context, user domain.User, expectedUpdatedAt time.Time) error
	UpdateStatus(ctx context.Context, id string, status domain.UserStatus, changedAt time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash string, passwordAlgo string, changedAt time.Time) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	Count(ctx context.Context) (int64, error)
}
