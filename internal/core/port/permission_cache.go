package port

import (
	"context"
	"time"

	"github.com/Ezra31448/soap-api/internal/core/domain"
)

// PermissionCache holds short-lived effective permission sets per user.
// Writers to the permission graph must invalidate affected users
// synchronously; the TTL only bounds staleness after a missed invalidation.
type PermissionCache interface {
	GetPermissionSet(ctx context.Context, userID string) (domain.PermissionSet, error)
	SetPermissionSet(ctx context.Context, userID string, set domain.PermissionSet, ttl time.Duration) error
	DeletePermissionSets(ctx context.Context, userIDs ...string) error
}
