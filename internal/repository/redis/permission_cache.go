package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/core/port"
	"github.com/Ezra31448/soap-api/internal/repository"
)

const defaultPermissionCachePrefix = "auth:permissions"

// PermissionCache caches effective permission sets per user for low-latency
// authorization checks. Writers to the permission graph invalidate affected
// users synchronously; the TTL only bounds staleness after a missed
// invalidation.
type PermissionCache struct {
	client *red.Client
	prefix string
}

// NewPermissionCache constructs the permission cache helper.
func NewPermissionCache(client *red.Client, keyPrefix string) *PermissionCache {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultPermissionCachePrefix
	}

	return &PermissionCache{client: client, prefix: prefix}
}

type cachedPermission struct {
	Module string `json:"module"`
	Action string `json:"action"`
}

// GetPermissionSet fetches the cached permission set for the user.
// Returns repository.ErrNotFound on a cache miss.
func (c *PermissionCache) GetPermissionSet(ctx context.Context, userID string) (domain.PermissionSet, error) {
	key := c.key(userID)
	if key == "" {
		return nil, fmt.Errorf("user id is required")
	}

	payload, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get permission set: %w", err)
	}

	var cached []cachedPermission
	if err := json.Unmarshal([]byte(payload), &cached); err != nil {
		return nil, fmt.Errorf("parse cached permission set: %w", err)
	}

	set := make(domain.PermissionSet, len(cached))
	for _, permission := range cached {
		key, keyErr := domain.NewPermissionKey(permission.Module, permission.Action)
		if keyErr != nil {
			return nil, fmt.Errorf("parse cached permission: %w", keyErr)
		}
		set.Add(key)
	}

	return set, nil
}

// SetPermissionSet stores the permission set for the user with a TTL.
func (c *PermissionCache) SetPermissionSet(ctx context.Context, userID string, set domain.PermissionSet, ttl time.Duration) error {
	key := c.key(userID)
	if key == "" {
		return fmt.Errorf("user id is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	cached := make([]cachedPermission, 0, len(set))
	for permission := range set {
		cached = append(cached, cachedPermission{
			Module: string(permission.Module),
			Action: string(permission.Action),
		})
	}

	payload, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal permission set: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set permission set: %w", err)
	}

	return nil
}

// DeletePermissionSets invalidates cached permission sets for the supplied users.
func (c *PermissionCache) DeletePermissionSets(ctx context.Context, userIDs ...string) error {
	keys := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		if key := c.key(userID); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete permission sets: %w", err)
	}

	return nil
}

func (c *PermissionCache) key(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.prefix, userID)
}

var _ port.PermissionCache = (*PermissionCache)(nil)
