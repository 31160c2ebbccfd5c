package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/core/port"
)

const defaultRevocationPrefix = "auth:revoked"

// RevocationRepository is the Redis-backed revocation registry. It tracks
// individually revoked token ids plus per-subject not-before markers that
// invalidate every credential issued at or before the marker instant.
type RevocationRepository struct {
	client *red.Client
	prefix string
}

// NewRevocationRepository wires a Redis client into a revocation repository.
func NewRevocationRepository(client *red.Client, keyPrefix string) *RevocationRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRevocationPrefix
	}

	return &RevocationRepository{client: client, prefix: prefix}
}

// MarkRevoked stores the supplied token id with reason and TTL matching the
// credential's remaining lifetime.
func (r *RevocationRepository) MarkRevoked(ctx context.Context, tokenID string, reason string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	key := r.tokenKey(tokenID)
	if key == "" {
		return errors.New("token id must not be empty")
	}

	if err := r.client.Set(ctx, key, reason, ttl).Err(); err != nil {
		return fmt.Errorf("redis set revoked token: %w", err)
	}

	return nil
}

// IsRevoked reports whether the token id has been revoked and returns the
// stored reason when present.
func (r *RevocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, string, error) {
	key := r.tokenKey(tokenID)
	if key == "" {
		return false, "", errors.New("token id must not be empty")
	}

	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("redis get revoked token: %w", err)
	}

	return true, value, nil
}

// MarkSubjectRevoked stores a per-subject not-before marker. A later marker
// replaces an earlier one; a stale marker never overwrites a newer Since.
func (r *RevocationRepository) MarkSubjectRevoked(ctx context.Context, revocation domain.SubjectRevocation, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	key := r.subjectKey(revocation.SubjectID)
	if key == "" {
		return errors.New("subject id must not be empty")
	}
	if revocation.Since.IsZero() {
		return errors.New("since must not be zero")
	}

	existing, err := r.SubjectRevocation(ctx, revocation.SubjectID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Since.After(revocation.Since) {
		return nil
	}

	payload := revocation.Since.UTC().Format(time.RFC3339Nano)
	if reason := strings.TrimSpace(revocation.Reason); reason != "" {
		payload = payload + "|" + reason
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set subject revocation: %w", err)
	}

	return nil
}

// SubjectRevocation fetches the subject's not-before marker, or nil when the
// subject has no active marker.
func (r *RevocationRepository) SubjectRevocation(ctx context.Context, subjectID string) (*domain.SubjectRevocation, error) {
	key := r.subjectKey(subjectID)
	if key == "" {
		return nil, errors.New("subject id must not be empty")
	}

	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get subject revocation: %w", err)
	}

	parts := strings.SplitN(value, "|", 2)
	since, parseErr := time.Parse(time.RFC3339Nano, parts[0])
	if parseErr != nil {
		return nil, fmt.Errorf("parse subject revocation marker: %w", parseErr)
	}

	revocation := &domain.SubjectRevocation{
		SubjectID: strings.TrimSpace(subjectID),
		Since:     since.UTC(),
	}
	if len(parts) == 2 {
		revocation.Reason = strings.TrimSpace(parts[1])
	}

	return revocation, nil
}

func (r *RevocationRepository) tokenKey(tokenID string) string {
	trimmed := strings.TrimSpace(tokenID)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:token:%s", r.prefix, trimmed)
}

func (r *RevocationRepository) subjectKey(subjectID string) string {
	trimmed := strings.TrimSpace(subjectID)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:subject:%s", r.prefix, trimmed)
}

var _ port.RevocationStore = (*RevocationRepository)(nil)
