package port

import (
	"context"
	"time"

	"github.com/Ezra31448/soap-api/internal/core/domain"
)

// AuditRepository appends and queries immutable audit log entries.
type AuditRepository interface {
	Insert(ctx context.Context, entry domain.AuditLogEntry) error
	// List returns a page ordered by created_at descending plus the total
	// number of entries matching the filter.
	List(ctx context.Context, filter domain.AuditFilter, page domain.AuditPage) ([]domain.AuditLogEntry, int64, error)
	CountByAction(ctx context.Context, from, to time.Time) ([]domain.AuditActionCount, error)
}
