package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/core/port"
)

// AuditQueryInput narrows and pages an audit trail query.
type AuditQueryInput struct {
	ActorID      string
	UserID       string
	Action       domain.AuditAction
	ResourceType string
	From         time.Time
	To           time.Time
	Page         int
	PageSize     int
	IPAddress    *string
	UserAgent    *string
}

// AuditQueryResult is one page of audit entries plus the total match count.
type AuditQueryResult struct {
	Entries  []domain.AuditLogEntry
	Total    int64
	Page     int
	PageSize int
}

// AuditService appends to and queries the immutable audit trail. Writes
// coupled to mutations go through the unit of work instead; this service
// covers standalone appends and reads.
type AuditService struct {
	audit   port.AuditRepository
	authz   *AuthorizationService
	metrics port.EngineMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuditService constructs an AuditService instance.
func NewAuditService(audit port.AuditRepository, authz *AuthorizationService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		audit:  audit,
		authz:  authz,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source used for entry timestamps.
func (s *AuditService) WithClock(now func() time.Time) *AuditService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithMetrics attaches engine counters for failed appends.
func (s *AuditService) WithMetrics(metrics port.EngineMetrics) *AuditService {
	s.metrics = metrics
	return s
}

// Record appends an entry and fails the caller when the append fails.
func (s *AuditService) Record(ctx context.Context, entry domain.AuditLogEntry) error {
	if s.audit == nil {
		return fmt.Errorf("audit service not configured")
	}

	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}

	if err := s.audit.Insert(ctx, entry); err != nil {
		if s.metrics != nil {
			s.metrics.AuditWriteFailure()
		}
		return fmt.Errorf("append audit entry: %w", err)
	}

	return nil
}

// RecordAuthEvent appends an authentication event. Failures are logged and
// never surface to the caller; a broken audit store must not block logins.
func (s *AuditService) RecordAuthEvent(ctx context.Context, entry domain.AuditLogEntry) {
	if err := s.Record(ctx, entry); err != nil {
		s.logger.Warn("record auth event failed",
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
	}
}

// QueryForUser returns the audit entries of a single user, newest first.
// Reading someone else's trail requires the audit read permission.
func (s *AuditService) QueryForUser(ctx context.Context, input AuditQueryInput) (*AuditQueryResult, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	if input.ActorID != userID {
		if err := s.requireAuditRead(ctx, input); err != nil {
			return nil, err
		}
	}

	filter := domain.AuditFilter{
		UserID:       userID,
		Action:       input.Action,
		ResourceType: input.ResourceType,
		From:         input.From,
		To:           input.To,
	}

	return s.query(ctx, filter, input)
}

// Query returns audit entries across all users, newest first. Requires the
// audit read permission.
func (s *AuditService) Query(ctx context.Context, input AuditQueryInput) (*AuditQueryResult, error) {
	if err := s.requireAuditRead(ctx, input); err != nil {
		return nil, err
	}

	filter := domain.AuditFilter{
		UserID:       strings.TrimSpace(input.UserID),
		Action:       input.Action,
		ResourceType: input.ResourceType,
		From:         input.From,
		To:           input.To,
	}

	return s.query(ctx, filter, input)
}

// Statistics returns per-action entry counts within the supplied range.
func (s *AuditService) Statistics(ctx context.Context, input AuditQueryInput) ([]domain.AuditActionCount, error) {
	if s.audit == nil {
		return nil, fmt.Errorf("audit service not configured")
	}
	if err := s.requireAuditRead(ctx, input); err != nil {
		return nil, err
	}

	counts, err := s.audit.CountByAction(ctx, input.From, input.To)
	if err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}

	return counts, nil
}

func (s *AuditService) query(ctx context.Context, filter domain.AuditFilter, input AuditQueryInput) (*AuditQueryResult, error) {
	if s.audit == nil {
		return nil, fmt.Errorf("audit service not configured")
	}

	page := domain.AuditPage{Number: input.Page, Size: input.PageSize}.Normalize()

	entries, total, err := s.audit.List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	return &AuditQueryResult{
		Entries:  entries,
		Total:    total,
		Page:     page.Number,
		PageSize: page.Size,
	}, nil
}

func (s *AuditService) requireAuditRead(ctx context.Context, input AuditQueryInput) error {
	if s.authz == nil {
		return fmt.Errorf("audit service not configured")
	}

	decision, err := s.authz.Authorize(ctx, AuthorizeInput{
		UserID:     input.ActorID,
		Permission: domain.PermAuditRead,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("authorize audit read: %w", err)
	}
	if !decision.Allowed {
		return ErrPermissionDenied
	}

	return nil
}
