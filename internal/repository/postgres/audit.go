package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/core/port"
)

// AuditRepository appends and queries immutable audit entries in PostgreSQL.
type AuditRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository constructs a PostgreSQL-backed audit repository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AuditRepository) WithTx(tx pgx.Tx) *AuditRepository {
	if tx == nil {
		return r
	}
	return &AuditRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Insert appends an audit entry. Entries are never updated or deleted.
func (r *AuditRepository) Insert(ctx context.Context, entry domain.AuditLogEntry) error {
	oldValues, err := marshalAuditValues(entry.OldValues)
	if err != nil {
		return fmt.Errorf("prepare audit old values: %w", err)
	}
	newValues, err := marshalAuditValues(entry.NewValues)
	if err != nil {
		return fmt.Errorf("prepare audit new values: %w", err)
	}

	stmt, args, err := r.builder.Insert("auth.audit_log").
		Columns(
			"id",
			"user_id",
			"action",
			"resource_type",
			"resource_id",
			"old_values",
			"new_values",
			"ip_address",
			"user_agent",
			"created_at",
		).
		Values(
			entry.ID,
			optionalString(entry.UserID),
			entry.Action,
			entry.ResourceType,
			optionalString(entry.ResourceID),
			oldValues,
			newValues,
			optionalString(entry.IPAddress),
			optionalString(entry.UserAgent),
			entry.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit entry sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// List returns a page of audit entries ordered by created_at descending plus
// the total count of entries matching the filter.
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter, page domain.AuditPage) ([]domain.AuditLogEntry, int64, error) {
	page = page.Normalize()

	countQuery := r.builder.Select("COUNT(*)").From("auth.audit_log")
	countQuery = applyAuditFilter(countQuery, filter)

	countStmt, countArgs, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count audit entries sql: %w", err)
	}

	var total int64
	if err := r.exec.QueryRow(ctx, countStmt, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("scan audit entries count: %w", err)
	}

	query := r.builder.Select(
		"id",
		"user_id",
		"action",
		"resource_type",
		"resource_id",
		"old_values",
		"new_values",
		"ip_address",
		"user_agent",
		"created_at",
	).
		From("auth.audit_log").
		OrderBy("created_at DESC").
		Limit(uint64(page.Size)).
		Offset(uint64(page.Offset()))
	query = applyAuditFilter(query, filter)

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list audit entries sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditLogEntry, 0, page.Size)
	for rows.Next() {
		entry, err := scanAuditRow(func(dest ...any) error { return rows.Scan(dest...) })
		if err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, total, nil
}

// CountByAction aggregates entry counts per action within the time window.
func (r *AuditRepository) CountByAction(ctx context.Context, from, to time.Time) ([]domain.AuditActionCount, error) {
	query := r.builder.Select("action", "COUNT(*)").
		From("auth.audit_log").
		GroupBy("action").
		OrderBy("COUNT(*) DESC")

	if !from.IsZero() {
		query = query.Where(squirrel.GtOrEq{"created_at": from.UTC()})
	}
	if !to.IsZero() {
		query = query.Where(squirrel.LtOrEq{"created_at": to.UTC()})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count by action sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit action counts: %w", err)
	}
	defer rows.Close()

	counts := make([]domain.AuditActionCount, 0)
	for rows.Next() {
		var count domain.AuditActionCount
		if err := rows.Scan(&count.Action, &count.Count); err != nil {
			return nil, fmt.Errorf("scan audit action count: %w", err)
		}
		counts = append(counts, count)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit action counts: %w", err)
	}

	return counts, nil
}

func applyAuditFilter(query squirrel.SelectBuilder, filter domain.AuditFilter) squirrel.SelectBuilder {
	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if filter.Action != "" {
		query = query.Where(squirrel.Eq{"action": filter.Action})
	}
	if filter.ResourceType != "" {
		query = query.Where(squirrel.Eq{"resource_type": filter.ResourceType})
	}
	if !filter.From.IsZero() {
		query = query.Where(squirrel.GtOrEq{"created_at": filter.From.UTC()})
	}
	if !filter.To.IsZero() {
		query = query.Where(squirrel.LtOrEq{"created_at": filter.To.UTC()})
	}
	return query
}

func scanAuditRow(scan func(dest ...any) error) (*domain.AuditLogEntry, error) {
	var (
		entry      domain.AuditLogEntry
		userID     sql.NullString
		resourceID sql.NullString
		oldValues  []byte
		newValues  []byte
		ipAddress  sql.NullString
		userAgent  sql.NullString
	)

	if err := scan(
		&entry.ID,
		&userID,
		&entry.Action,
		&entry.ResourceType,
		&resourceID,
		&oldValues,
		&newValues,
		&ipAddress,
		&userAgent,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}

	if userID.Valid {
		value := userID.String
		entry.UserID = &value
	}
	if resourceID.Valid {
		value := resourceID.String
		entry.ResourceID = &value
	}
	if ipAddress.Valid {
		value := ipAddress.String
		entry.IPAddress = &value
	}
	if userAgent.Valid {
		value := userAgent.String
		entry.UserAgent = &value
	}

	if len(oldValues) > 0 {
		values, err := unmarshalAuditValues(oldValues)
		if err != nil {
			return nil, fmt.Errorf("unmarshal audit old values: %w", err)
		}
		entry.OldValues = values
	}
	if len(newValues) > 0 {
		values, err := unmarshalAuditValues(newValues)
		if err != nil {
			return nil, fmt.Errorf("unmarshal audit new values: %w", err)
		}
		entry.NewValues = values
	}

	return &entry, nil
}

func marshalAuditValues(values map[string]any) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func unmarshalAuditValues(payload []byte) (map[string]any, error) {
	values := make(map[string]any)
	if err := json.Unmarshal(payload, &values); err != nil {
		return nil, err
	}
	return values, nil
}

var _ port.AuditRepository = (*AuditRepository)(nil)
