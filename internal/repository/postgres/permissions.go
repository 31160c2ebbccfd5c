package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/core/port"
	"github.com/Ezra31448/soap-api/internal/repository"
)

// PermissionRepository implements port.PermissionRepository over PostgreSQL.
type PermissionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPermissionRepository constructs a permission repository instance.
func NewPermissionRepository(pool *pgxpool.Pool) *PermissionRepository {
	return &PermissionRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository configured to execute within the provided transaction.
func (r *PermissionRepository) WithTx(tx pgx.Tx) *PermissionRepository {
	if tx == nil {
		return r
	}
	return &PermissionRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new permission row.
func (r *PermissionRepository) Create(ctx context.Context, permission domain.Permission) error {
	stmt, args, err := r.builder.Insert("auth.permissions").
		Columns("id", "name", "module", "action", "description").
		Values(permission.ID, permission.Name, permission.Module, permission.Action, optionalString(permission.Description)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert permission sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert permission: %w", err)
	}

	return nil
}

// GetByName retrieves a permission by its unique canonical name.
func (r *PermissionRepository) GetByName(ctx context.Context, name string) (*domain.Permission, error) {
	stmt, args, err := r.builder.Select(
		"id",
		"name",
		"module",
		"action",
		"description",
	).
		From("auth.permissions").
		Where(squirrel.Eq{"name": name}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select permission by name sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	permission, err := scanPermissionRow(func(dest ...any) error { return row.Scan(dest...) })
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan permission by name: %w", err)
	}

	return permission, nil
}

// List returns all permissions ordered by module and action.
func (r *PermissionRepository) List(ctx context.Context) ([]domain.Permission, error) {
	stmt, args, err := r.builder.Select(
		"id",
		"name",
		"module",
		"action",
		"description",
	).
		From("auth.permissions").
		OrderBy("module ASC", "action ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list permissions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer rows.Close()

	permissions := make([]domain.Permission, 0)
	for rows.Next() {
		permission, err := scanPermissionRow(func(dest ...any) error { return rows.Scan(dest...) })
		if err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		permissions = append(permissions, *permission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}

	return permissions, nil
}

// ListByRole returns permissions mapped to a role via role_permissions.
func (r *PermissionRepository) ListByRole(ctx context.Context, roleID string) ([]domain.Permission, error) {
	stmt, args, err := r.builder.Select(
		"p.id",
		"p.name",
		"p.module",
		"p.action",
		"p.description",
	).
		From("auth.permissions p").
		Join("auth.role_permissions rp ON rp.permission_id = p.id").
		Where(squirrel.Eq{"rp.role_id": roleID}).
		OrderBy("p.module ASC", "p.action ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build permissions by role sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query permissions by role: %w", err)
	}
	defer rows.Close()

	permissions := make([]domain.Permission, 0)
	for rows.Next() {
		permission, err := scanPermissionRow(func(dest ...any) error { return rows.Scan(dest...) })
		if err != nil {
			return nil, fmt.Errorf("scan permission by role: %w", err)
		}
		permissions = append(permissions, *permission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions by role: %w", err)
	}

	return permissions, nil
}

// ListByUser returns distinct permissions granted to the user across all of
// its roles.
func (r *PermissionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Permission, error) {
	stmt, args, err := r.builder.Select(
		"DISTINCT p.id",
		"p.name",
		"p.module",
		"p.action",
		"p.description",
	).
		From("auth.permissions p").
		Join("auth.role_permissions rp ON rp.permission_id = p.id").
		Join("auth.user_roles ur ON ur.role_id = rp.role_id").
		Where(squirrel.Eq{"ur.user_id": userID}).
		OrderBy("p.module ASC", "p.action ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build permissions by user sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query permissions by user: %w", err)
	}
	defer rows.Close()

	permissions := make([]domain.Permission, 0)
	for rows.Next() {
		permission, err := scanPermissionRow(func(dest ...any) error { return rows.Scan(dest...) })
		if err != nil {
			return nil, fmt.Errorf("scan permission by user: %w", err)
		}
		permissions = append(permissions, *permission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions by user: %w", err)
	}

	return permissions, nil
}

// GrantToRole links the permission to the role. Granting an existing edge is
// a no-op and reports inserted=false.
func (r *PermissionRepository) GrantToRole(ctx context.Context, grant domain.RolePermission) (bool, error) {
	grantedAt := grant.GrantedAt
	if grantedAt.IsZero() {
		grantedAt = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert("auth.role_permissions").
		Columns("role_id", "permission_id", "granted_at", "granted_by").
		Values(grant.RoleID, grant.PermissionID, grantedAt, optionalString(grant.GrantedBy)).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build grant permission sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("grant permission: %w", err)
	}

	return res.RowsAffected() > 0, nil
}

func scanPermissionRow(scan func(dest ...any) error) (*domain.Permission, error) {
	var (
		permission  domain.Permission
		description sql.NullString
	)

	if err := scan(
		&permission.ID,
		&permission.Name,
		&permission.Module,
		&permission.Action,
		&description,
	); err != nil {
		return nil, err
	}

	if description.Valid {
		value := description.String
		permission.Description = &value
	}

	return &permission, nil
}

var _ port.PermissionRepository = (*PermissionRepository)(nil)
