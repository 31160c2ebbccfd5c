package port

import (
	"context"

	"github.com/Ezra31448/soap-api/internal/core/domain"
)

// PermissionRepository manages permission storage and the role-permission edge.
type PermissionRepository interface {
	Create(ctx context.Context, permission domain.Permission) error
	GetByName(ctx context.Context, name string) (*domain.Permission, error)
	List(ctx context.Context) ([]domain.Permission, error)
	ListByRole(ctx context.Context, roleID string) ([]domain.Permission, error)
	// ListByUser resolves the union of permissions over every role
	// currently assigned to the user.
	ListByUser(ctx context.Context, userID string) ([]domain.Permission, error)
	// GrantToRole upserts the (role, permission) edge idempotently.
	GrantToRole(ctx context.Context, grant domain.RolePermission) (inserted bool, err error)
}
