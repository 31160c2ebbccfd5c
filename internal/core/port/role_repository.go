package port

import (
	"context"

	"github.com/Ezra31448/soap-api/internal/core/domain"
)

// RoleRepository handles role storage and the user-role assignment edge.
type RoleRepository interface {
	Create(ctx context.Context, role domain.Role) error
	Update(ctx context.Context, role domain.Role) error
	Delete(ctx context.Context, roleID string) error
	List(ctx context.Context) ([]domain.Role, error)
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Role, error)
	// AssignToUser upserts the (user, role) edge; assigning an already held
	// role is a no-op and reports inserted=false.
	AssignToUser(ctx context.Context, assignment domain.UserRole) (inserted bool, err error)
	RemoveFromUser(ctx context.Context, userID, roleID string) (removed bool, err error)
	ListUserIDsByRole(ctx context.Context, roleID string) ([]string, error)
	CountAssignments(ctx context.Context, roleID string) (int64, error)
}
