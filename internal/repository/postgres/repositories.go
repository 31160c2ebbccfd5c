package postgres

import (
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ezra31448/soap-api/internal/core/port"
)

// Repositories bundles the pool-bound repository set handed to services.
// Adding a repository means adding it here and in txRepositories.
type Repositories struct {
	Users       *UserRepository
	Roles       *RoleRepository
	Permissions *PermissionRepository
	Tokens      *TokenRepository
	Audit       *AuditRepository
}

// NewRepositories builds the bundle over a shared pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(pool),
		Roles:       NewRoleRepository(pool),
		Permissions: NewPermissionRepository(pool),
		Tokens:      NewTokenRepository(pool),
		Audit:       NewAuditRepository(pool),
	}
}

// txRepositories binds the same set to one open transaction for the unit of
// work.
func txRepositories(pool *pgxpool.Pool, tx pgx.Tx) port.TxRepositories {
	return port.TxRepositories{
		Users:       NewUserRepository(pool).WithTx(tx),
		Roles:       NewRoleRepository(pool).WithTx(tx),
		Permissions: NewPermissionRepository(pool).WithTx(tx),
		Tokens:      NewTokenRepository(pool).WithTx(tx),
		Audit:       NewAuditRepository(pool).WithTx(tx),
	}
}
