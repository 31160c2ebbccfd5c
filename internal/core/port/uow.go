package port

import "context"

// TxRepositories bundles repositories bound to a single store transaction.
// Mutations and their audit entries go through the same bundle so diff
// capture is atomic with the change it records.
type TxRepositories struct {
	Users       UserRepository
	Roles       RoleRepository
	Permissions PermissionRepository
	Tokens      TokenRepository
	Audit       AuditRepository
}

// UnitOfWork runs fn inside one store transaction; the transaction commits
// when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
