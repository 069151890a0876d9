package rbac

import (
	"context"

	"github.com/google/uuid"

	"github.com/dhawalhost/manageusers/internal/identity"
)

// Registry is the external users role registry. It holds every role under
// its full name and is the source of record for role names.
type Registry interface {
	GetRoles(ctx context.Context, adminTypes []identity.AdminType) ([]identity.Role, error)
	GetRole(ctx context.Context, code string) (*identity.Role, error)
	CreateRole(ctx context.Context, role identity.Role) error
	UpdateRoleName(ctx context.Context, code, name string) error
	UpdateRoleDescription(ctx context.Context, code, description string) error
	UpdateRoleAdminTypes(ctx context.Context, code string, adminTypes []identity.AdminType) error

	GetUserRoles(ctx context.Context, userID uuid.UUID) ([]identity.Role, error)
	AddRolesToUser(ctx context.Context, userID uuid.UUID, roleCodes []string) error
	RemoveRoleFromUser(ctx context.Context, userID uuid.UUID, roleCode string) error
}

// PrisonRoles is the prison system's copy of the DPS roles and its user
// role assignments.
type PrisonRoles interface {
	GetUserRoles(ctx context.Context, username string, includeNomisRoles bool) (identity.UserRoleDetail, error)
	AddRoleToUser(ctx context.Context, username, roleCode, caseloadID string) error
	RemoveRoleFromUser(ctx context.Context, username, roleCode, caseloadID string) error
	CreateRole(ctx context.Context, role identity.Role) error
	UpdateRoleName(ctx context.Context, code, name string) error
	UpdateRoleAdminTypes(ctx context.Context, code string, adminTypes []identity.AdminType) error
}
