// Package rbac manages roles in the external registry and the prison system
// and reconciles the role names a prison user sees.
package rbac

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dhawalhost/manageusers/internal/identity"
	"github.com/dhawalhost/manageusers/pkg/apperr"
	"github.com/dhawalhost/manageusers/pkg/validation"
)

// Service defines role operations.
type Service interface {
	// Roles
	GetRoles(ctx context.Context, adminTypes []identity.AdminType) ([]identity.Role, error)
	GetRole(ctx context.Context, code string) (identity.Role, error)
	CreateRole(ctx context.Context, req CreateRoleRequest) error
	UpdateRoleName(ctx context.Context, code, name string) error
	UpdateRoleDescription(ctx context.Context, code, description string) error
	UpdateRoleAdminTypes(ctx context.Context, code string, adminTypes []string) error

	// Prison user roles
	GetPrisonUserRoles(ctx context.Context, username string, includeNomisRoles bool) (identity.UserRoleDetail, error)
	AddRoleToPrisonUser(ctx context.Context, username, roleCode, caseloadID string) error
	RemoveRoleFromPrisonUser(ctx context.Context, username, roleCode, caseloadID string) error

	// External user roles
	GetExternalUserRoles(ctx context.Context, userID uuid.UUID) ([]identity.Role, error)
	AddRolesToExternalUser(ctx context.Context, userID uuid.UUID, roleCodes []string) error
	RemoveRoleFromExternalUser(ctx context.Context, userID uuid.UUID, roleCode string) error
}

// CreateRoleRequest is a new role.
type CreateRoleRequest struct {
	Code        string   `json:"roleCode" validate:"notblank,min=2,max=30"`
	Name        string   `json:"roleName" validate:"notblank,min=4,max=128"`
	Description string   `json:"roleDescription" validate:"max=1024"`
	AdminTypes  []string `json:"adminType" validate:"required,min=1"`
}

type service struct {
	registry Registry
	prison   PrisonRoles
	logger   *zap.Logger
}

// NewService creates a new role service.
func NewService(registry Registry, prison PrisonRoles, logger *zap.Logger) Service {
	return &service{registry: registry, prison: prison, logger: logger}
}

func parseAdminTypes(codes []string) ([]identity.AdminType, error) {
	types, err := identity.ParseAdminTypes(codes)
	if err != nil {
		return nil, apperr.Validation("adminType", err.Error())
	}
	return types, nil
}

func (s *service) GetRoles(ctx context.Context, adminTypes []identity.AdminType) ([]identity.Role, error) {
	return s.registry.GetRoles(ctx, adminTypes)
}

func (s *service) GetRole(ctx context.Context, code string) (identity.Role, error) {
	role, err := s.registry.GetRole(ctx, code)
	if err != nil {
		return identity.Role{}, err
	}
	if role == nil {
		return identity.Role{}, apperr.NotFound("role %s not found", code)
	}
	return *role, nil
}

func (s *service) CreateRole(ctx context.Context, req CreateRoleRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	types, err := parseAdminTypes(req.AdminTypes)
	if err != nil {
		return err
	}
	role := identity.Role{
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		AdminTypes:  types,
	}

	if err := s.registry.CreateRole(ctx, role); err != nil {
		return err
	}
	if !identity.HasDpsAdminType(types) {
		return nil
	}
	if err := s.prison.CreateRole(ctx, role); err != nil {
		s.logger.Error("role created in registry but not in prison system",
			zap.String("role", role.Code), zap.Error(err))
		return err
	}
	return nil
}

func (s *service) UpdateRoleName(ctx context.Context, code, name string) error {
	if err := validation.Struct(struct {
		Name string `json:"roleName" validate:"notblank,min=4,max=128"`
	}{name}); err != nil {
		return err
	}
	role, err := s.GetRole(ctx, code)
	if err != nil {
		return err
	}
	if err := s.registry.UpdateRoleName(ctx, role.Code, name); err != nil {
		return err
	}
	if identity.HasDpsAdminType(role.AdminTypes) {
		return s.prison.UpdateRoleName(ctx, role.Code, name)
	}
	return nil
}

func (s *service) UpdateRoleDescription(ctx context.Context, code, description string) error {
	if err := validation.Struct(struct {
		Description string `json:"roleDescription" validate:"max=1024"`
	}{description}); err != nil {
		return err
	}
	return s.registry.UpdateRoleDescription(ctx, code, description)
}

// UpdateRoleAdminTypes replaces a role's admin types. A role gaining its first
// DPS admin type is created in the prison system; one losing them is left
// there, since the prison system cannot delete roles.
func (s *service) UpdateRoleAdminTypes(ctx context.Context, code string, adminTypes []string) error {
	if len(adminTypes) == 0 {
		return apperr.Validation("adminType", "at least one admin type is required")
	}
	types, err := parseAdminTypes(adminTypes)
	if err != nil {
		return err
	}
	current, err := s.GetRole(ctx, code)
	if err != nil {
		return err
	}
	if err := s.registry.UpdateRoleAdminTypes(ctx, current.Code, types); err != nil {
		return err
	}

	switch {
	case !identity.HasDpsAdminType(types):
		return nil
	case identity.HasDpsAdminType(current.AdminTypes):
		return s.prison.UpdateRoleAdminTypes(ctx, current.Code, types)
	default:
		s.logger.Info("role gained a DPS admin type, creating it in the prison system", zap.String("role", current.Code))
		return s.prison.CreateRole(ctx, identity.Role{
			Code:        current.Code,
			Name:        current.Name,
			Description: current.Description,
			AdminTypes:  types,
		})
	}
}

// GetPrisonUserRoles returns a prison user's roles with DPS role names taken
// from the registry, since the prison system stores truncated names.
func (s *service) GetPrisonUserRoles(ctx context.Context, username string, includeNomisRoles bool) (identity.UserRoleDetail, error) {
	var (
		detail   identity.UserRoleDetail
		registry []identity.Role
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail, err = s.prison.GetUserRoles(gctx, strings.ToUpper(username), includeNomisRoles)
		return err
	})
	g.Go(func() error {
		var err error
		registry, err = s.registry.GetRoles(gctx, []identity.AdminType{identity.AdminTypeDpsAdm})
		return err
	})
	if err := g.Wait(); err != nil {
		return identity.UserRoleDetail{}, err
	}
	return identity.ReconcileRoleNames(detail, registry), nil
}

func (s *service) AddRoleToPrisonUser(ctx context.Context, username, roleCode, caseloadID string) error {
	return s.prison.AddRoleToUser(ctx, strings.ToUpper(username), roleCode, caseloadID)
}

func (s *service) RemoveRoleFromPrisonUser(ctx context.Context, username, roleCode, caseloadID string) error {
	return s.prison.RemoveRoleFromUser(ctx, strings.ToUpper(username), roleCode, caseloadID)
}

func (s *service) GetExternalUserRoles(ctx context.Context, userID uuid.UUID) ([]identity.Role, error) {
	return s.registry.GetUserRoles(ctx, userID)
}

func (s *service) AddRolesToExternalUser(ctx context.Context, userID uuid.UUID, roleCodes []string) error {
	if len(roleCodes) == 0 {
		return apperr.Validation("roleCodes", "at least one role code is required")
	}
	return s.registry.AddRolesToUser(ctx, userID, roleCodes)
}

func (s *service) RemoveRoleFromExternalUser(ctx context.Context, userID uuid.UUID, roleCode string) error {
	return s.registry.RemoveRoleFromUser(ctx, userID, roleCode)
}
