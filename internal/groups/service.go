// Package groups manages external user groups and group membership.
package groups

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/internal/identity"
	"github.com/dhawalhost/manageusers/pkg/apperr"
	"github.com/dhawalhost/manageusers/pkg/validation"
)

// Store is the external users registry as used for groups.
type Store interface {
	GetGroup(ctx context.Context, code string) (*identity.GroupDetail, error)
	CreateGroup(ctx context.Context, g identity.Group) error
	UpdateGroup(ctx context.Context, code, name string) error
	DeleteGroup(ctx context.Context, code string) error

	GetUserGroups(ctx context.Context, userID uuid.UUID) ([]identity.Group, error)
	AddGroupToUser(ctx context.Context, userID uuid.UUID, groupCode string) error
	RemoveGroupFromUser(ctx context.Context, userID uuid.UUID, groupCode string) error
}

// Service defines group operations.
type Service interface {
	GetGroup(ctx context.Context, code string) (identity.GroupDetail, error)
	CreateGroup(ctx context.Context, req CreateGroupRequest) error
	UpdateGroup(ctx context.Context, code, name string) error
	DeleteGroup(ctx context.Context, code string) error

	GetUserGroups(ctx context.Context, userID uuid.UUID) ([]identity.Group, error)
	AddGroupToUser(ctx context.Context, userID uuid.UUID, groupCode string) error
	RemoveGroupFromUser(ctx context.Context, userID uuid.UUID, groupCode string) error
}

// CreateGroupRequest is a new group.
type CreateGroupRequest struct {
	Code string `json:"groupCode" validate:"notblank,min=2,max=30"`
	Name string `json:"groupName" validate:"notblank,min=4,max=100"`
}

type service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a new group service.
func NewService(store Store, logger *zap.Logger) Service {
	return &service{store: store, logger: logger}
}

func (s *service) GetGroup(ctx context.Context, code string) (identity.GroupDetail, error) {
	g, err := s.store.GetGroup(ctx, code)
	if err != nil {
		return identity.GroupDetail{}, err
	}
	if g == nil {
		return identity.GroupDetail{}, apperr.NotFound("group %s not found", code)
	}
	return *g, nil
}

func (s *service) CreateGroup(ctx context.Context, req CreateGroupRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	g := identity.Group{
		Code: strings.ToUpper(strings.TrimSpace(req.Code)),
		Name: strings.TrimSpace(req.Name),
	}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return err
	}
	s.logger.Info("group created", zap.String("group", g.Code))
	return nil
}

func (s *service) UpdateGroup(ctx context.Context, code, name string) error {
	if err := validation.Struct(struct {
		Name string `json:"groupName" validate:"notblank,min=4,max=100"`
	}{name}); err != nil {
		return err
	}
	return s.store.UpdateGroup(ctx, code, strings.TrimSpace(name))
}

func (s *service) DeleteGroup(ctx context.Context, code string) error {
	return s.store.DeleteGroup(ctx, code)
}

func (s *service) GetUserGroups(ctx context.Context, userID uuid.UUID) ([]identity.Group, error) {
	return s.store.GetUserGroups(ctx, userID)
}

func (s *service) AddGroupToUser(ctx context.Context, userID uuid.UUID, groupCode string) error {
	return s.store.AddGroupToUser(ctx, userID, groupCode)
}

func (s *service) RemoveGroupFromUser(ctx context.Context, userID uuid.UUID, groupCode string) error {
	return s.store.RemoveGroupFromUser(ctx, userID, groupCode)
}
