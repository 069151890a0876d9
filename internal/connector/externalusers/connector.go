// Package externalusers adapts the external users directory, which also
// holds the authoritative role and group registries.
package externalusers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/internal/connector"
	"github.com/dhawalhost/manageusers/internal/identity"
	"github.com/dhawalhost/manageusers/pkg/client"
	"github.com/dhawalhost/manageusers/pkg/validation"
)

// Connector talks to the external users API.
type Connector struct {
	user    connector.Requester
	service connector.Requester
	logger  *zap.Logger
}

// New creates an external users connector.
func New(user, service connector.Requester, logger *zap.Logger) *Connector {
	return &Connector{user: user, service: service, logger: logger}
}

type userDTO struct {
	UserID    uuid.UUID `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Enabled   bool      `json:"enabled"`
	Locked    bool      `json:"locked"`
	Verified  bool      `json:"verified"`
}

func (d userDTO) toExternalUser() identity.ExternalUser {
	return identity.ExternalUser{
		UserID:    d.UserID,
		Username:  d.Username,
		Email:     d.Email,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Enabled:   d.Enabled,
		Locked:    d.Locked,
		Verified:  d.Verified,
	}
}

func toExternalUsers(ds []userDTO) []identity.ExternalUser {
	return lo.Map(ds, func(d userDTO, _ int) identity.ExternalUser { return d.toExternalUser() })
}

// FindUserByUsername returns nil when no external user has username.
func (c *Connector) FindUserByUsername(ctx context.Context, username string) (*identity.ExternalUser, error) {
	var d userDTO
	found, err := client.Found(c.service.Get(ctx, "/users/"+connector.PathEscape(username), nil, &d))
	if !found {
		return nil, err
	}
	u := d.toExternalUser()
	return &u, nil
}

// FindUsersByEmail returns the external users holding email.
func (c *Connector) FindUsersByEmail(ctx context.Context, email string) ([]identity.ExternalUser, error) {
	var ds []userDTO
	found, err := client.Found(c.service.Get(ctx, "/users", url.Values{"email": {email}}, &ds))
	if !found {
		return nil, err
	}
	return toExternalUsers(ds), nil
}

// SearchFilter narrows a user search.
type SearchFilter struct {
	Name   string   `form:"name"`
	Roles  []string `form:"roles"`
	Groups []string `form:"groups"`
	Status string   `form:"status" validate:"omitempty,oneof=ALL ACTIVE INACTIVE"`
	connector.PageRequest
}

// SearchUsers pages through users matching f.
func (c *Connector) SearchUsers(ctx context.Context, f SearchFilter) (connector.Page[identity.ExternalUser], error) {
	q := url.Values{}
	if f.Name != "" {
		q.Set("name", f.Name)
	}
	if len(f.Roles) > 0 {
		q.Set("roles", strings.Join(f.Roles, ","))
	}
	if len(f.Groups) > 0 {
		q.Set("groups", strings.Join(f.Groups, ","))
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	f.PageRequest.Apply(q)

	var page connector.Page[userDTO]
	if err := c.user.Get(ctx, "/users/search", q, &page); err != nil {
		return connector.Page[identity.ExternalUser]{}, err
	}
	return connector.Page[identity.ExternalUser]{
		Content:       toExternalUsers(page.Content),
		TotalElements: page.TotalElements,
		Number:        page.Number,
		Size:          page.Size,
	}, nil
}

// CreateUserRequest is a new external user.
type CreateUserRequest struct {
	Email      string   `json:"email" validate:"required,email,max=240"`
	FirstName  string   `json:"firstName" validate:"notblank,max=50"`
	LastName   string   `json:"lastName" validate:"notblank,max=50"`
	GroupCodes []string `json:"groupCodes,omitempty"`
}

// CreateUser creates an external user and returns it.
func (c *Connector) CreateUser(ctx context.Context, req CreateUserRequest) (identity.ExternalUser, error) {
	if err := validation.Struct(req); err != nil {
		return identity.ExternalUser{}, err
	}
	var d userDTO
	if err := c.user.Post(ctx, "/users/user/create", req, &d); err != nil {
		return identity.ExternalUser{}, err
	}
	c.logger.Info("external user created", zap.String("userId", d.UserID.String()))
	return d.toExternalUser(), nil
}

// EmailNotification identifies whom to email after an account change.
type EmailNotification struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Admin     string `json:"admin"`
}

// EnableUser enables a user and returns the details for the enabled email.
func (c *Connector) EnableUser(ctx context.Context, userID uuid.UUID) (EmailNotification, error) {
	var n EmailNotification
	if err := c.user.Put(ctx, fmt.Sprintf("/users/%s/enable", userID), nil, &n); err != nil {
		return EmailNotification{}, err
	}
	return n, nil
}

// DisableUser disables a user, recording why.
func (c *Connector) DisableUser(ctx context.Context, userID uuid.UUID, reason string) error {
	return c.user.Put(ctx, fmt.Sprintf("/users/%s/disable", userID), map[string]string{"reason": reason}, nil)
}

// AmendEmail changes a user's email and returns the details for the
// verification email.
func (c *Connector) AmendEmail(ctx context.Context, userID uuid.UUID, email string) (EmailNotification, error) {
	var n EmailNotification
	if err := c.user.Put(ctx, fmt.Sprintf("/users/%s/email", userID), map[string]string{"email": email}, &n); err != nil {
		return EmailNotification{}, err
	}
	return n, nil
}

// GetUserRoles returns the roles held by a user.
func (c *Connector) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]identity.Role, error) {
	var ds []roleDTO
	if err := c.user.Get(ctx, fmt.Sprintf("/users/%s/roles", userID), nil, &ds); err != nil {
		return nil, err
	}
	return toRoles(ds), nil
}

// AddRolesToUser grants roles to a user.
func (c *Connector) AddRolesToUser(ctx context.Context, userID uuid.UUID, roleCodes []string) error {
	return c.user.Post(ctx, fmt.Sprintf("/users/%s/roles", userID), roleCodes, nil)
}

// RemoveRoleFromUser revokes a role.
func (c *Connector) RemoveRoleFromUser(ctx context.Context, userID uuid.UUID, roleCode string) error {
	return c.user.Delete(ctx, fmt.Sprintf("/users/%s/roles/%s", userID, connector.PathEscape(roleCode)))
}

// GetUserGroups returns the groups a user belongs to.
func (c *Connector) GetUserGroups(ctx context.Context, userID uuid.UUID) ([]identity.Group, error) {
	var groups []identity.Group
	if err := c.user.Get(ctx, fmt.Sprintf("/users/%s/groups", userID), nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// AddGroupToUser adds a user to a group.
func (c *Connector) AddGroupToUser(ctx context.Context, userID uuid.UUID, groupCode string) error {
	return c.user.Put(ctx, fmt.Sprintf("/users/%s/groups/%s", userID, connector.PathEscape(groupCode)), nil, nil)
}

// RemoveGroupFromUser removes a user from a group.
func (c *Connector) RemoveGroupFromUser(ctx context.Context, userID uuid.UUID, groupCode string) error {
	return c.user.Delete(ctx, fmt.Sprintf("/users/%s/groups/%s", userID, connector.PathEscape(groupCode)))
}
