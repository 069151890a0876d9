package externalusers

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/dhawalhost/manageusers/internal/connector"
	"github.com/dhawalhost/manageusers/internal/identity"
	"github.com/dhawalhost/manageusers/pkg/client"
)

type roleDTO struct {
	RoleCode        string               `json:"roleCode"`
	RoleName        string               `json:"roleName"`
	RoleDescription string               `json:"roleDescription,omitempty"`
	AdminType       []identity.AdminType `json:"adminType,omitempty"`
}

func (d roleDTO) toRole() identity.Role {
	return identity.Role{Code: d.RoleCode, Name: d.RoleName, Description: d.RoleDescription, AdminTypes: d.AdminType}
}

func toRoles(ds []roleDTO) []identity.Role {
	return lo.Map(ds, func(d roleDTO, _ int) identity.Role { return d.toRole() })
}

func adminTypeCodes(types []identity.AdminType) []string {
	return lo.Map(types, func(a identity.AdminType, _ int) string { return a.Code })
}

// GetRoles returns the registry roles grantable by any of adminTypes, or all
// roles when adminTypes is empty.
func (c *Connector) GetRoles(ctx context.Context, adminTypes []identity.AdminType) ([]identity.Role, error) {
	q := url.Values{}
	if len(adminTypes) > 0 {
		q.Set("adminTypes", strings.Join(adminTypeCodes(adminTypes), ","))
	}
	var ds []roleDTO
	if err := c.service.Get(ctx, "/roles", q, &ds); err != nil {
		return nil, err
	}
	return toRoles(ds), nil
}

// GetRole returns nil when the registry has no role with code.
func (c *Connector) GetRole(ctx context.Context, code string) (*identity.Role, error) {
	var d roleDTO
	found, err := client.Found(c.service.Get(ctx, "/roles/"+connector.PathEscape(code), nil, &d))
	if !found {
		return nil, err
	}
	r := d.toRole()
	return &r, nil
}

type createRoleRequest struct {
	RoleCode        string   `json:"roleCode"`
	RoleName        string   `json:"roleName"`
	RoleDescription string   `json:"roleDescription,omitempty"`
	AdminType       []string `json:"adminType"`
}

// CreateRole adds a role to the registry under its full name.
func (c *Connector) CreateRole(ctx context.Context, role identity.Role) error {
	return c.user.Post(ctx, "/roles", createRoleRequest{
		RoleCode:        role.Code,
		RoleName:        role.Name,
		RoleDescription: role.Description,
		AdminType:       adminTypeCodes(role.AdminTypes),
	}, nil)
}

// UpdateRoleName renames a registry role.
func (c *Connector) UpdateRoleName(ctx context.Context, code, name string) error {
	return c.user.Put(ctx, "/roles/"+connector.PathEscape(code), map[string]string{"roleName": name}, nil)
}

// UpdateRoleDescription changes a registry role's description.
func (c *Connector) UpdateRoleDescription(ctx context.Context, code, description string) error {
	return c.user.Put(ctx, "/roles/"+connector.PathEscape(code)+"/description", map[string]string{"roleDescription": description}, nil)
}

// UpdateRoleAdminTypes replaces a registry role's admin types.
func (c *Connector) UpdateRoleAdminTypes(ctx context.Context, code string, adminTypes []identity.AdminType) error {
	return c.user.Put(ctx, "/roles/"+connector.PathEscape(code)+"/admintype", map[string][]string{
		"adminType": adminTypeCodes(adminTypes),
	}, nil)
}

// GetGroup returns nil when no group has code.
func (c *Connector) GetGroup(ctx context.Context, code string) (*identity.GroupDetail, error) {
	var g identity.GroupDetail
	found, err := client.Found(c.user.Get(ctx, "/groups/"+connector.PathEscape(code), nil, &g))
	if !found {
		return nil, err
	}
	return &g, nil
}

// CreateGroup adds a group.
func (c *Connector) CreateGroup(ctx context.Context, g identity.Group) error {
	return c.user.Post(ctx, "/groups", g, nil)
}

// UpdateGroup renames a group.
func (c *Connector) UpdateGroup(ctx context.Context, code, name string) error {
	return c.user.Put(ctx, "/groups/"+connector.PathEscape(code), map[string]string{"groupName": name}, nil)
}

// DeleteGroup removes a group.
func (c *Connector) DeleteGroup(ctx context.Context, code string) error {
	return c.user.Delete(ctx, "/groups/"+connector.PathEscape(code))
}

// GetEmailDomains lists the allowed email domains.
func (c *Connector) GetEmailDomains(ctx context.Context) ([]identity.EmailDomain, error) {
	var domains []identity.EmailDomain
	if err := c.user.Get(ctx, "/email-domains", nil, &domains); err != nil {
		return nil, err
	}
	return domains, nil
}

// AddEmailDomain allows a new email domain.
func (c *Connector) AddEmailDomain(ctx context.Context, domain, description string) (identity.EmailDomain, error) {
	var created identity.EmailDomain
	err := c.user.Post(ctx, "/email-domains", map[string]string{"name": domain, "description": description}, &created)
	return created, err
}

// DeleteEmailDomain removes a domain from the allow list.
func (c *Connector) DeleteEmailDomain(ctx context.Context, id uuid.UUID) error {
	return c.user.Delete(ctx, "/email-domains/"+id.String())
}

// ValidateEmailDomain reports whether domain is on the allow list.
func (c *Connector) ValidateEmailDomain(ctx context.Context, domain string) (bool, error) {
	var ok bool
	if err := c.service.Get(ctx, "/validate/email-domain", url.Values{"emailDomain": {domain}}, &ok); err != nil {
		return false, err
	}
	return ok, nil
}
