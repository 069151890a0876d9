// Package nomis adapts the prison user and role API.
package nomis

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/internal/connector"
	"github.com/dhawalhost/manageusers/internal/identity"
	"github.com/dhawalhost/manageusers/pkg/apperr"
	"github.com/dhawalhost/manageusers/pkg/client"
	"github.com/dhawalhost/manageusers/pkg/validation"
)

// Account endpoints by prison user type.
const (
	adminAccountPath      = "/users/admin-account"
	generalAccountPath    = "/users/general-account"
	localAdminAccountPath = "/users/local-admin-account"
)

// Connector talks to the prison system. Writes made on behalf of an
// administrator use the caller's token; lookups use the service token.
type Connector struct {
	user    connector.Requester
	service connector.Requester
	logger  *zap.Logger
}

// New creates a prison connector.
func New(user, service connector.Requester, logger *zap.Logger) *Connector {
	return &Connector{user: user, service: service, logger: logger}
}

type userDetail struct {
	Username         string `json:"username"`
	StaffID          int64  `json:"staffId"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	ActiveCaseloadID string `json:"activeCaseloadId"`
	AccountStatus    string `json:"accountStatus"`
	Enabled          bool   `json:"enabled"`
	PrimaryEmail     string `json:"primaryEmail"`
}

func (d userDetail) toPrisonUser() identity.PrisonUser {
	return identity.PrisonUser{
		Username:         d.Username,
		StaffID:          d.StaffID,
		FirstName:        d.FirstName,
		LastName:         d.LastName,
		Email:            d.PrimaryEmail,
		ActiveCaseLoadID: d.ActiveCaseloadID,
		AccountStatus:    d.AccountStatus,
		Enabled:          d.Enabled,
	}
}

// FindUserByUsername returns nil when the prison system has no such user.
func (c *Connector) FindUserByUsername(ctx context.Context, username string) (*identity.PrisonUser, error) {
	var d userDetail
	found, err := client.Found(c.service.Get(ctx, "/users/"+connector.PathEscape(username), nil, &d))
	if !found {
		return nil, err
	}
	u := d.toPrisonUser()
	return &u, nil
}

// FindUsersByEmail returns every prison user holding email.
func (c *Connector) FindUsersByEmail(ctx context.Context, email string) ([]identity.PrisonUser, error) {
	var ds []userDetail
	found, err := client.Found(c.service.Get(ctx, "/users/user", url.Values{"email": {email}}, &ds))
	if !found {
		return nil, err
	}
	users := make([]identity.PrisonUser, 0, len(ds))
	for _, d := range ds {
		users = append(users, d.toPrisonUser())
	}
	return users, nil
}

// CreateUserRequest is a new prison account. DefaultCaseloadID is required
// for general and local administrator accounts.
type CreateUserRequest struct {
	Username          string `json:"username" validate:"notblank,max=30"`
	Email             string `json:"email" validate:"required,email"`
	FirstName         string `json:"firstName" validate:"notblank,max=35"`
	LastName          string `json:"lastName" validate:"notblank,max=35"`
	DefaultCaseloadID string `json:"defaultCaseloadId,omitempty"`
}

type localAdminAccount struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	LocalAdminGroup string `json:"localAdminGroup"`
}

// CreateCentralAdminUser creates a DPS central administrator account.
func (c *Connector) CreateCentralAdminUser(ctx context.Context, req CreateUserRequest) (identity.PrisonUser, error) {
	req.DefaultCaseloadID = ""
	return c.createUser(ctx, adminAccountPath, req, req)
}

// CreateGeneralUser creates a general account in the default caseload.
func (c *Connector) CreateGeneralUser(ctx context.Context, req CreateUserRequest) (identity.PrisonUser, error) {
	if req.DefaultCaseloadID == "" {
		return identity.PrisonUser{}, validationErr("defaultCaseloadId")
	}
	return c.createUser(ctx, generalAccountPath, req, req)
}

// CreateLocalAdminUser creates a local system administrator account for the
// caseload's admin group.
func (c *Connector) CreateLocalAdminUser(ctx context.Context, req CreateUserRequest) (identity.PrisonUser, error) {
	if req.DefaultCaseloadID == "" {
		return identity.PrisonUser{}, validationErr("defaultCaseloadId")
	}
	body := localAdminAccount{
		Username:        req.Username,
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		LocalAdminGroup: req.DefaultCaseloadID,
	}
	return c.createUser(ctx, localAdminAccountPath, req, body)
}

func (c *Connector) createUser(ctx context.Context, path string, req CreateUserRequest, body any) (identity.PrisonUser, error) {
	if err := validation.Struct(req); err != nil {
		return identity.PrisonUser{}, err
	}
	var d userDetail
	if err := c.user.Post(ctx, path, body, &d); err != nil {
		return identity.PrisonUser{}, err
	}
	c.logger.Info("prison user created", zap.String("username", d.Username), zap.String("account", path))
	return d.toPrisonUser(), nil
}

// LockUser disables a prison account.
func (c *Connector) LockUser(ctx context.Context, username string) error {
	return c.user.Put(ctx, "/users/"+connector.PathEscape(username)+"/lock-user", nil, nil)
}

// UnlockUser re-enables a prison account.
func (c *Connector) UnlockUser(ctx context.Context, username string) error {
	return c.user.Put(ctx, "/users/"+connector.PathEscape(username)+"/unlock-user", nil, nil)
}

// GetUserRoles returns the user's DPS roles and, when requested, their
// caseload roles. Role names are as stored in the prison system.
func (c *Connector) GetUserRoles(ctx context.Context, username string, includeNomisRoles bool) (identity.UserRoleDetail, error) {
	q := url.Values{}
	if includeNomisRoles {
		q.Set("include-nomis-roles", "true")
	}
	var detail identity.UserRoleDetail
	if err := c.user.Get(ctx, "/users/"+connector.PathEscape(username)+"/roles", q, &detail); err != nil {
		return identity.UserRoleDetail{}, err
	}
	return detail, nil
}

// AddRoleToUser grants a role, in caseloadID when set.
func (c *Connector) AddRoleToUser(ctx context.Context, username, roleCode, caseloadID string) error {
	return c.user.Post(ctx, userRolePath(username, roleCode, caseloadID), nil, nil)
}

// RemoveRoleFromUser revokes a role, in caseloadID when set.
func (c *Connector) RemoveRoleFromUser(ctx context.Context, username, roleCode, caseloadID string) error {
	return c.user.Delete(ctx, userRolePath(username, roleCode, caseloadID))
}

func userRolePath(username, roleCode, caseloadID string) string {
	path := fmt.Sprintf("/users/%s/roles/%s", connector.PathEscape(username), connector.PathEscape(roleCode))
	if caseloadID != "" {
		path += "?" + url.Values{"caseloadId": {caseloadID}}.Encode()
	}
	return path
}

type roleRequest struct {
	Code          string   `json:"code,omitempty"`
	Name          string   `json:"name,omitempty"`
	AdminRoleOnly bool     `json:"adminRoleOnly"`
	AdminTypes    []string `json:"adminTypes,omitempty"`
}

// CreateRole creates a DPS role. The name is truncated to what the prison
// system stores and a local administrator type implies the central one.
func (c *Connector) CreateRole(ctx context.Context, role identity.Role) error {
	body := roleRequest{
		Code:          role.Code,
		Name:          identity.TruncateForNomis(role.Name),
		AdminRoleOnly: adminRoleOnly(role.AdminTypes),
		AdminTypes:    identity.AddDpsAdmTypeIfRequired(role.AdminTypes),
	}
	return c.user.Post(ctx, "/roles", body, nil)
}

// UpdateRoleName renames a DPS role.
func (c *Connector) UpdateRoleName(ctx context.Context, code, name string) error {
	return c.user.Put(ctx, "/roles/"+connector.PathEscape(code), map[string]string{
		"name": identity.TruncateForNomis(name),
	}, nil)
}

// UpdateRoleAdminTypes replaces the admin types of a DPS role.
func (c *Connector) UpdateRoleAdminTypes(ctx context.Context, code string, adminTypes []identity.AdminType) error {
	body := roleRequest{
		AdminRoleOnly: adminRoleOnly(adminTypes),
		AdminTypes:    identity.AddDpsAdmTypeIfRequired(adminTypes),
	}
	return c.user.Put(ctx, "/roles/"+connector.PathEscape(code), body, nil)
}

// Roles only central administrators may grant are admin-only in the prison
// system.
func adminRoleOnly(types []identity.AdminType) bool {
	for _, t := range types {
		if t == identity.AdminTypeDpsLsa {
			return false
		}
	}
	return true
}

// GetCaseloads returns the caseload reference data.
func (c *Connector) GetCaseloads(ctx context.Context) ([]identity.Caseload, error) {
	var caseloads []identity.Caseload
	if err := c.service.Get(ctx, "/reference-data/caseloads", nil, &caseloads); err != nil {
		return nil, err
	}
	return caseloads, nil
}

// UserCaseloads is a user's caseload assignment.
type UserCaseloads struct {
	Username       string              `json:"username"`
	Active         bool                `json:"active"`
	AccountType    string              `json:"accountType"`
	ActiveCaseload *identity.Caseload  `json:"activeCaseload,omitempty"`
	Caseloads      []identity.Caseload `json:"caseloads"`
}

// GetUserCaseloads returns the caseloads a user may work in.
func (c *Connector) GetUserCaseloads(ctx context.Context, username string) (UserCaseloads, error) {
	var uc UserCaseloads
	if err := c.user.Get(ctx, "/users/"+connector.PathEscape(username)+"/caseloads", nil, &uc); err != nil {
		return UserCaseloads{}, err
	}
	return uc, nil
}

// AddUserCaseload grants access to a caseload.
func (c *Connector) AddUserCaseload(ctx context.Context, username, caseloadID string) error {
	return c.user.Post(ctx, fmt.Sprintf("/users/%s/caseloads/%s", connector.PathEscape(username), connector.PathEscape(caseloadID)), nil, nil)
}

// RemoveUserCaseload revokes access to a caseload.
func (c *Connector) RemoveUserCaseload(ctx context.Context, username, caseloadID string) error {
	return c.user.Delete(ctx, fmt.Sprintf("/users/%s/caseloads/%s", connector.PathEscape(username), connector.PathEscape(caseloadID)))
}

func validationErr(field string) error {
	return apperr.Validation(field, field+" is required")
}
