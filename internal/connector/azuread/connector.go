// Package azuread looks up Azure AD users through the auth service.
package azuread

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/internal/connector"
	"github.com/dhawalhost/manageusers/internal/identity"
	"github.com/dhawalhost/manageusers/pkg/client"
)

// Connector looks up Azure AD users.
type Connector struct {
	auth   connector.Requester
	logger *zap.Logger
}

// New creates an Azure AD connector backed by the auth service.
func New(auth connector.Requester, logger *zap.Logger) *Connector {
	return &Connector{auth: auth, logger: logger}
}

type azureUser struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Enabled   bool   `json:"enabled"`
}

func (a azureUser) toAzureUser() identity.AzureUser {
	return identity.AzureUser{
		Username:  a.Username,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Enabled:   a.Enabled,
	}
}

// FindUserByUsername returns nil when username is not an Azure object id or
// no such user exists.
func (c *Connector) FindUserByUsername(ctx context.Context, username string) (*identity.AzureUser, error) {
	if _, err := uuid.Parse(username); err != nil {
		return nil, nil
	}
	var a azureUser
	found, err := client.Found(c.auth.Get(ctx, "/api/azureuser/"+connector.PathEscape(username), nil, &a))
	if !found {
		return nil, err
	}
	u := a.toAzureUser()
	return &u, nil
}
