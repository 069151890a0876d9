// Package delius adapts the probation system's user details API.
package delius

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/internal/connector"
	"github.com/dhawalhost/manageusers/internal/identity"
	"github.com/dhawalhost/manageusers/pkg/client"
)

// Connector looks up probation users.
type Connector struct {
	service connector.Requester
	logger  *zap.Logger
}

// New creates a probation connector.
func New(service connector.Requester, logger *zap.Logger) *Connector {
	return &Connector{service: service, logger: logger}
}

type userDetails struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
	Enabled   bool   `json:"enabled"`
}

var emailReplacer = strings.NewReplacer("’", "'")

func (d userDetails) toDeliusUser() identity.DeliusUser {
	return identity.DeliusUser{
		UserID:    d.UserID,
		Username:  strings.ToUpper(d.Username),
		FirstName: d.FirstName,
		Surname:   d.Surname,
		Email:     emailReplacer.Replace(strings.ToLower(d.Email)),
		Enabled:   d.Enabled,
	}
}

// FindUserByUsername returns nil when the probation system has no such user.
// Probation usernames never contain '@', so email-shaped names are not
// looked up.
func (c *Connector) FindUserByUsername(ctx context.Context, username string) (*identity.DeliusUser, error) {
	if strings.Contains(username, "@") {
		c.logger.Debug("skipping probation lookup for email-shaped username", zap.String("username", username))
		return nil, nil
	}
	var d userDetails
	found, err := client.Found(c.service.Get(ctx, "/secure/users/"+connector.PathEscape(username)+"/details", nil, &d))
	if !found {
		return nil, err
	}
	u := d.toDeliusUser()
	return &u, nil
}
