// Package auth adapts the auth service's user and token API.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/internal/connector"
	"github.com/dhawalhost/manageusers/internal/identity"
	"github.com/dhawalhost/manageusers/pkg/apperr"
	"github.com/dhawalhost/manageusers/pkg/client"
)

// EmailType selects which of a user's addresses a verification token is for.
type EmailType string

const (
	EmailTypePrimary   EmailType = "PRIMARY"
	EmailTypeSecondary EmailType = "SECONDARY"
)

// Connector talks to the auth service.
type Connector struct {
	service connector.Requester
	logger  *zap.Logger
}

// New creates an auth connector.
func New(service connector.Requester, logger *zap.Logger) *Connector {
	return &Connector{service: service, logger: logger}
}

type authUser struct {
	UserID    uuid.UUID `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Enabled   bool      `json:"enabled"`
	Locked    bool      `json:"locked"`
	Verified  bool      `json:"verified"`
}

// FindUser returns nil when auth holds no user with username for source.
func (c *Connector) FindUser(ctx context.Context, username string, source identity.AuthSource) (*identity.ExternalUser, error) {
	var a authUser
	q := url.Values{"username": {username}, "source": {string(source)}}
	found, err := client.Found(c.service.Get(ctx, "/api/user", q, &a))
	if !found {
		return nil, err
	}
	return &identity.ExternalUser{
		UserID:    a.UserID,
		Username:  a.Username,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Enabled:   a.Enabled,
		Locked:    a.Locked,
		Verified:  a.Verified,
	}, nil
}

// NewTokenRequest identifies the user a password-set token is issued for.
type NewTokenRequest struct {
	Username  string              `json:"username"`
	Email     string              `json:"email"`
	Source    identity.AuthSource `json:"source"`
	FirstName string              `json:"firstName"`
	LastName  string              `json:"lastName"`
}

// CreateNewToken issues a single-use token for a new account's password.
func (c *Connector) CreateNewToken(ctx context.Context, req NewTokenRequest) (string, error) {
	return c.postToken(ctx, "/api/new-token", req)
}

// CreateResetToken issues a password reset token for an external user.
func (c *Connector) CreateResetToken(ctx context.Context, userID uuid.UUID) (string, error) {
	return c.postToken(ctx, "/api/token/reset/"+userID.String(), nil)
}

// EmailTypeTokenRequest identifies the address a verification token is for.
type EmailTypeTokenRequest struct {
	Username  string              `json:"username"`
	Email     string              `json:"email"`
	Source    identity.AuthSource `json:"source"`
	EmailType EmailType           `json:"emailType"`
}

// CreateEmailTypeToken issues an email verification token.
func (c *Connector) CreateEmailTypeToken(ctx context.Context, req EmailTypeTokenRequest) (string, error) {
	return c.postToken(ctx, "/api/token/email-type", req)
}

// postToken issues a token request. The auth service answers with the bare
// token, as text or as a JSON string.
func (c *Connector) postToken(ctx context.Context, path string, body any) (string, error) {
	var token string
	if err := c.service.Post(ctx, path, body, &token); err != nil {
		return "", err
	}
	if token == "" {
		return "", apperr.Unavailable("auth", http.StatusOK, fmt.Errorf("empty token from %s", path))
	}
	return token, nil
}

type prisonUserEmail struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// SyncPrisonUserEmail copies a prison user's email into auth.
func (c *Connector) SyncPrisonUserEmail(ctx context.Context, u identity.PrisonUser) error {
	return c.service.Post(ctx, "/api/prisonuser/email", prisonUserEmail{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}, nil)
}
