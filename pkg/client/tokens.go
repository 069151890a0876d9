package client

import (
	"context"

	"github.com/dhawalhost/manageusers/pkg/apperr"
	"github.com/dhawalhost/manageusers/pkg/middleware"
	"github.com/dhawalhost/manageusers/pkg/tokencache"
)

// TokenSource supplies the bearer token for one upstream call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type invalidator interface {
	invalidate()
}

// ServiceToken authenticates as the service itself using a cached
// client-credentials token.
type ServiceToken struct {
	Cache          tokencache.Cache
	RegistrationID string
}

func (s ServiceToken) Token(ctx context.Context) (string, error) {
	tok, err := s.Cache.Token(ctx, s.RegistrationID)
	if err != nil {
		return "", apperr.Unavailable("auth", 0, err)
	}
	return tok.AccessToken, nil
}

func (s ServiceToken) invalidate() {
	s.Cache.Invalidate(s.RegistrationID)
}

// CallerToken forwards the token of the user behind the request.
type CallerToken struct{}

func (CallerToken) Token(ctx context.Context) (string, error) {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok || caller.Token == "" {
		return "", apperr.Unauthorized("no caller token to forward")
	}
	return caller.Token, nil
}

// StaticToken always returns the same token.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}
