// Package tokencache holds client-credentials access tokens shared by every
// request in the process.
//
// Tokens are keyed by client registration id only. The process acts as a
// single service principal, so a token obtained for one request is valid for
// any other request using the same registration.
package tokencache

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Cache returns service tokens for a client registration.
type Cache interface {
	Token(ctx context.Context, registrationID string) (*oauth2.Token, error)
	Invalidate(registrationID string)
}

// Registration describes one OAuth2 client.
type Registration struct {
	ID           string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
	// Timeout bounds one token fetch. Defaults to 10s.
	Timeout time.Duration
}

type registration struct {
	cfg    *clientcredentials.Config
	client *http.Client
}

type cache struct {
	mu            sync.RWMutex
	registrations map[string]registration
	sources       map[string]oauth2.TokenSource
	logger        *zap.Logger
}

// New returns a Cache for the given registrations.
func New(logger *zap.Logger, regs ...Registration) Cache {
	c := &cache{
		registrations: make(map[string]registration, len(regs)),
		sources:       make(map[string]oauth2.TokenSource, len(regs)),
		logger:        logger,
	}
	for _, r := range regs {
		timeout := r.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		c.registrations[r.ID] = registration{
			cfg: &clientcredentials.Config{
				ClientID:     r.ClientID,
				ClientSecret: r.ClientSecret,
				TokenURL:     r.TokenURL,
				Scopes:       r.Scopes,
				AuthStyle:    oauth2.AuthStyleInHeader,
			},
			client: &http.Client{Timeout: timeout},
		}
	}
	return c
}

type fetched struct {
	tok *oauth2.Token
	err error
}

// Token returns a valid token, fetching one when the cached token has
// expired. It returns ctx.Err() once ctx is done even if a fetch is still in
// flight; that fetch is bounded by the registration timeout.
func (c *cache) Token(ctx context.Context, registrationID string) (*oauth2.Token, error) {
	src, err := c.source(registrationID)
	if err != nil {
		return nil, err
	}

	done := make(chan fetched, 1)
	go func() {
		tok, err := src.Token()
		done <- fetched{tok: tok, err: err}
	}()

	select {
	case f := <-done:
		if f.err != nil {
			c.Invalidate(registrationID)
			return nil, fmt.Errorf("fetch token for %s: %w", registrationID, f.err)
		}
		return f.tok, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch token for %s: %w", registrationID, ctx.Err())
	}
}

func (c *cache) Invalidate(registrationID string) {
	c.mu.Lock()
	delete(c.sources, registrationID)
	c.mu.Unlock()
	c.logger.Debug("service token invalidated", zap.String("registration", registrationID))
}

func (c *cache) source(registrationID string) (oauth2.TokenSource, error) {
	c.mu.RLock()
	src, ok := c.sources[registrationID]
	c.mu.RUnlock()
	if ok {
		return src, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if src, ok := c.sources[registrationID]; ok {
		return src, nil
	}
	reg, ok := c.registrations[registrationID]
	if !ok {
		return nil, fmt.Errorf("unknown client registration %q", registrationID)
	}
	// The token source outlives the request that created it, so it must not
	// carry a request context. Its HTTP client carries the fetch timeout.
	fetchCtx := context.WithValue(context.Background(), oauth2.HTTPClient, reg.client)
	src = oauth2.ReuseTokenSource(nil, reg.cfg.TokenSource(fetchCtx))
	c.sources[registrationID] = src
	return src, nil
}
