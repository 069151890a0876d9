package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	jose "gopkg.in/go-jose/go-jose.v2"
)

const jwksMinRefreshInterval = time.Minute

// JWKS resolves token signing keys published by the auth server.
type JWKS struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.RWMutex
	keys        jose.JSONWebKeySet
	lastRefresh time.Time
}

// NewJWKS fetches the key set once and returns a resolver that refreshes it
// when a token names an unknown key id.
func NewJWKS(ctx context.Context, url string, httpClient *http.Client, logger *zap.Logger) (*JWKS, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	j := &JWKS{url: url, httpClient: httpClient, logger: logger}
	if err := j.refresh(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

// Keyfunc implements jwt.Keyfunc.
func (j *JWKS) Keyfunc(token *jwt.Token) (interface{}, error) {
	kid, _ := token.Header["kid"].(string)
	if key, ok := j.lookup(kid); ok {
		return key, nil
	}

	j.mu.RLock()
	stale := time.Since(j.lastRefresh) > jwksMinRefreshInterval
	j.mu.RUnlock()
	if stale {
		if err := j.refresh(context.Background()); err != nil {
			j.logger.Warn("jwks refresh failed", zap.Error(err))
		}
		if key, ok := j.lookup(kid); ok {
			return key, nil
		}
	}
	return nil, fmt.Errorf("no signing key for kid %q", kid)
}

func (j *JWKS) lookup(kid string) (interface{}, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if kid == "" && len(j.keys.Keys) == 1 {
		return j.keys.Keys[0].Key, true
	}
	keys := j.keys.Key(kid)
	if len(keys) == 0 {
		return nil, false
	}
	return keys[0].Key, true
}

func (j *JWKS) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return err
	}
	resp, err := j.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}
	if len(set.Keys) == 0 {
		return errors.New("jwks contains no keys")
	}

	j.mu.Lock()
	j.keys = set
	j.lastRefresh = time.Now()
	j.mu.Unlock()
	j.logger.Info("jwks loaded", zap.Int("keys", len(set.Keys)))
	return nil
}
