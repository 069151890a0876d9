package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/pkg/apperr"
	"github.com/dhawalhost/manageusers/pkg/middleware"
)

func newTestClient(t *testing.T, h http.HandlerFunc, tokens TokenSource) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{Name: "nomis", BaseURL: srv.URL, Timeout: time.Second}, tokens, zap.NewNop(), nil)
}

func TestGetSendsBearerAndDecodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/users/BOB", r.URL.Path)
		assert.Equal(t, "nomis", r.URL.Query().Get("source"))
		w.Write([]byte(`{"username":"BOB"}`))
	}, StaticToken("svc-token"))

	var out struct{ Username string }
	err := c.Get(context.Background(), "/users/BOB", map[string][]string{"source": {"nomis"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "BOB", out.Username)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   apperr.Kind
	}{
		{"not found", http.StatusNotFound, ``, apperr.KindNotFound},
		{"conflict", http.StatusConflict, `{"userMessage":"User already exists","field":"username"}`, apperr.KindConflict},
		{"bad request", http.StatusBadRequest, `{"userMessage":"Email domain not allowed"}`, apperr.KindValidation},
		{"forbidden", http.StatusForbidden, ``, apperr.KindForbidden},
		{"server error", http.StatusInternalServerError, `boom`, apperr.KindUpstreamUnavailable},
		{"bad gateway", http.StatusBadGateway, ``, apperr.KindUpstreamUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}, StaticToken("t"))

			err := c.Post(context.Background(), "/users", map[string]string{"a": "b"}, nil)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestUpstreamMessagePreserved(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":400,"userMessage":"Validation failure: email invalid","field":"email"}`))
	}, StaticToken("t"))

	err := c.Post(context.Background(), "/users", struct{}{}, nil)
	var e *apperr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "Validation failure: email invalid", e.Message)
	assert.Equal(t, "email", e.Field)
	assert.Equal(t, "nomis", e.Upstream)
}

func TestEmptyBodyIsNotFoundForLookups(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, StaticToken("t"))

	var out map[string]any
	found, err := Found(c.Get(context.Background(), "/users/BOB", nil, &out))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	c := New(Config{Name: "delius", BaseURL: srv.URL}, StaticToken("t"), zap.NewNop(), nil)

	found, err := Found(c.Get(context.Background(), "/x", nil, &struct{}{}))
	assert.False(t, found)
	assert.True(t, apperr.IsKind(err, apperr.KindUpstreamUnavailable))
}

func TestTimeoutIsUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}, StaticToken("t"))
	c.httpClient.Timeout = 20 * time.Millisecond

	err := c.Get(context.Background(), "/slow", nil, &struct{}{})
	assert.True(t, apperr.IsKind(err, apperr.KindUpstreamUnavailable))
}

func TestCallerTokenForwarded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}, CallerToken{})

	ctx := middleware.WithCaller(context.Background(), middleware.Caller{Username: "ADMIN", Token: "user-token"})
	require.NoError(t, c.Delete(ctx, "/users/BOB/roles/X"))

	err := c.Delete(context.Background(), "/users/BOB/roles/X")
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
}

func TestStringResponseAcceptsTextAndJSON(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"plain text", "text/plain;charset=UTF-8", "a1b2+c3/d4="},
		{"plain text with newline", "text/plain", "a1b2+c3/d4=\n"},
		{"json string", "application/json", `"a1b2+c3/d4="`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.Write([]byte(tt.body))
			}, StaticToken("t"))

			var token string
			require.NoError(t, c.Post(context.Background(), "/api/new-token", map[string]string{"username": "BOB"}, &token))
			assert.Equal(t, "a1b2+c3/d4=", token)
		})
	}
}
