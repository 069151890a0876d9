package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	jose "gopkg.in/go-jose/go-jose.v2"
)

func TestJWKSKeyfuncVerifiesRS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key: &key.PublicKey, KeyID: "k1", Algorithm: "RS256", Use: "sig",
	}}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(set)
	}))
	defer srv.Close()

	jwks, err := NewJWKS(context.Background(), srv.URL, srv.Client(), zap.NewNop())
	if err != nil {
		t.Fatalf("load jwks: %v", err)
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, CallerClaims{
		UserName: "BOB",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tok.Header["kid"] = "k1"
	raw, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims := &CallerClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, jwks.Keyfunc); err != nil {
		t.Fatalf("expected token to verify: %v", err)
	}
	if claims.UserName != "BOB" {
		t.Fatalf("unexpected user_name %q", claims.UserName)
	}

	tok.Header["kid"] = "unknown"
	raw, _ = tok.SignedString(key)
	if _, err := jwt.ParseWithClaims(raw, &CallerClaims{}, jwks.Keyfunc); err == nil {
		t.Fatalf("expected unknown kid to be rejected")
	}
}
