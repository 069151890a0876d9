package middleware

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/pkg/apperr"
)

// callerContextKey is an unexported key type to avoid collisions in the Gin context store.
type callerContextKey string

const callerKey callerContextKey = "caller"

// Caller is the authenticated principal behind a request.
type Caller struct {
	Username    string
	AuthSource  string
	Authorities []string
	// Token is the raw bearer token, forwarded to upstreams that act on
	// behalf of the user.
	Token string
}

// HasAnyAuthority reports whether the caller holds one of the given
// authorities, e.g. "ROLE_CREATE_USER".
func (c Caller) HasAnyAuthority(authorities ...string) bool {
	for _, a := range authorities {
		if slices.Contains(c.Authorities, a) {
			return true
		}
	}
	return false
}

// CallerClaims are the claims issued by the auth server.
type CallerClaims struct {
	UserName    string   `json:"user_name"`
	AuthSource  string   `json:"auth_source"`
	Authorities []string `json:"authorities"`
	jwt.RegisteredClaims
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	Keyfunc jwt.Keyfunc
	// ValidMethods defaults to RS256.
	ValidMethods []string
	// Logger may be nil.
	Logger *zap.Logger
}

// Authenticate returns a Gin middleware that verifies the bearer token and
// stores the Caller on both the Gin context and the request context.
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	methods := cfg.ValidMethods
	if len(methods) == 0 {
		methods = []string{"RS256"}
	}
	parser := jwt.NewParser(jwt.WithValidMethods(methods), jwt.WithExpirationRequired())

	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			apperr.Respond(c, cfg.Logger, apperr.Unauthorized("missing bearer token"))
			return
		}

		claims := &CallerClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, cfg.Keyfunc); err != nil {
			apperr.Respond(c, cfg.Logger, apperr.Wrap(apperr.KindUnauthorized, err, "invalid bearer token"))
			return
		}

		caller := Caller{
			Username:    claims.UserName,
			AuthSource:  claims.AuthSource,
			Authorities: claims.Authorities,
			Token:       raw,
		}
		SetCaller(c, caller)
		c.Next()
	}
}

// RequireAuthority rejects callers holding none of the given authorities.
func RequireAuthority(authorities ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := CallerFromGinContext(c)
		if err != nil || !caller.HasAnyAuthority(authorities...) {
			apperr.Respond(c, nil, apperr.Forbidden("access denied"))
			return
		}
		c.Next()
	}
}

// WithCaller returns a copy of ctx carrying caller.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// SetCaller stores caller on both the Gin context and the request context.
func SetCaller(c *gin.Context, caller Caller) {
	c.Set(string(callerKey), caller)
	c.Request = c.Request.WithContext(WithCaller(c.Request.Context(), caller))
}

// CallerFromGinContext extracts the caller previously stored by Authenticate.
func CallerFromGinContext(c *gin.Context) (Caller, error) {
	if value, ok := c.Get(string(callerKey)); ok {
		if caller, ok := value.(Caller); ok {
			return caller, nil
		}
	}
	return Caller{}, errors.New("caller not found in context")
}

// CallerFromContext extracts the caller from a standard context. It is used
// by services and upstream clients where only context.Context is available.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey).(Caller)
	return caller, ok
}
