// Package config loads service configuration from flags and MANAGE_USERS_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. MANAGE_USERS_NOMIS_URL.
const EnvPrefix = "MANAGE_USERS"

// Config is the complete service configuration.
type Config struct {
	Server       ServerConfig
	Upstreams    UpstreamConfig
	OAuth        OAuthConfig
	Notification NotificationConfig
	SMTP         SMTPConfig
	Tracing      TracingConfig
	RateLimit    RateLimitConfig
}

type ServerConfig struct {
	Addr            string
	Environment     string
	LogLevel        string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// UpstreamConfig holds the base URLs of the systems this service fronts.
type UpstreamConfig struct {
	AuthURL          string
	NomisURL         string
	ExternalUsersURL string
	DeliusURL        string
	Timeout          time.Duration
}

// OAuthConfig is the client-credentials registration used for service
// calls, and where inbound tokens are verified.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	JWKSURL      string
}

type NotificationConfig struct {
	AuthBaseURI             string
	SupportLink             string
	InitialPasswordTemplate string
	EnableUserTemplate      string
	VerifyEmailTemplate     string
}

type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type TracingConfig struct {
	OTLPEndpoint string
	SampleRatio  float64
	Insecure     bool
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load parses args and merges them with the environment. Flags win over
// environment variables, which win over defaults.
func Load(args []string) (Config, error) {
	fs := pflag.NewFlagSet("manageusers", pflag.ContinueOnError)

	// server
	fs.String("addr", ":8080", "listen address")
	fs.String("environment", "production", "deployment environment (dev uses development logging)")
	fs.String("log-level", "info", "log level")
	fs.Duration("shutdown-timeout", 15*time.Second, "graceful shutdown timeout")
	fs.StringSlice("allowed-origins", nil, "CORS allowed origins")

	// upstreams
	fs.String("auth-url", "", "auth service base URL")
	fs.String("nomis-url", "", "prison system API base URL")
	fs.String("external-users-url", "", "external users API base URL")
	fs.String("delius-url", "", "probation system API base URL")
	fs.Duration("upstream-timeout", 10*time.Second, "per-call upstream timeout")

	// oauth
	fs.String("client-id", "", "client-credentials client id")
	fs.String("client-secret", "", "client-credentials client secret")
	fs.String("token-url", "", "token endpoint (default <auth-url>/oauth/token)")
	fs.String("jwks-url", "", "JWKS endpoint (default <auth-url>/.well-known/jwks.json)")

	// notification
	fs.String("auth-base-uri", "", "public auth URL used in email links (default auth-url)")
	fs.String("support-link", "", "support link added to emails")
	fs.String("template-initial-password", "initial-password", "initial password email template")
	fs.String("template-enable-user", "enable-user", "account enabled email template")
	fs.String("template-verify-email", "verify-email", "verify email template")

	// smtp
	fs.String("smtp-host", "", "SMTP host")
	fs.Int("smtp-port", 587, "SMTP port")
	fs.Bool("smtp-tls", true, "require TLS to the SMTP server")
	fs.String("smtp-username", "", "SMTP username")
	fs.String("smtp-password", "", "SMTP password")
	fs.String("smtp-from", "", "sender address")
	fs.Duration("smtp-timeout", 10*time.Second, "SMTP timeout")

	// tracing
	fs.String("otlp-endpoint", "", "OTLP gRPC endpoint, tracing is off when empty")
	fs.Float64("trace-sample-ratio", 1, "trace sample ratio")
	fs.Bool("otlp-insecure", false, "plaintext OTLP connection")

	// rate limit
	fs.Float64("rate-limit-rps", 20, "requests per second per caller")
	fs.Int("rate-limit-burst", 40, "burst per caller")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfg := Config{
		Server: ServerConfig{
			Addr:            v.GetString("addr"),
			Environment:     v.GetString("environment"),
			LogLevel:        v.GetString("log-level"),
			ShutdownTimeout: v.GetDuration("shutdown-timeout"),
			AllowedOrigins:  v.GetStringSlice("allowed-origins"),
		},
		Upstreams: UpstreamConfig{
			AuthURL:          strings.TrimRight(v.GetString("auth-url"), "/"),
			NomisURL:         v.GetString("nomis-url"),
			ExternalUsersURL: v.GetString("external-users-url"),
			DeliusURL:        v.GetString("delius-url"),
			Timeout:          v.GetDuration("upstream-timeout"),
		},
		OAuth: OAuthConfig{
			ClientID:     v.GetString("client-id"),
			ClientSecret: v.GetString("client-secret"),
			TokenURL:     v.GetString("token-url"),
			JWKSURL:      v.GetString("jwks-url"),
		},
		Notification: NotificationConfig{
			AuthBaseURI:             v.GetString("auth-base-uri"),
			SupportLink:             v.GetString("support-link"),
			InitialPasswordTemplate: v.GetString("template-initial-password"),
			EnableUserTemplate:      v.GetString("template-enable-user"),
			VerifyEmailTemplate:     v.GetString("template-verify-email"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp-host"),
			Port:     v.GetInt("smtp-port"),
			TLS:      v.GetBool("smtp-tls"),
			Username: v.GetString("smtp-username"),
			Password: v.GetString("smtp-password"),
			From:     v.GetString("smtp-from"),
			Timeout:  v.GetDuration("smtp-timeout"),
		},
		Tracing: TracingConfig{
			OTLPEndpoint: v.GetString("otlp-endpoint"),
			SampleRatio:  v.GetFloat64("trace-sample-ratio"),
			Insecure:     v.GetBool("otlp-insecure"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("rate-limit-rps"),
			Burst:             v.GetInt("rate-limit-burst"),
		},
	}

	if cfg.OAuth.TokenURL == "" && cfg.Upstreams.AuthURL != "" {
		cfg.OAuth.TokenURL = cfg.Upstreams.AuthURL + "/oauth/token"
	}
	if cfg.OAuth.JWKSURL == "" && cfg.Upstreams.AuthURL != "" {
		cfg.OAuth.JWKSURL = cfg.Upstreams.AuthURL + "/.well-known/jwks.json"
	}
	if cfg.Notification.AuthBaseURI == "" {
		cfg.Notification.AuthBaseURI = cfg.Upstreams.AuthURL
	}
	return cfg, cfg.Validate()
}

// Validate reports every missing or malformed setting at once.
func (c Config) Validate() error {
	var errs []error
	for name, raw := range map[string]string{
		"auth-url":           c.Upstreams.AuthURL,
		"nomis-url":          c.Upstreams.NomisURL,
		"external-users-url": c.Upstreams.ExternalUsersURL,
		"delius-url":         c.Upstreams.DeliusURL,
	} {
		if err := checkURL(name, raw); err != nil {
			errs = append(errs, err)
		}
	}
	if c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "" {
		errs = append(errs, errors.New("client-id and client-secret are required"))
	}
	if c.SMTP.Host == "" || c.SMTP.From == "" {
		errs = append(errs, errors.New("smtp-host and smtp-from are required"))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("trace-sample-ratio must be within [0,1], got %v", c.Tracing.SampleRatio))
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("rate-limit-rps and rate-limit-burst must be positive"))
	}
	return errors.Join(errs...)
}

func checkURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
	}
	return nil
}
