package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var requiredArgs = []string{
	"--auth-url=https://auth.example.gov.uk/auth/",
	"--nomis-url=https://nomis.example.gov.uk",
	"--external-users-url=https://external-users.example.gov.uk",
	"--delius-url=https://delius.example.gov.uk",
	"--client-id=manage-users",
	"--client-secret=secret",
	"--smtp-host=smtp.example.gov.uk",
	"--smtp-from=noreply@example.gov.uk",
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(requiredArgs)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Upstreams.Timeout)
	assert.Equal(t, "https://auth.example.gov.uk/auth", cfg.Upstreams.AuthURL)
	assert.Equal(t, "https://auth.example.gov.uk/auth/oauth/token", cfg.OAuth.TokenURL)
	assert.Equal(t, "https://auth.example.gov.uk/auth/.well-known/jwks.json", cfg.OAuth.JWKSURL)
	assert.Equal(t, "https://auth.example.gov.uk/auth", cfg.Notification.AuthBaseURI)
	assert.Equal(t, "initial-password", cfg.Notification.InitialPasswordTemplate)
	assert.Equal(t, "enable-user", cfg.Notification.EnableUserTemplate)
	assert.Equal(t, "verify-email", cfg.Notification.VerifyEmailTemplate)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.True(t, cfg.SMTP.TLS)
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("MANAGE_USERS_SUPPORT_LINK", "https://support.example.gov.uk")
	t.Setenv("MANAGE_USERS_UPSTREAM_TIMEOUT", "3s")
	t.Setenv("MANAGE_USERS_LOG_LEVEL", "debug")

	cfg, err := Load(append([]string{"--log-level=warn"}, requiredArgs...))
	require.NoError(t, err)

	assert.Equal(t, "https://support.example.gov.uk", cfg.Notification.SupportLink)
	assert.Equal(t, 3*time.Second, cfg.Upstreams.Timeout)
	assert.Equal(t, "warn", cfg.Server.LogLevel, "flags win over the environment")
}

func TestValidateReportsEverything(t *testing.T) {
	_, err := Load([]string{"--nomis-url=not a url", "--trace-sample-ratio=2"})
	require.Error(t, err)

	for _, want := range []string{
		"auth-url is required",
		"nomis-url must be an absolute URL",
		"client-id and client-secret are required",
		"smtp-host and smtp-from are required",
		"trace-sample-ratio",
	} {
		assert.ErrorContains(t, err, want)
	}
}
