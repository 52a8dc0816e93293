package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8190), cfg.HTTP.Port)
	assert.Equal(t, AuthModeLocal, cfg.Auth.Mode)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionLifetime)
	assert.True(t, cfg.Auth.SecureCookies)
	assert.Equal(t, DefaultLoginPath, cfg.Routes.LoginPath)
	assert.Equal(t, DefaultHomePath, cfg.Routes.HomePath)
	assert.Equal(t, "support@example.com", cfg.Support.Email)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("AUTH_MODE", "none")
	t.Setenv("ROUTE_LOGIN_PATH", "/signin")
	t.Setenv("SUPPORT_PHONE", "+1 555 0100")
	t.Setenv("AUTH_SESSION_LIFETIME", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := NewConfig()

	assert.Equal(t, int32(9000), cfg.HTTP.Port)
	assert.Equal(t, AuthModeNone, cfg.Auth.Mode)
	assert.Equal(t, "/signin", cfg.Routes.LoginPath)
	assert.Equal(t, "+1 555 0100", cfg.Support.Phone)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionLifetime)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestAuthMode_Validate(t *testing.T) {
	assert.NoError(t, AuthModeLocal.Validate())
	assert.NoError(t, AuthModeNone.Validate())

	for _, mode := range []AuthMode{"Local", "oauth", ""} {
		err := mode.Validate()
		assert.Error(t, err, mode)
	}

	t.Setenv("AUTH_MODE", "Local")
	assert.ErrorContains(t, NewConfig().Auth.Mode.Validate(), `"Local"`)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"x"}, splitList(" x "))
}
