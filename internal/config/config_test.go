package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridianhms/portal-client/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "http://localhost:8000/api", cfg.BaseURL)
	require.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	require.NotEmpty(t, cfg.CredentialsFile)
	require.True(t, cfg.IsDev())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORTAL_BASE_URL", "https://portal.meridian.test/api")
	t.Setenv("PORTAL_HTTP_TIMEOUT", "3s")
	t.Setenv("PORTAL_ENV", "production")

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "https://portal.meridian.test/api", cfg.BaseURL)
	require.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	require.False(t, cfg.IsDev())
}
