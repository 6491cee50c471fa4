package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
backend:
  base_url: http://backend.local/api
auth:
  jwt_secret: secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "America/Sao_Paulo", cfg.Backend.Timezone)
	assert.Equal(t, "memory", cfg.Sessions.Store)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.TTL)
	assert.Equal(t, "@every 30s", cfg.Spots.Schedule)
	assert.Equal(t, "token", cfg.Auth.CookieName)
	assert.Equal(t, "/login", cfg.Auth.LoginPath)
	assert.Equal(t, DefaultRoutes, cfg.Auth.Routes)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, 3600, cfg.Push.TTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
backend:
  base_url: http://from-file
map:
  access_token: file-token
auth:
  insecure_decode: true
`)
	t.Setenv("PARKD_BACKEND_URL", "http://from-env")
	t.Setenv("PARKD_MAP_TOKEN", "env-token")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env", cfg.Backend.BaseURL)
	assert.Equal(t, "env-token", cfg.Map.AccessToken)
	assert.True(t, cfg.Auth.InsecureDecode)
}

func TestLoad_SecretFromEnv(t *testing.T) {
	path := writeConfig(t, "backend:\n  base_url: http://x\n")
	t.Setenv("PARKD_JWT_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.False(t, cfg.Auth.InsecureDecode)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "missing backend url", body: "server:\n  port: 9000\n"},
		{name: "unknown session store", body: "backend:\n  base_url: http://x\nauth:\n  jwt_secret: s\nsessions:\n  store: memcached\n"},
		{name: "bad timezone", body: "backend:\n  base_url: http://x\n  timezone: Mars/Olympus\nauth:\n  jwt_secret: s\n"},
		{name: "missing jwt secret", body: "backend:\n  base_url: http://x\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}
