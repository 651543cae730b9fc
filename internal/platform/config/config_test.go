package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, StoreBackendFile, cfg.StoreBackend)
	assert.Equal(t, "./whatsapp-sessions.json", cfg.SessionsFile)
	assert.Equal(t, "55", cfg.DefaultCountryCode)
	assert.Equal(t, 60*time.Second, cfg.MediaFetchTimeout)
	assert.Equal(t, int64(64<<20), cfg.MediaMaxBytes)
	assert.Equal(t, 5*time.Minute, cfg.ReconnectMaxElapsed)
	assert.Equal(t, 30*time.Second, cfg.RestartDelay)
	assert.Contains(t, cfg.GroupWelcomeTemplate, "{participant}")
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSIONS_FILE", "/var/lib/wagate/sessions.json")
	t.Setenv("DEFAULT_COUNTRY_CODE", "62")
	t.Setenv("MEDIA_FETCH_TIMEOUT", "15s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "/var/lib/wagate/sessions.json", cfg.SessionsFile)
	assert.Equal(t, "62", cfg.DefaultCountryCode)
	assert.Equal(t, 15*time.Second, cfg.MediaFetchTimeout)
}

func TestLoad_RedisBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreBackendRedis, cfg.StoreBackend)
	assert.Equal(t, "wagate:sessions", cfg.RedisSessionsKey)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"redis without url", map[string]string{"STORE_BACKEND": "redis"}, "REDIS_URL is required when STORE_BACKEND is redis"},
		{"unknown backend", map[string]string{"STORE_BACKEND": "postgres"}, `STORE_BACKEND must be "file" or "redis", got "postgres"`},
		{"country code with plus", map[string]string{"DEFAULT_COUNTRY_CODE": "+55"}, `DEFAULT_COUNTRY_CODE must contain digits only, got "+55"`},
		{"non-positive media size", map[string]string{"MEDIA_MAX_BYTES": "0"}, "MEDIA_MAX_BYTES must be positive"},
		{"welcome without placeholder", map[string]string{"GROUP_WELCOME_TEMPLATE": "Welcome!"}, "GROUP_WELCOME_TEMPLATE must contain the {participant} placeholder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}
