package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://analytics@localhost/dw")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 7085, cfg.HTTP.Port)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 30*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, 30, cfg.Analytics.DefaultRangeDays)
	assert.Equal(t, 4, cfg.Analytics.DashboardParallelism)
	assert.Equal(t, 15*time.Second, cfg.Analytics.QueryTimeout)
	assert.False(t, cfg.Cache.Enabled())
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://analytics@localhost/dw")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CACHE_TTL", "2m")
	t.Setenv("DB_STRICT_SCHEMA", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.True(t, cfg.Cache.Enabled())
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.DB.StrictSchema)
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"missing dsn":  {"DB_DSN": ""},
		"bad port":     {"HTTP_PORT": "70000"},
		"zero workers": {"ANALYTICS_DASHBOARD_PARALLELISM": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("DB_DSN", "postgres://analytics@localhost/dw")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
