package config

import (
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, "interpolator", cfg.ModelBackend)
	assert.Equal(t, 4.0, cfg.ModelBaseScale)
	assert.Equal(t, "nearest", cfg.ScalePolicy)
	assert.Equal(t, 16.0, cfg.MaxTargetScale)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, int64(50<<20), cfg.MaxSourceBytes)
	assert.Nil(t, cfg.Metrics)
	assert.True(t, cfg.S3UseSSL)
}

func TestParseEnvironment(t *testing.T) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: map[string]string{
		"APP_ALLOWED_ORIGINS":  "example.com,*.cdn.example.com",
		"APP_MODEL_BACKEND":    "remote",
		"APP_MODEL_URL":        "http://sr:8080/v1/upscale",
		"APP_MODEL_BASE_SCALE": "2",
		"APP_SCALE_POLICY":     "ceil",
		"APP_WORKERS":          "3",
		"APP_METRICS":          "false",
	}})
	require.NoError(t, err)

	assert.Equal(t, []string{"example.com", "*.cdn.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "remote", cfg.ModelBackend)
	assert.Equal(t, "http://sr:8080/v1/upscale", cfg.ModelURL)
	assert.Equal(t, 2.0, cfg.ModelBaseScale)
	assert.Equal(t, "ceil", cfg.ScalePolicy)
	assert.Equal(t, 3, cfg.Workers)
	require.NotNil(t, cfg.Metrics)
	assert.False(t, *cfg.Metrics)
}
