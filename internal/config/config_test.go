package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5001, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 90*time.Second, cfg.WriteTimeout)
	assert.NotEmpty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.OpenRouterAPIKey)
	assert.Equal(t, "anthropic/claude-3.5-haiku", cfg.OpenRouterModel)
	assert.Equal(t, "utra-da", cfg.ServiceName)
	assert.Equal(t, int64(16*1024*1024), cfg.MaxRequestBodyBytes)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Zero(t, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("UTRADA_PORT", "8080")
	t.Setenv("UTRADA_WRITE_TIMEOUT", "2m")
	t.Setenv("DATABASE_URL", "postgres://example/db")
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("OTEL_INSECURE", "true")
	t.Setenv("UTRADA_CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://app.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.WriteTimeout)
	assert.Equal(t, "postgres://example/db", cfg.DatabaseURL)
	assert.Equal(t, "sk-test", cfg.OpenRouterAPIKey)
	assert.True(t, cfg.OTELInsecure)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadMalformedValuesFallBack(t *testing.T) {
	t.Setenv("UTRADA_PORT", "not-a-number")
	t.Setenv("UTRADA_READ_TIMEOUT", "soon")
	t.Setenv("OTEL_INSECURE", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5001, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.False(t, cfg.OTELInsecure)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing database url",
			mutate:  func(c *Config) { c.DatabaseURL = "" },
			wantErr: "DATABASE_URL",
		},
		{
			name:    "non-positive body limit",
			mutate:  func(c *Config) { c.MaxRequestBodyBytes = 0 },
			wantErr: "UTRADA_MAX_REQUEST_BODY_BYTES",
		},
		{
			name: "rate limit without burst",
			mutate: func(c *Config) {
				c.RateLimitRPS = 10
				c.RateLimitBurst = 0
			},
			wantErr: "UTRADA_RATELIMIT_BURST",
		},
		{
			name: "api key without model",
			mutate: func(c *Config) {
				c.OpenRouterAPIKey = "sk-test"
				c.OpenRouterModel = ""
			},
			wantErr: "OPENROUTER_MODEL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(&cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
