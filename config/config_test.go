package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_LOG_LEVEL",
		"APP_LOG_FORMAT",
		"APP_DEFAULT_TIER",
		"MODEL_PROVIDER",
		"ANTHROPIC_API_KEY",
		"ANTHROPIC_MODEL",
		"OPENAI_API_KEY",
		"OPENAI_MODEL",
		"DATABASE_URL",
		"WORKFLOW_MAX_ITERATIONS",
		"MEMORY_MAX_ITEMS",
		"MEMORY_CACHE_TTL",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.BindAddr)
	assert.Equal(t, "planmesh", cfg.MetricsNamespace)
	assert.Equal(t, "mock", cfg.ModelProvider)
	assert.Equal(t, "free", cfg.DefaultTier)
	assert.Equal(t, 25, cfg.MaxIterations)
	assert.Equal(t, 50, cfg.MaxMemoryItems)
	assert.Equal(t, 5*time.Minute, cfg.MemoryCacheTTL)
	assert.False(t, cfg.AllowAnyOrigin)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_BIND_ADDR", ":9191")
	t.Setenv("MEMORY_CACHE_TTL", "30s")
	t.Setenv("WORKFLOW_MAX_ITERATIONS", "10")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "yes")
	t.Setenv("APP_DEFAULT_TIER", "enterprise")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9191", cfg.BindAddr)
	assert.Equal(t, 30*time.Second, cfg.MemoryCacheTTL)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.True(t, cfg.AllowAnyOrigin)
	assert.Equal(t, "enterprise", cfg.DefaultTier)
}

func TestLoadAnthropicRequiresKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_PROVIDER", "anthropic")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")

	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.ModelProvider)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, env := range map[string]map[string]string{
		"unknown provider":   {"MODEL_PROVIDER": "bard"},
		"unknown tier":       {"APP_DEFAULT_TIER": "platinum"},
		"bad duration":       {"MEMORY_CACHE_TTL": "soon"},
		"bad int":            {"WORKFLOW_MAX_ITERATIONS": "lots"},
		"zero iterations":    {"WORKFLOW_MAX_ITERATIONS": "0"},
		"bad bool":           {"APP_ALLOW_ANY_ORIGIN": "maybe"},
		"zero memory bound":  {"MEMORY_MAX_ITEMS": "0"},
	} {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
