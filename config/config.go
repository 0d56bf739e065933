package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the planning service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	LogLevel  string
	LogFormat string

	// ModelProvider selects the reply model: "mock", "anthropic" or "openai".
	ModelProvider   string
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string

	DatabaseURL string

	MaxIterations  int
	MaxMemoryItems int
	MemoryCacheTTL time.Duration

	// DefaultTier is granted to organizations with no subscription record:
	// "free", "professional" or "enterprise".
	DefaultTier string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "planmesh"),
		AllowAnyOrigin:   false,
		LogLevel:         envOrDefault("APP_LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("APP_LOG_FORMAT", "json"),
		ModelProvider:    envOrDefault("MODEL_PROVIDER", "mock"),
		AnthropicAPIKey:  trimmedEnv("ANTHROPIC_API_KEY"),
		AnthropicModel:   trimmedEnv("ANTHROPIC_MODEL"),
		OpenAIAPIKey:     trimmedEnv("OPENAI_API_KEY"),
		OpenAIModel:      trimmedEnv("OPENAI_MODEL"),
		DatabaseURL:      trimmedEnv("DATABASE_URL"),
		MaxIterations:    25,
		MaxMemoryItems:   50,
		MemoryCacheTTL:   5 * time.Minute,
		ShutdownTimeout:  15 * time.Second,
		DefaultTier:      envOrDefault("APP_DEFAULT_TIER", "free"),
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryCacheTTL, err = durationFromEnv("MEMORY_CACHE_TTL", cfg.MemoryCacheTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxIterations, err = intFromEnv("WORKFLOW_MAX_ITERATIONS", cfg.MaxIterations)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxMemoryItems, err = intFromEnv("MEMORY_MAX_ITEMS", cfg.MaxMemoryItems)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	switch cfg.ModelProvider {
	case "mock", "anthropic", "openai":
	default:
		return Config{}, fmt.Errorf("MODEL_PROVIDER must be one of mock, anthropic, openai")
	}
	switch cfg.DefaultTier {
	case "free", "professional", "enterprise":
	default:
		return Config{}, fmt.Errorf("APP_DEFAULT_TIER must be one of free, professional, enterprise")
	}
	if cfg.ModelProvider == "anthropic" && cfg.AnthropicAPIKey == "" {
		return Config{}, fmt.Errorf("ANTHROPIC_API_KEY is required when MODEL_PROVIDER=anthropic")
	}
	if cfg.ModelProvider == "openai" && cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("OPENAI_API_KEY is required when MODEL_PROVIDER=openai")
	}
	if cfg.MaxIterations <= 0 {
		return Config{}, fmt.Errorf("WORKFLOW_MAX_ITERATIONS must be positive")
	}
	if cfg.MaxMemoryItems <= 0 {
		return Config{}, fmt.Errorf("MEMORY_MAX_ITEMS must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
