package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the server
type Config struct {
	YNAB      YNABConfig      `mapstructure:"ynab"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

// YNABConfig holds API client configuration
type YNABConfig struct {
	APIToken     string        `mapstructure:"api_token"`
	BaseURL      string        `mapstructure:"base_url"`
	BudgetID     string        `mapstructure:"budget_id"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RateLimit    int           `mapstructure:"rate_limit"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
}

// KnowledgeConfig holds knowledge store configuration
type KnowledgeConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SentryConfig holds error reporting configuration
type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// Load reads configuration from the environment. Each named env file must
// exist; a .env in the working directory is loaded afterwards when present.
// Variables already set are never overridden.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	// Missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ynab.api_token", "")
	v.SetDefault("ynab.base_url", "https://api.ynab.com/v1")
	v.SetDefault("ynab.budget_id", "")
	v.SetDefault("ynab.timeout", "30s")
	// YNAB allows 200 requests per hour per token
	v.SetDefault("ynab.rate_limit", 200)
	v.SetDefault("ynab.max_retries", 3)
	v.SetDefault("ynab.retry_wait_min", "1s")
	v.SetDefault("ynab.retry_wait_max", "30s")

	v.SetDefault("knowledge.dir", "data")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
}

func bindEnvVars(v *viper.Viper) error {
	bindings := map[string][]string{
		"ynab.api_token":      {"YNAB_API_TOKEN"},
		"ynab.base_url":       {"YNAB_BASE_URL"},
		"ynab.budget_id":      {"YNAB_BUDGET_ID", "BUDGET_ID"},
		"ynab.timeout":        {"YNAB_TIMEOUT"},
		"ynab.rate_limit":     {"YNAB_RATE_LIMIT"},
		"ynab.max_retries":    {"YNAB_MAX_RETRIES"},
		"ynab.retry_wait_min": {"YNAB_RETRY_WAIT_MIN"},
		"ynab.retry_wait_max": {"YNAB_RETRY_WAIT_MAX"},
		"knowledge.dir":       {"KNOWLEDGE_DIR"},
		"logger.level":        {"LOG_LEVEL"},
		"logger.format":       {"LOG_FORMAT"},
		"sentry.dsn":          {"SENTRY_DSN"},
		"sentry.environment":  {"SENTRY_ENVIRONMENT"},
	}

	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the values that cannot be caught by type conversion
func (c *Config) Validate() error {
	switch c.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level %q", c.Logger.Level)
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q", c.Logger.Format)
	}

	if c.YNAB.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.YNAB.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if c.Knowledge.Dir == "" {
		return fmt.Errorf("knowledge directory must not be empty")
	}

	return nil
}

// RequireToken reports a usable error when no API token is configured
func (c *Config) RequireToken() error {
	if c.YNAB.APIToken == "" {
		return fmt.Errorf("YNAB_API_TOKEN environment variable is required")
	}
	return nil
}
