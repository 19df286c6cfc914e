package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults matching DefaultConfig
	d := DefaultConfig()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout.String())
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout.String())
	v.SetDefault("server.environment", d.Server.Environment)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("segments.default_page_size", d.Segments.DefaultPageSize)
	v.SetDefault("segments.max_page_size", d.Segments.MaxPageSize)
	v.SetDefault("audience.estimator", d.Audience.Estimator)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.timeout", d.AI.Timeout.String())
	v.SetDefault("ai.rate_per_second", d.AI.RatePerSecond)
	v.SetDefault("ai.burst", d.AI.Burst)

	// Bind environment variables with SK_ prefix
	v.SetEnvPrefix("SK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets must be environment-only per 12-factor principles
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("server.host"),
			Port:         v.GetInt("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			Environment:  v.GetString("server.environment"),
			CORSOrigins:  v.GetStringSlice("server.cors_origins"),
		},
		Segments: SegmentsConfig{
			DefaultPageSize: v.GetInt("segments.default_page_size"),
			MaxPageSize:     v.GetInt("segments.max_page_size"),
		},
		Audience: AudienceConfig{
			Estimator: v.GetString("audience.estimator"),
		},
		AI: AIConfig{
			Model:         v.GetString("ai.model"),
			Timeout:       v.GetDuration("ai.timeout"),
			RatePerSecond: v.GetFloat64("ai.rate_per_second"),
			Burst:         v.GetInt("ai.burst"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range, positive sizes and timeouts, known enum values.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive, got %v", cfg.Server.WriteTimeout)
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		return fmt.Errorf("cors_origins must name at least one origin")
	}
	for _, origin := range cfg.Server.CORSOrigins {
		if origin == "*" || !(strings.HasPrefix(origin, "http://") || strings.HasPrefix(origin, "https://")) {
			return fmt.Errorf("cors origin %q must be an explicit http:// or https:// origin", origin)
		}
	}
	if cfg.Segments.DefaultPageSize <= 0 {
		return fmt.Errorf("default_page_size must be positive, got %d", cfg.Segments.DefaultPageSize)
	}
	if cfg.Segments.MaxPageSize < cfg.Segments.DefaultPageSize {
		return fmt.Errorf("max_page_size (%d) must be at least default_page_size (%d)", cfg.Segments.MaxPageSize, cfg.Segments.DefaultPageSize)
	}
	switch cfg.Audience.Estimator {
	case EstimatorRandom, EstimatorDataset:
	default:
		return fmt.Errorf("unknown audience estimator %q (expected random or dataset)", cfg.Audience.Estimator)
	}
	if cfg.AI.Timeout <= 0 {
		return fmt.Errorf("ai.timeout must be positive, got %v", cfg.AI.Timeout)
	}
	if cfg.AI.RatePerSecond <= 0 {
		return fmt.Errorf("ai.rate_per_second must be positive, got %v", cfg.AI.RatePerSecond)
	}
	if cfg.AI.Burst <= 0 {
		return fmt.Errorf("ai.burst must be positive, got %d", cfg.AI.Burst)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	for _, key := range []string{"jwt_secret", "server.jwt_secret", "google_api_key", "ai.google_api_key", "ai.api_key"} {
		if v.InConfig(key) {
			return fmt.Errorf("secrets not allowed in config files (use SK_JWT_SECRET and GOOGLE_API_KEY environment variables)")
		}
	}
	return nil
}
