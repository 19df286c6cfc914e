// Package config provides configuration management for SegmentKeeper services.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Environment names recognized by server.environment.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Estimator names recognized by audience.estimator.
const (
	EstimatorRandom  = "random"
	EstimatorDataset = "dataset"
)

// Config holds configuration for the HTTP API service.
type Config struct {
	Server   ServerConfig
	Segments SegmentsConfig
	Audience AudienceConfig
	AI       AIConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Environment  string
	CORSOrigins  []string
}

// SegmentsConfig holds listing limits.
type SegmentsConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// AudienceConfig selects the audience estimator.
type AudienceConfig struct {
	Estimator string
}

// AIConfig holds settings for the optional generative-text enrichment.
type AIConfig struct {
	Model         string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         3000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			Environment:  EnvDevelopment,
			CORSOrigins:  []string{"http://localhost:5173"},
		},
		Segments: SegmentsConfig{
			DefaultPageSize: 10,
			MaxPageSize:     100,
		},
		Audience: AudienceConfig{
			Estimator: EstimatorRandom,
		},
		AI: AIConfig{
			Model:         "gemini-1.5-flash",
			Timeout:       10 * time.Second,
			RatePerSecond: 2,
			Burst:         4,
		},
	}
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment returns true if running in development environment.
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// IsProduction returns true if running in production environment.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Secrets holds credentials that may only come from the environment.
type Secrets struct {
	// JWTSecret verifies bearer tokens issued by the authentication service.
	JWTSecret string `env:"SK_JWT_SECRET"`

	// GoogleAPIKey enables generative message suggestions when set.
	GoogleAPIKey string `env:"GOOGLE_API_KEY"`
}

// MinJWTSecretLength is the minimum HMAC key size for HS256 tokens.
const MinJWTSecretLength = 32

// LoadSecrets reads secrets from environment variables.
func LoadSecrets(ctx context.Context) (*Secrets, error) {
	var s Secrets
	if err := envconfig.Process(ctx, &s); err != nil {
		return nil, fmt.Errorf("failed to process environment secrets: %w", err)
	}
	return &s, nil
}

// JWTKey validates and returns the bearer-token signing key.
func (s *Secrets) JWTKey() ([]byte, error) {
	if s.JWTSecret == "" {
		return nil, fmt.Errorf("no JWT secret configured (set SK_JWT_SECRET environment variable)")
	}
	if len(s.JWTSecret) < MinJWTSecretLength {
		return nil, fmt.Errorf("SK_JWT_SECRET must be at least %d bytes, got %d", MinJWTSecretLength, len(s.JWTSecret))
	}
	return []byte(s.JWTSecret), nil
}
