// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

/*
Package config reads the process environment into a typed [Config].

Variables are grouped by the component they configure. Each group maps to a
nested struct with its own prefix, so DATABASE_URL lands in Config.Database.URL
and REDIS_POOL_SIZE in Config.Redis.PoolSize.

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

A loaded Config is never mutated. It is handed to constructors; no package
reads the environment on its own.
*/
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the full runtime configuration of the API process.
type Config struct {
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// AllowedOrigins lists browser origins for CORS. Empty allows any origin
	// in development and none elsewhere.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// TrustedProxies lists the CIDR ranges or addresses of reverse proxies
	// whose X-Forwarded-For and X-Real-IP headers are believed. Empty keys
	// rate limiting on the TCP peer.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Auth     AuthConfig     `envPrefix:"JWT_"`

	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./migrations"`
}

// DatabaseConfig configures the PostgreSQL pool holding account, contact and message rows.
type DatabaseConfig struct {
	URL      string `env:"URL,required,notEmpty"`
	MaxConns int32  `env:"MAX_CONNS" envDefault:"25"`
	MinConns int32  `env:"MIN_CONNS" envDefault:"5"`

	// StatementTimeout bounds every SQL statement on a pooled connection.
	StatementTimeout time.Duration `env:"STATEMENT_TIMEOUT" envDefault:"30s"`
}

// RedisConfig configures the client backing token revocation.
type RedisConfig struct {
	URL      string `env:"URL,required,notEmpty"`
	PoolSize int    `env:"POOL_SIZE" envDefault:"10"`
}

// AuthConfig configures bearer token signing.
type AuthConfig struct {
	Secret string        `env:"SECRET,required,notEmpty"`
	TTL    time.Duration `env:"TTL" envDefault:"24h"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values that parse but cannot run the server.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Auth.Secret) == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be blank"))
	}
	if c.Auth.TTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_TTL must be positive, got %s", c.Auth.TTL))
	}
	if c.Database.MaxConns < 1 || c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, fmt.Errorf("DATABASE_MIN_CONNS=%d and DATABASE_MAX_CONNS=%d are inconsistent",
			c.Database.MinConns, c.Database.MaxConns))
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("REDIS_POOL_SIZE must be positive, got %d", c.Redis.PoolSize))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// OriginAllowed reports whether a browser origin may call the API.
func (c *Config) OriginAllowed(origin string) bool {
	if len(c.AllowedOrigins) == 0 {
		return c.IsDevelopment()
	}
	return slices.ContainsFunc(c.AllowedOrigins, func(allowed string) bool {
		return strings.TrimSpace(allowed) == origin
	})
}
