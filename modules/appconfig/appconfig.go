package appconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"linkbio/core/bio/maintenance"
	"linkbio/modules/db/postgres"
	"linkbio/modules/db/redis"
	"linkbio/modules/hmac"
	"linkbio/modules/middleware/auth"
	"linkbio/modules/middleware/ratelimit"
	"linkbio/modules/telemetry"

	"github.com/caarlos0/env/v11"
)

type StoreKind string

const (
	StorePostgres StoreKind = "postgres"
	StoreMemory   StoreKind = "memory"
)

// Secrets that ship in docker-compose and test fixtures.
var devSecrets = []string{"dev-secret", "changeme", "secret"}

type Config struct {
	Env      string     `env:"ENV" envDefault:"dev"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	HTTP struct {
		Host         string        `env:"HOST" envDefault:"0.0.0.0"`
		Port         int           `env:"PORT" envDefault:"8080"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	} `envPrefix:"HTTP_"`

	// Store selects the persistence adapter. memory keeps everything in
	// process and needs neither Postgres nor Redis.
	Store StoreKind `env:"STORE" envDefault:"postgres"`

	// --- core infra ----
	HMAC     hmac.HMACConfig         `envPrefix:"HMAC_"`
	Redis    redis.RedisConfig       `envPrefix:"REDIS_"`
	Postgres postgres.PostgresConfig `envPrefix:"POSTGRES_"`

	// --- identity ----
	Auth auth.Config `envPrefix:"AUTH_"`

	// --- middlewares ----
	RateLimit ratelimit.RestHTTPConfig `envPrefix:"RATE_LIMIT_"`

	// PublicCacheTTL bounds how long a resolved public page is served from cache.
	PublicCacheTTL time.Duration `env:"PUBLIC_CACHE_TTL" envDefault:"30s"`

	Sweep maintenance.Config `envPrefix:"SWEEP_"`

	// --- otel ----
	// since it has special naming conventions, we do not use prefix here
	Otel telemetry.Config
}

func (c *Config) IsProd() bool {
	return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production")
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(c *Config) error {
	var errs []error

	switch c.Store {
	case StorePostgres, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store))
	}

	if c.PublicCacheTTL < 0 {
		errs = append(errs, errors.New("PUBLIC_CACHE_TTL must not be negative"))
	}

	if c.IsProd() {
		for _, s := range devSecrets {
			if c.HMAC.Secret == s {
				errs = append(errs, errors.New("HMAC_SECRET uses a development value in prod"))
			}
			if c.Auth.Secret == s {
				errs = append(errs, errors.New("AUTH_SECRET uses a development value in prod"))
			}
		}
		if c.Store == StoreMemory {
			errs = append(errs, errors.New("STORE=memory is not allowed in prod"))
		}
	}

	return errors.Join(errs...)
}
