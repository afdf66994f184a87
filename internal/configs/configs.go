package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"
	CacheDriverNone   = "none"

	minJWTSecretLength = 32
)

type Config struct {
	AppHost                string        `env:"APP_HOST"                 envDefault:"127.0.0.1"`
	AppPort                string        `env:"APP_PORT"                 envDefault:"8080"`
	Port                   string        `env:"PORT"`
	DatabaseDSN            string        `env:"DATABASE_DSN"             envDefault:"tasks.db"`
	CacheDriver            string        `env:"CACHE_DRIVER"             envDefault:"redis"`
	RedisURL               string        `env:"REDIS_URL"`
	RedisHost              string        `env:"REDIS_HOST"               envDefault:"127.0.0.1"`
	RedisPort              string        `env:"REDIS_PORT"               envDefault:"6379"`
	RedisPassword          string        `env:"REDIS_PASSWORD"`
	CacheTTL               time.Duration `env:"CACHE_TTL"                envDefault:"60s"`
	JWTSecret              string        `env:"JWT_SECRET"`
	JWTExpiresIn           time.Duration `env:"JWT_EXPIRES_IN"           envDefault:"24h"`
	BcryptCost             int           `env:"BCRYPT_COST"              envDefault:"10"`
	RateLimit              int           `env:"RATE_LIMIT_PER_MINUTE"    envDefault:"120"`
	ShutdownTimeoutSeconds int           `env:"SHUTDOWN_TIMEOUT_SECONDS" envDefault:"20"`
	LogLevel               string        `env:"LOG_LEVEL"                envDefault:"info"`
}

// AppURL is the listen address. PORT, when set, wins over APP_PORT.
func (c Config) AppURL() string {
	port := c.AppPort
	if c.Port != "" {
		port = c.Port
	}
	return net.JoinHostPort(c.AppHost, port)
}

// CacheURL returns REDIS_URL, or a URL assembled from the host, port and password.
func (c Config) CacheURL() string {
	if c.RedisURL != "" {
		return c.RedisURL
	}

	u := url.URL{Scheme: "redis", Host: net.JoinHostPort(c.RedisHost, c.RedisPort)}
	if c.RedisPassword != "" {
		u.User = url.UserPassword("", c.RedisPassword)
	}
	return u.String()
}

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.CacheDriver = strings.ToLower(strings.TrimSpace(cfg.CacheDriver))

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	var errs []error

	if cfg.AppHost == "" && cfg.AppPort == "" && cfg.Port == "" {
		errs = append(errs, errors.New("APP_HOST/APP_PORT must not be empty (e.g. 127.0.0.1:8080)"))
	}
	if cfg.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must not be empty"))
	}
	switch cfg.CacheDriver {
	case CacheDriverRedis, CacheDriverMemory, CacheDriverNone:
	default:
		errs = append(errs, fmt.Errorf("CACHE_DRIVER must be one of redis, memory, none (got %q)", cfg.CacheDriver))
	}
	if cfg.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be greater than 0"))
	}
	if len(cfg.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength))
	}
	if cfg.JWTExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be greater than 0"))
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		errs = append(errs, errors.New("BCRYPT_COST must be between 4 and 31"))
	}
	if cfg.RateLimit <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be greater than 0"))
	}
	if cfg.ShutdownTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT_SECONDS must be greater than 0"))
	}

	return errors.Join(errs...)
}
