package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "voltshare/libs/config"
)

// TierConfig maps a paid amount to the rental duration it buys.
type TierConfig struct {
	Amount    float64            `yaml:"amount"`
	Allowance libconfig.Duration `yaml:"allowance"`
}

// ReconcileConfig holds the reconciliation engine and scheduler knobs.
type ReconcileConfig struct {
	Interval         libconfig.Duration `yaml:"interval" env:"RECONCILE_INTERVAL"`
	FetchTimeout     libconfig.Duration `yaml:"fetchTimeout" env:"RECONCILE_FETCH_TIMEOUT"`
	FetchConcurrency int                `yaml:"fetchConcurrency" env:"RECONCILE_FETCH_CONCURRENCY"`
	GracePeriod      libconfig.Duration `yaml:"gracePeriod" env:"RECONCILE_GRACE_PERIOD"`
	MinServiceCharge int                `yaml:"minServiceCharge" env:"RECONCILE_MIN_SERVICE_CHARGE"`
	AutoCloseOverdue bool               `yaml:"autoCloseOverdue" env:"RECONCILE_AUTO_CLOSE_OVERDUE"`
	MetadataTTL      libconfig.Duration `yaml:"metadataTtl" env:"RECONCILE_METADATA_TTL"`
	Tiers            []TierConfig       `yaml:"tiers"`
}

// Config defines reconciler service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"POSTGRES_DSN"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`
	Hardware struct {
		Domain string `yaml:"domain" env:"HARDWARE_DOMAIN"`
		APIKey string `yaml:"apiKey" env:"HARDWARE_API_KEY"`
	} `yaml:"hardware"`
	Auth struct {
		JWTSecret string             `yaml:"jwtSecret" env:"AUTH_JWT_SECRET"`
		TokenTTL  libconfig.Duration `yaml:"tokenTtl" env:"AUTH_TOKEN_TTL"`
	} `yaml:"auth"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

// Load reads configuration via the shared helper and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Auth.TokenTTL = libconfig.Duration(time.Hour)
	cfg.Reconcile = ReconcileConfig{
		Interval:         libconfig.Duration(2 * time.Minute),
		FetchTimeout:     libconfig.Duration(10 * time.Second),
		FetchConcurrency: 4,
		GracePeriod:      libconfig.Duration(2 * time.Minute),
		MinServiceCharge: 60,
		MetadataTTL:      libconfig.Duration(5 * time.Minute),
		Tiers: []TierConfig{
			{Amount: 0.5, Allowance: libconfig.Duration(2 * time.Hour)},
			{Amount: 1, Allowance: libconfig.Duration(12 * time.Hour)},
		},
	}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil, errors.New("config: redis addr required")
	}
	if strings.TrimSpace(cfg.Hardware.Domain) == "" {
		return nil, errors.New("config: hardware domain required")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("config: jwt secret required")
	}
	if cfg.Reconcile.Interval <= 0 {
		return nil, errors.New("config: reconcile interval must be positive")
	}
	if cfg.Reconcile.FetchConcurrency <= 0 {
		return nil, errors.New("config: fetch concurrency must be positive")
	}
	if len(cfg.Reconcile.Tiers) == 0 {
		return nil, errors.New("config: at least one price tier required")
	}
	for _, tier := range cfg.Reconcile.Tiers {
		if tier.Allowance <= 0 {
			return nil, fmt.Errorf("config: tier %.2f has non-positive allowance", tier.Amount)
		}
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
