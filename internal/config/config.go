// Package config содержит логику чтения конфигурации сервиса предложений.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// StorePostgres хранит предложения в PostgreSQL.
	StorePostgres = "postgres"
	// StoreDynamoDB хранит предложения в DynamoDB.
	StoreDynamoDB = "dynamodb"
)

// Config содержит параметры конфигурации сервиса предложений.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	RedisURL    string `env:"REDIS_URL"`
	OfferStore  string `env:"OFFER_STORE"`

	DynamoTable    string `env:"DYNAMODB_TABLE" envDefault:"offers"`
	DynamoEndpoint string `env:"DYNAMODB_ENDPOINT"`
	AWSRegion      string `env:"AWS_REGION" envDefault:"eu-central-1"`
	AWSAccessKey   string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`

	AuthSecret      string        `env:"AUTH_SECRET" envDefault:"offersrv-secret"`
	SaveDebounce    time.Duration `env:"SAVE_DEBOUNCE" envDefault:"2s"`
	DraftCacheTTL   time.Duration `env:"DRAFT_CACHE_TTL" envDefault:"720h"`
	SessionIdleTTL  time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	DefaultCurrency string        `env:"DEFAULT_CURRENCY" envDefault:"EUR"`
	DefaultLanguage string        `env:"DEFAULT_LANGUAGE" envDefault:"en"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envRedisURL := cfg.RedisURL
	envOfferStore := cfg.OfferStore

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisURL, "r", "", "redis URL for the local draft cache")
	flag.StringVar(&cfg.OfferStore, "s", StorePostgres, "offer store: postgres or dynamodb")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envRedisURL != "" {
		cfg.RedisURL = envRedisURL
	}
	if envOfferStore != "" {
		cfg.OfferStore = envOfferStore
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.OfferStore == "" {
		cfg.OfferStore = StorePostgres
	}

	if cfg.OfferStore != StorePostgres && cfg.OfferStore != StoreDynamoDB {
		return nil, fmt.Errorf("unknown offer store %q", cfg.OfferStore)
	}
	if cfg.SaveDebounce <= 0 {
		return nil, fmt.Errorf("save debounce must be positive, got %s", cfg.SaveDebounce)
	}
	if cfg.SessionIdleTTL <= 0 {
		return nil, fmt.Errorf("session idle ttl must be positive, got %s", cfg.SessionIdleTTL)
	}

	return cfg, nil
}
