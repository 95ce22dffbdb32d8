// Package config loads the service configuration from environment variables
// and Docker Secrets.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store backends selectable via STORE_BACKEND.
const (
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Config holds the configuration of the story engine service.
type Config struct {
	// Server settings
	Port     string `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Persistence backend: redis (default), postgres or memory
	StoreBackend string `envconfig:"STORE_BACKEND" default:"redis"`

	// Redis settings
	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`
	// secret field, no envconfig tag
	RedisPassword string

	// PostgreSQL settings (used when STORE_BACKEND=postgres)
	DBHost        string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" default:"story_engine"`
	DBName        string        `envconfig:"DB_NAME" default:"story_engine"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// secret field, no envconfig tag
	DBPassword string

	// RabbitMQ settings; an empty URL disables event publishing
	RabbitMQURL            string `envconfig:"RABBITMQ_URL" default:""`
	ClientUpdatesQueueName string `envconfig:"CLIENT_UPDATES_QUEUE_NAME" default:"client_updates"`

	// JWT settings (verification of user access tokens)
	// secret field, no envconfig tag
	JWTSecret string
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig loads configuration from environment variables and secrets.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load story engine configuration: %w", err)
	}

	switch cfg.StoreBackend {
	case StoreBackendRedis, StoreBackendPostgres, StoreBackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	var err error
	cfg.JWTSecret, err = readSecretWithEnvFallback("jwt_secret", "JWT_SECRET")
	if err != nil {
		return nil, err
	}

	if cfg.StoreBackend == StoreBackendPostgres {
		cfg.DBPassword, err = readSecretWithEnvFallback("db_password", "DB_PASSWORD")
		if err != nil {
			return nil, err
		}
	}
	if cfg.StoreBackend == StoreBackendRedis {
		// the redis password is optional
		if secret, secretErr := readSecretWithEnvFallback("redis_password", "REDIS_PASSWORD"); secretErr == nil {
			cfg.RedisPassword = secret
		}
	}

	log.Printf("Story engine configuration loaded (secrets from files):")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  Store backend: %s", cfg.StoreBackend)
	switch cfg.StoreBackend {
	case StoreBackendRedis:
		log.Printf("  Redis: %s (db %d)", cfg.RedisAddr, cfg.RedisDB)
	case StoreBackendPostgres:
		log.Printf("  DB DSN: postgres://%s:***@%s:%s/%s?sslmode=%s",
			cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	}
	if cfg.RabbitMQURL != "" {
		log.Printf("  Client Updates Queue: %s", cfg.ClientUpdatesQueueName)
	} else {
		log.Printf("  RabbitMQ: disabled")
	}
	log.Println("  JWT Secret: [LOADED]")

	return &cfg, nil
}
