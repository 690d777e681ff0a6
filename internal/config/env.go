package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends selectable through COHORT_STORE.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
)

// Env is the CLI configuration read from the environment.
type Env struct {
	Store         string        `env:"COHORT_STORE" envDefault:"file"`
	Dir           string        `env:"COHORT_DIR" envDefault:".cohort"`
	RedisAddr     string        `env:"COHORT_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"COHORT_REDIS_PASSWORD"`
	RedisDB       int           `env:"COHORT_REDIS_DB" envDefault:"0"`
	RedisPrefix   string        `env:"COHORT_REDIS_PREFIX" envDefault:"cohort:"`
	RedisTTL      time.Duration `env:"COHORT_REDIS_TTL"`
	Namespace     string        `env:"COHORT_NAMESPACE"`
	EncryptionKey string        `env:"COHORT_ENCRYPTION_KEY"`
	Locking       bool          `env:"COHORT_LOCKING"`
	LogLevel      string        `env:"COHORT_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv parses Env and checks the store selection.
func LoadEnv() (Env, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return Env{}, err
	}
	switch e.Store {
	case StoreMemory, StoreFile, StoreRedis, StoreBadger, StoreSQLite:
	default:
		return Env{}, fmt.Errorf("parse env: unknown COHORT_STORE %q", e.Store)
	}
	return e, nil
}
