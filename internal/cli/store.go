package cli

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/cohort/internal/config"
	"github.com/aretw0/cohort/pkg/adapters/badger"
	"github.com/aretw0/cohort/pkg/adapters/file"
	"github.com/aretw0/cohort/pkg/adapters/memory"
	"github.com/aretw0/cohort/pkg/adapters/redis"
	"github.com/aretw0/cohort/pkg/adapters/sqlite"
	"github.com/aretw0/cohort/pkg/persistence/middleware"
	"github.com/aretw0/cohort/pkg/ports"
)

// Backend is an opened store plus what the CLI needs to manage it.
type Backend struct {
	Store  ports.KeyValueStore
	Locker ports.DistributedLocker // Nil unless COHORT_LOCKING is set on redis
	Close  func() error
}

// OpenBackend builds the store selected by env, wrapped in the configured middleware.
func OpenBackend(env config.Env, logger *slog.Logger) (*Backend, error) {
	b := &Backend{Close: func() error { return nil }}

	switch env.Store {
	case config.StoreMemory:
		s := memory.NewStore()
		b.Store, b.Close = s, s.Close

	case config.StoreFile:
		b.Store = file.New(filepath.Join(env.Dir, "store"))

	case config.StoreRedis:
		opts := []redis.Option{redis.WithPrefix(env.RedisPrefix)}
		if env.RedisTTL > 0 {
			opts = append(opts, redis.WithTTL(env.RedisTTL))
		}
		s := redis.New(env.RedisAddr, env.RedisPassword, env.RedisDB, opts...)
		b.Store, b.Close = s, s.Close
		if env.Locking {
			b.Locker = redis.NewLocker(s.Client(), s.Prefix())
		}

	case config.StoreBadger:
		cfg := badger.DefaultConfig(filepath.Join(env.Dir, "badger"))
		cfg.Logger = logger
		s, err := badger.Open(cfg)
		if err != nil {
			return nil, err
		}
		b.Store, b.Close = s, s.Close

	case config.StoreSQLite:
		if err := os.MkdirAll(env.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", env.Dir, err)
		}
		s, err := sqlite.Open(filepath.Join(env.Dir, "cohort.db"))
		if err != nil {
			return nil, err
		}
		b.Store, b.Close = s, s.Close

	default:
		return nil, fmt.Errorf("unknown store %q", env.Store)
	}

	if env.Locking && b.Locker == nil {
		logger.Warn("COHORT_LOCKING is only supported by the redis store, ignoring", "store", env.Store)
	}

	mws, err := middlewares(env)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Store = middleware.Chain(b.Store, mws...)
	return b, nil
}

func middlewares(env config.Env) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if env.Namespace != "" {
		mws = append(mws, middleware.NewNamespaceMiddleware(env.Namespace))
	}
	if env.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(env.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("COHORT_ENCRYPTION_KEY is not valid base64: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("COHORT_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	return mws, nil
}
