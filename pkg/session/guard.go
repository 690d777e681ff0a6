package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/cohort/internal/logging"
	"github.com/aretw0/cohort/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed holder can block other processes.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Guard serializes read-modify-write sequences on store keys.
// It uses Reference Counting to garbage collect unused locks.
type Guard struct {
	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker ports.DistributedLocker // Optional distributed locker
	ttl    time.Duration
	logger *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Guard.
type Option func(*Guard)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(g *Guard) {
		g.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(g *Guard) {
		g.ttl = ttl
	}
}

// WithLogger configures a logger for the Guard.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// NewGuard creates a Guard. Without a locker it only serializes within the process.
func NewGuard(opts ...Option) *Guard {
	g := &Guard{
		locks:  make(map[string]*lockEntry),
		ttl:    DefaultLockTTL,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (g *Guard) acquire(key string) *lockEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, exists := g.locks[key]
	if !exists {
		entry = &lockEntry{}
		g.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (g *Guard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, exists := g.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(g.locks, key)
	}
}

// active returns the number of keys currently holding a lock entry.
func (g *Guard) active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}

// WithLock executes fn while holding the lock for key.
func (g *Guard) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := g.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		g.release(key)
	}()

	if g.locker != nil {
		unlock, err := g.locker.Lock(ctx, key, g.ttl)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				g.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
