package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/ports"
)

// IdentityFromDraw maps a draw in [0,1) onto the identity space.
// Out-of-range draws are clamped so a misbehaving random source cannot escape the space.
func IdentityFromDraw(r float64) int {
	if math.IsNaN(r) || r < 0 {
		return 0
	}
	id := int(math.Floor(r * domain.IdentitySpace))
	if id >= domain.IdentitySpace {
		return domain.IdentitySpace - 1
	}
	return id
}

func parseIdentity(raw string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id < 0 || id >= domain.IdentitySpace {
		return 0, false
	}
	return id, true
}

// LoadIdentity reads the stored user identity without creating one.
// The boolean is false when no valid identity is stored.
func LoadIdentity(ctx context.Context, store ports.KeyValueStore) (int, bool, error) {
	if store == nil {
		return 0, false, domain.ErrStorageUnavailable
	}
	raw, err := store.Get(ctx, domain.UserIdentityKey)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read user identity: %w", err)
	}
	id, ok := parseIdentity(raw)
	return id, ok, nil
}

// ResolveIdentity returns the stored user identity, generating and persisting one on first use.
// A stored value that is not a valid identity is replaced.
func ResolveIdentity(ctx context.Context, store ports.KeyValueStore, random func() float64, logger *slog.Logger) (int, error) {
	id, ok, err := LoadIdentity(ctx, store)
	if err != nil {
		return 0, err
	}
	if ok {
		logger.Debug("User identity reused", "identity", id)
		return id, nil
	}

	if raw, err := store.Get(ctx, domain.UserIdentityKey); err == nil {
		logger.Warn("Stored user identity is invalid, regenerating", "value", raw)
	}

	id = IdentityFromDraw(random())
	if err := store.Set(ctx, domain.UserIdentityKey, strconv.Itoa(id)); err != nil {
		return 0, fmt.Errorf("failed to persist user identity: %w", err)
	}
	logger.Debug("User identity created", "identity", id)
	return id, nil
}
