package ports

import (
	"context"
)

// KeyValueStore is the persistence capability the experiment core depends on.
// Values are opaque strings; the core stores the user identity and one assignment
// record per experiment.
type KeyValueStore interface {
	// Get retrieves the value stored under key.
	// Returns domain.ErrKeyNotFound if the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// KeyLister is implemented by stores that can enumerate their keys.
// It is used by inspection tooling only; the core never lists keys.
type KeyLister interface {
	Keys(ctx context.Context) ([]string, error)
}
