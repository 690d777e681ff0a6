package middleware

import (
	"context"
	"errors"

	"github.com/aretw0/cohort/pkg/ports"
)

// Middleware allows wrapping a KeyValueStore to add behavior.
type Middleware func(ports.KeyValueStore) ports.KeyValueStore

// ErrListingUnsupported is returned by Keys when the wrapped store cannot list keys.
var ErrListingUnsupported = errors.New("underlying store cannot list keys")

// Chain wraps store with the given middlewares. The first middleware is the outermost.
func Chain(store ports.KeyValueStore, mws ...Middleware) ports.KeyValueStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

func listKeys(ctx context.Context, next ports.KeyValueStore) ([]string, error) {
	lister, ok := next.(ports.KeyLister)
	if !ok {
		return nil, ErrListingUnsupported
	}
	return lister.Keys(ctx)
}
