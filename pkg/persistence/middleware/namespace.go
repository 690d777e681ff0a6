package middleware

import (
	"context"
	"strings"

	"github.com/aretw0/cohort/pkg/ports"
)

type namespaceMiddleware struct {
	next   ports.KeyValueStore
	prefix string
}

// NewNamespaceMiddleware scopes every key to origin, so several origins (sites, apps,
// tenants) can share one physical store without seeing each other's identity or assignments.
func NewNamespaceMiddleware(origin string) Middleware {
	prefix := origin + "/"
	return func(next ports.KeyValueStore) ports.KeyValueStore {
		return &namespaceMiddleware{next: next, prefix: prefix}
	}
}

func (m *namespaceMiddleware) Get(ctx context.Context, key string) (string, error) {
	return m.next.Get(ctx, m.prefix+key)
}

func (m *namespaceMiddleware) Set(ctx context.Context, key, value string) error {
	return m.next.Set(ctx, m.prefix+key, value)
}

func (m *namespaceMiddleware) Remove(ctx context.Context, key string) error {
	return m.next.Remove(ctx, m.prefix+key)
}

// Keys returns only this origin's keys, without the prefix.
func (m *namespaceMiddleware) Keys(ctx context.Context) ([]string, error) {
	all, err := listKeys(ctx, m.next)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(all))
	for _, k := range all {
		if rest, ok := strings.CutPrefix(k, m.prefix); ok {
			keys = append(keys, rest)
		}
	}
	return keys, nil
}
