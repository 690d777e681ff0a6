package registry_test

import (
	"context"
	"testing"

	"github.com/aretw0/cohort/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ResolveAndOverwrite(t *testing.T) {
	r := registry.NewRegistry()
	var got []string

	r.Register("banner", func(ctx context.Context, args ...any) error {
		got = append(got, "first")
		return nil
	})
	r.Register("banner", func(ctx context.Context, args ...any) error {
		got = append(got, "second")
		return nil
	})

	fn, err := r.Resolve("banner")
	require.NoError(t, err)
	require.NoError(t, fn(context.Background()))
	assert.Equal(t, []string{"second"}, got)
}

func TestRegistry_Unknown(t *testing.T) {
	r := registry.NewRegistry()
	_, err := r.Resolve("missing")
	assert.ErrorIs(t, err, registry.ErrActionNotFound)
}

func TestRegistry_Names(t *testing.T) {
	r := registry.NewRegistry()
	noop := func(ctx context.Context, args ...any) error { return nil }
	r.Register("print", noop)
	r.Register("noop", noop)

	assert.Equal(t, []string{"noop", "print"}, r.Names())
}
