package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/cohort/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunKeyValueStoreContract runs a suite of tests to verify that a KeyValueStore implementation
// adheres to the defined interface contract.
func RunKeyValueStoreContract(t *testing.T, store KeyValueStore) {
	ctx := context.Background()
	key := "contract_" + time.Now().Format("20060102150405")

	t.Run("Set and Get", func(t *testing.T) {
		err := store.Set(ctx, key, `{"variantId":"a"}`)
		require.NoError(t, err, "Set should not return error")

		val, err := store.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, `{"variantId":"a"}`, val)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, "first"))
		require.NoError(t, store.Set(ctx, key, "second"))

		val, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "second", val)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, "value"))

		err := store.Remove(ctx, key)
		require.NoError(t, err, "Remove should not return error")

		_, err = store.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound, "Get after Remove should return ErrKeyNotFound")
	})

	t.Run("Remove Non-Existent", func(t *testing.T) {
		assert.NoError(t, store.Remove(ctx, "never-set-"+key))
	})

	t.Run("Empty Value", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, ""))
		defer func() { _ = store.Remove(ctx, key) }()

		val, err := store.Get(ctx, key)
		require.NoError(t, err, "an empty value is still a stored value")
		assert.Equal(t, "", val)
	})

	lister, ok := store.(KeyLister)
	if !ok {
		return
	}

	t.Run("Keys", func(t *testing.T) {
		k1 := key + "_1"
		k2 := key + "_2"
		require.NoError(t, store.Set(ctx, k1, "1"))
		require.NoError(t, store.Set(ctx, k2, "2"))

		defer func() {
			_ = store.Remove(ctx, k1)
			_ = store.Remove(ctx, k2)
		}()

		keys, err := lister.Keys(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
	})
}
