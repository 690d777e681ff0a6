package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/cohort/pkg/adapters/memory"
	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunKeyValueStoreContract(t, store)
}

func TestMemoryStore_Close(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Set(ctx, "k", "v"))
	require.NoError(t, store.Close())

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.ErrorIs(t, store.Set(ctx, "k", "v"), domain.ErrStorageUnavailable)
	assert.ErrorIs(t, store.Remove(ctx, "k"), domain.ErrStorageUnavailable)
}
