package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/pet-adoption-engine/internal/platform/devicestore"
)

func TestSentCache_UnionPerUser(t *testing.T) {
	ctx := context.Background()
	c := NewSentCache(devicestore.NewMemoryStore())

	require.NoError(t, c.MarkEmailed(ctx, 20, 42))
	require.NoError(t, c.MarkEmailed(ctx, 20, 42))
	require.NoError(t, c.MarkEmailed(ctx, 20, 7))
	require.NoError(t, c.MarkEmailed(ctx, 21, 99))

	ids, err := c.Emailed(ctx, 20)
	require.NoError(t, err)
	require.Equal(t, []int64{7, 42}, ids)

	has, err := c.Has(ctx, 20, 99)
	require.NoError(t, err)
	require.False(t, has)

	has, err = c.Has(ctx, 21, 99)
	require.NoError(t, err)
	require.True(t, has)
}

func TestSentCache_NumericOrder(t *testing.T) {
	ctx := context.Background()
	c := NewSentCache(devicestore.NewMemoryStore())
	for _, id := range []int64{100, 9, 25} {
		require.NoError(t, c.MarkEmailed(ctx, 1, id))
	}
	ids, err := c.Emailed(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{9, 25, 100}, ids)
}

func TestSentCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	store := devicestore.NewMemoryStore()
	require.NoError(t, store.Union(ctx, devicestore.EmailedTermsKey(1), "not-a-number"))

	_, err := NewSentCache(store).Emailed(ctx, 1)
	require.Error(t, err)
}
