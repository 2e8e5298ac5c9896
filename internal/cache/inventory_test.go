package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAside_CachesOnMiss(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	loads := 0
	load := func(dest *[]string) func() error {
		return func() error {
			loads++
			*dest = []string{"Breakfast", "Dessert"}
			return nil
		}
	}

	var first []string
	require.NoError(t, Aside(ctx, CategoryListKey, &first, CategoryListTTL, load(&first)))
	var second []string
	require.NoError(t, Aside(ctx, CategoryListKey, &second, CategoryListTTL, load(&second)))

	assert.Equal(t, 1, loads)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists(CategoryListKey))

	InvalidateCategories(ctx)
	assert.False(t, mr.Exists(CategoryListKey))
}

func TestAside_LoadErrorIsNotCached(t *testing.T) {
	mr := withMiniredis(t)
	boom := errors.New("store down")

	var out []string
	err := Aside(context.Background(), CategoryListKey, &out, CategoryListTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(CategoryListKey))
}

func TestAside_WithoutClientLoadsEveryTime(t *testing.T) {
	SetClient(nil)
	loads := 0
	var out []string
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), CategoryKey("Category-1"), &out, CategoryTTL, func() error {
			loads++
			return nil
		}))
	}
	assert.Equal(t, 2, loads)
}
