package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/k1nque/org-directory/internal/domain"
)

func setupCache(t *testing.T) (*miniredis.Miniredis, *TreeCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewTreeCache(client, time.Minute)
}

func sampleForest() []*domain.ActivityNode {
	parentID := int64(1)
	return []*domain.ActivityNode{
		{
			Activity: domain.Activity{ID: 1, Name: "Еда", Level: 1},
			Children: []*domain.ActivityNode{
				{
					Activity: domain.Activity{ID: 2, Name: "Мясная продукция", ParentID: &parentID, Level: 2},
					Children: []*domain.ActivityNode{},
				},
			},
		},
	}
}

func TestGetMissReturnsNil(t *testing.T) {
	_, cache := setupCache(t)

	forest, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.Nil(t, forest)
}

func TestSetThenGetRoundTrips(t *testing.T) {
	_, cache := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, sampleForest()))

	forest, err := cache.Get(ctx)
	require.NoError(t, err)
	require.Len(t, forest, 1)
	require.Equal(t, "Еда", forest[0].Name)
	require.Len(t, forest[0].Children, 1)
	require.Equal(t, int64(2), forest[0].Children[0].ID)
}

func TestInvalidateDropsEntry(t *testing.T) {
	_, cache := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, sampleForest()))
	require.NoError(t, cache.Invalidate(ctx))

	forest, err := cache.Get(ctx)
	require.NoError(t, err)
	require.Nil(t, forest)
}

func TestCorruptEntryBehavesAsMiss(t *testing.T) {
	mr, cache := setupCache(t)
	ctx := context.Background()

	mr.Set("directory:activity-tree", "{not json")

	forest, err := cache.Get(ctx)
	require.NoError(t, err)
	require.Nil(t, forest)
}

func TestEntryExpires(t *testing.T) {
	mr, cache := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, sampleForest()))
	mr.FastForward(2 * time.Minute)

	forest, err := cache.Get(ctx)
	require.NoError(t, err)
	require.Nil(t, forest)
}
