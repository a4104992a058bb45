package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"linkbio/core/bio/adapters/cache"
	"linkbio/core/bio/domain"
	"linkbio/modules/clock"
	"linkbio/modules/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*cache.PublicPageCache, *clock.StepClock) {
	t.Helper()
	clk := clock.NewStepClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 0)
	return cache.NewPublicPageCache(
		db.NewMemoryKV(clk, time.Minute),
		db.NewMemoryKV(clk, time.Hour),
	), clk
}

// put stores page under the generation a fresh lookup sees.
func put(t *testing.T, c *cache.PublicPageCache, handle, path string, page *domain.PublicPage) {
	t.Helper()
	ctx := context.Background()
	_, gen, err := c.Get(ctx, handle, path)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, handle, path, gen, page))
}

func get(t *testing.T, c *cache.PublicPageCache, handle, path string) *domain.PublicPage {
	t.Helper()
	page, _, err := c.Get(context.Background(), handle, path)
	require.NoError(t, err)
	return page
}

func TestPublicPageCache_PutGet(t *testing.T) {
	c, _ := newCache(t)

	assert.Nil(t, get(t, c, "alice", "_"))

	put(t, c, "alice", "_", &domain.PublicPage{Profile: domain.Profile{Handle: "alice"}, Type: domain.PageTypeLink})

	got := get(t, c, "alice", "_")
	require.NotNil(t, got)
	assert.Equal(t, domain.PageTypeLink, got.Type)
	assert.Equal(t, "alice", got.Profile.Handle)

	assert.Nil(t, get(t, c, "alice", "links"), "paths are cached separately")
}

func TestPublicPageCache_InvalidateDropsEveryPath(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	for _, path := range []string{"_", "links", "my-setup"} {
		put(t, c, "alice", path, &domain.PublicPage{Type: domain.PageTypeCustom})
	}
	put(t, c, "bob", "_", &domain.PublicPage{Type: domain.PageTypeNone})

	require.NoError(t, c.Invalidate(ctx, "alice"))

	for _, path := range []string{"_", "links", "my-setup"} {
		assert.Nil(t, get(t, c, "alice", path), path)
	}
	assert.NotNil(t, get(t, c, "bob", "_"))

	// New entries land under the new generation.
	put(t, c, "alice", "_", &domain.PublicPage{Type: domain.PageTypeLink})
	got := get(t, c, "alice", "_")
	require.NotNil(t, got)
	assert.Equal(t, domain.PageTypeLink, got.Type)
}

func TestPublicPageCache_PutAfterInvalidateIsUnreachable(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	// a reader misses, a writer commits and invalidates, then the reader
	// stores what it read before the commit
	miss, gen, err := c.Get(ctx, "alice", "_")
	require.NoError(t, err)
	require.Nil(t, miss)
	require.NoError(t, c.Invalidate(ctx, "alice"))
	require.NoError(t, c.Put(ctx, "alice", "_", gen, &domain.PublicPage{Profile: domain.Profile{Bio: "OLD"}}))

	assert.Nil(t, get(t, c, "alice", "_"), "a page read before the invalidation is not served")

	put(t, c, "alice", "_", &domain.PublicPage{Profile: domain.Profile{Bio: "NEW"}})
	got := get(t, c, "alice", "_")
	require.NotNil(t, got)
	assert.Equal(t, "NEW", got.Profile.Bio)
}

func TestPublicPageCache_PutWithoutGenerationIsSkipped(t *testing.T) {
	c, _ := newCache(t)
	require.NoError(t, c.Put(context.Background(), "alice", "_", "", &domain.PublicPage{}))
	assert.Nil(t, get(t, c, "alice", "_"))
}

func TestPublicPageCache_Expires(t *testing.T) {
	c, clk := newCache(t)

	put(t, c, "alice", "_", &domain.PublicPage{})
	clk.Advance(time.Minute)

	assert.Nil(t, get(t, c, "alice", "_"))
}

func TestPublicPageCache_InvalidateUnknownHandle(t *testing.T) {
	c, _ := newCache(t)
	assert.NoError(t, c.Invalidate(context.Background(), "nobody"))
}

type brokenKV struct{}

func (brokenKV) AtomicGet(context.Context, string) (any, error)      { return nil, errors.New("down") }
func (brokenKV) AtomicSet(context.Context, string, any) (any, error) { return nil, errors.New("down") }

func TestPublicPageCache_SurfacesStoreErrors(t *testing.T) {
	c := cache.NewPublicPageCache(brokenKV{}, brokenKV{})
	ctx := context.Background()

	_, gen, err := c.Get(ctx, "alice", "_")
	assert.Error(t, err)
	assert.Empty(t, gen)
	assert.Error(t, c.Put(ctx, "alice", "_", "0", &domain.PublicPage{}))
	assert.Error(t, c.Invalidate(ctx, "alice"))
}
