package domain_test

import (
	"context"
	"errors"
	"testing"

	"linkbio/core/bio/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePublicPage_BuiltinsByCreationTime(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	r1 := f.recommendation(p.ID, "first")
	r2 := f.recommendation(p.ID, "second")
	l1 := f.link(p.ID, "site")
	r3 := f.recommendation(p.ID, "third")

	page, err := f.app.ResolvePublicPage(f.ctx, "alice", "rcmd")
	require.NoError(t, err)
	assert.Equal(t, domain.PageTypeRecommendation, page.Type)
	require.Len(t, page.Recommendations, 3)
	assert.Equal(t, r1.ID, page.Recommendations[0].ID)
	assert.Equal(t, r2.ID, page.Recommendations[1].ID)
	assert.Equal(t, r3.ID, page.Recommendations[2].ID)
	assert.Empty(t, page.Blocks)

	page, err = f.app.ResolvePublicPage(f.ctx, "alice", "links")
	require.NoError(t, err)
	assert.Equal(t, domain.PageTypeLink, page.Type)
	require.Len(t, page.Links, 1)
	assert.Equal(t, l1.ID, page.Links[0].ID)

	page, err = f.app.ResolvePublicPage(f.ctx, "alice", "collections")
	require.NoError(t, err)
	assert.Equal(t, domain.PageTypeCollection, page.Type)
	assert.Empty(t, page.Collections)
}

func TestResolvePublicPage_CustomPageByDisplayOrder(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	pg := f.page(p.ID, "My Setup")
	require.Equal(t, "my-setup", pg.Slug)
	ids := f.textBlocks(p.ID, &pg.ID, "A", "B", "C")
	_, err := f.app.MoveBlock(f.ctx, f.owner, p.ID, ids["C"], 3, 1)
	require.NoError(t, err)

	page, err := f.app.ResolvePublicPage(f.ctx, "alice", "my-setup")
	require.NoError(t, err)
	assert.Equal(t, domain.PageTypeCustom, page.Type)
	require.NotNil(t, page.Page)
	assert.Equal(t, pg.ID, page.Page.ID)
	assert.Equal(t, []string{"C", "A", "B"}, labels(t, page.Blocks))
}

func TestResolvePublicPage_NotFound(t *testing.T) {
	f := newFixture(t)
	f.profile("alice")

	_, err := f.app.ResolvePublicPage(f.ctx, "nobody", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.app.ResolvePublicPage(f.ctx, "alice", "no-such-page")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.app.ResolvePublicPage(f.ctx, "ALICE", "")
	assert.ErrorIs(t, err, domain.ErrNotFound, "handles match case-sensitively")
}

func TestResolvePublicPage_DefaultPage(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")

	page, err := f.app.ResolvePublicPage(f.ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, domain.PageTypeNone, page.Type)

	_, err = f.app.SetDefaultPage(f.ctx, f.owner, p.ID, domain.PageTypeLink, nil)
	require.NoError(t, err)
	f.link(p.ID, "site")

	page, err = f.app.ResolvePublicPage(f.ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, domain.PageTypeLink, page.Type)
	assert.Len(t, page.Links, 1)
}

func TestResolveDefaultPage_DanglingFallsBackToNone(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	pg := f.page(p.ID, "Main")

	updated, err := f.app.SetDefaultPage(f.ctx, f.owner, p.ID, domain.PageTypeCustom, &pg.ID)
	require.NoError(t, err)

	def, err := f.app.ResolveDefaultPage(f.ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, domain.PageTypeCustom, def.Type)
	require.NotNil(t, def.Page)
	assert.Equal(t, pg.ID, def.Page.ID)

	// Remove the page behind the profile's back.
	require.NoError(t, f.store.WithTx(f.ctx, func(ctx context.Context, tx domain.WriteTx) error {
		return tx.DeletePage(ctx, p.ID, pg.ID)
	}))

	def, err = f.app.ResolveDefaultPage(f.ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, domain.NoDefault(), def)

	page, err := f.app.ResolvePublicPage(f.ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, domain.PageTypeNone, page.Type)
}

func TestResolvePublicPage_CachesAndInvalidates(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	f.link(p.ID, "one")

	first, err := f.app.ResolvePublicPage(f.ctx, "alice", "links")
	require.NoError(t, err)
	second, err := f.app.ResolvePublicPage(f.ctx, "alice", "links")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, f.cache.hits)

	f.link(p.ID, "two")
	assert.Contains(t, f.cache.invalidations(), "alice")

	third, err := f.app.ResolvePublicPage(f.ctx, "alice", "links")
	require.NoError(t, err)
	assert.Len(t, third.Links, 2)
}

func TestResolvePublicPage_CacheFailuresAreIgnored(t *testing.T) {
	f := newFixture(t)
	f.profile("alice")
	f.cache.failGet = errors.New("redis down")
	f.cache.failPut = errors.New("redis down")

	page, err := f.app.ResolvePublicPage(f.ctx, "alice", "rcmd")
	require.NoError(t, err)
	assert.Equal(t, domain.PageTypeRecommendation, page.Type)
}

func TestResolvePublicPage_RetriesTransientRead(t *testing.T) {
	f := newFixture(t)
	f.profile("alice")

	f.store.InjectFault("GetProfileByHandle", domain.ErrTransient)
	_, err := f.app.ResolvePublicPage(f.ctx, "alice", "rcmd")
	require.NoError(t, err)
}

// invalidatingCache commits a concurrent mutation right after every miss.
type invalidatingCache struct {
	*recordingCache
}

func (c invalidatingCache) Get(ctx context.Context, handle, path string) (*domain.PublicPage, string, error) {
	page, version, err := c.recordingCache.Get(ctx, handle, path)
	if err == nil && page == nil {
		_ = c.recordingCache.Invalidate(ctx, handle)
	}
	return page, version, err
}

func TestResolvePublicPage_DoesNotCacheAcrossInvalidation(t *testing.T) {
	f := newFixture(t)
	inner := newRecordingCache()
	app := domain.NewApp(f.store, f.store, domain.WithPublicPageCache(invalidatingCache{inner}))
	_, err := app.CreateProfile(f.ctx, f.owner, domain.CreateProfileParams{Handle: "alice", DisplayName: "Alice"})
	require.NoError(t, err)

	_, err = app.ResolvePublicPage(f.ctx, "alice", "links")
	require.NoError(t, err)
	_, err = app.ResolvePublicPage(f.ctx, "alice", "links")
	require.NoError(t, err)
	assert.Zero(t, inner.hits, "a page read before an invalidation is not served")
	assert.Empty(t, inner.entries)
}
