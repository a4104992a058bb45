package domain_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"linkbio/core/bio/adapters/memory"
	"linkbio/core/bio/domain"
	"linkbio/modules/clock"
	"linkbio/modules/hmac"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	cache *recordingCache
	app   *domain.Application
	clock *clock.StepClock
	owner uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	signer, err := hmac.NewHMACSigner([]byte("test-secret"))
	require.NoError(t, err)

	clk := clock.NewStepClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	store := memory.New(memory.WithClock(clk))
	cache := newRecordingCache()
	app := domain.NewApp(store, store,
		domain.WithCursorSigner(signer),
		domain.WithPublicPageCache(cache),
		domain.WithClock(clk),
	)
	return &fixture{
		t:     t,
		ctx:   context.Background(),
		store: store,
		cache: cache,
		app:   app,
		clock: clk,
		owner: uuid.Must(uuid.NewV7()),
	}
}

func (f *fixture) profile(handle string) *domain.Profile {
	f.t.Helper()
	p, err := f.app.CreateProfile(f.ctx, f.owner, domain.CreateProfileParams{Handle: handle, DisplayName: handle})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) page(profileID uuid.UUID, name string) *domain.Page {
	f.t.Helper()
	p, err := f.app.CreatePage(f.ctx, f.owner, profileID, domain.CreatePageParams{Name: name})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) link(profileID uuid.UUID, title string) *domain.Link {
	f.t.Helper()
	l, err := f.app.CreateLink(f.ctx, f.owner, profileID, domain.CreateLinkParams{Title: title, URL: "https://example.com/" + title})
	require.NoError(f.t, err)
	return l
}

func (f *fixture) recommendation(profileID uuid.UUID, title string) *domain.Recommendation {
	f.t.Helper()
	r, err := f.app.CreateRecommendation(f.ctx, f.owner, profileID, domain.CreateRecommendationParams{Title: title, URL: "https://example.com/" + title})
	require.NoError(f.t, err)
	return r
}

// textBlocks appends one text block per label and returns their ids by label.
func (f *fixture) textBlocks(profileID uuid.UUID, pageID *uuid.UUID, labels ...string) map[string]uuid.UUID {
	f.t.Helper()
	ids := make(map[string]uuid.UUID, len(labels))
	for _, label := range labels {
		b, err := f.app.AddBlock(f.ctx, f.owner, profileID, textBlock(pageID, label))
		require.NoError(f.t, err)
		ids[label] = b.ID
	}
	return ids
}

func textBlock(pageID *uuid.UUID, html string) domain.AddBlockParams {
	return domain.AddBlockParams{
		PageID:  pageID,
		Kind:    domain.BlockKindText,
		Payload: &domain.Payload{Text: &domain.TextPayload{HTML: html}},
	}
}

// labels returns the text of each block in order, asserting orders are 1..N.
func labels(t *testing.T, blocks []domain.Block) []string {
	t.Helper()
	out := make([]string, 0, len(blocks))
	for i, b := range blocks {
		require.Equal(t, i+1, b.DisplayOrder, "block %d is out of sequence", i)
		require.NotNil(t, b.Payload)
		require.NotNil(t, b.Payload.Text)
		out = append(out, b.Payload.Text.HTML)
	}
	return out
}

type recordingCache struct {
	mu          sync.Mutex
	entries     map[string]*domain.PublicPage
	gens        map[string]int
	gets        int
	hits        int
	invalidated []string
	failGet     error
	failPut     error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: map[string]*domain.PublicPage{}, gens: map[string]int{}}
}

func (c *recordingCache) Get(_ context.Context, handle, path string) (*domain.PublicPage, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet != nil {
		return nil, "", c.failGet
	}
	p, ok := c.entries[handle+"/"+path]
	if ok {
		c.hits++
	}
	return p, strconv.Itoa(c.gens[handle]), nil
}

func (c *recordingCache) Put(_ context.Context, handle, path, version string, page *domain.PublicPage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failPut != nil {
		return c.failPut
	}
	if version != strconv.Itoa(c.gens[handle]) {
		return nil
	}
	c.entries[handle+"/"+path] = page
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, handle string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, handle)
	c.gens[handle]++
	for k := range c.entries {
		if len(k) > len(handle) && k[:len(handle)+1] == handle+"/" {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *recordingCache) invalidations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.invalidated...)
}
