package domain_test

import (
	"testing"

	"linkbio/core/bio/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVideoURL(t *testing.T) {
	tests := []struct {
		url      string
		provider string
		id       string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "youtube", "dQw4w9WgXcQ"},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ&t=10", "youtube", "dQw4w9WgXcQ"},
		{"https://youtube.com/embed/dQw4w9WgXcQ", "youtube", "dQw4w9WgXcQ"},
		{"https://youtube.com/shorts/dQw4w9WgXcQ", "youtube", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "youtube", "dQw4w9WgXcQ"},
		{"https://vimeo.com/76979871", "vimeo", "76979871"},
		{"https://player.vimeo.com/video/76979871", "vimeo", "76979871"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			v, err := domain.ParseVideoURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.provider, v.Provider)
			assert.Equal(t, tt.id, v.ExternalID)
			assert.Equal(t, tt.url, v.URL)
		})
	}

	for _, bad := range []string{
		"",
		"ftp://youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtube.com/watch",
		"https://youtube.com/watch?v=short",
		"https://vimeo.com/channels/staffpicks",
		"https://dailymotion.com/video/x7tgad0",
	} {
		_, err := domain.ParseVideoURL(bad)
		assert.ErrorIs(t, err, domain.ErrValidation, bad)
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "my-setup", domain.Slugify("My Setup"))
	assert.Equal(t, "gear-2025", domain.Slugify("  Gear -- 2025!! "))
	assert.Equal(t, "caf", domain.Slugify("Café"))
	assert.Empty(t, domain.Slugify("!!!"))
}

func TestCreatePage_Slugs(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")

	pg := f.page(p.ID, "Travel Kit")
	assert.Equal(t, "travel-kit", pg.Slug)

	_, err := f.app.CreatePage(f.ctx, f.owner, p.ID, domain.CreatePageParams{Name: "Travel  kit"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	for _, name := range []string{"Links", "RCMD", "collections"} {
		_, err := f.app.CreatePage(f.ctx, f.owner, p.ID, domain.CreatePageParams{Name: name})
		assert.ErrorIs(t, err, domain.ErrValidation, name)
	}

	_, err = f.app.CreatePage(f.ctx, f.owner, p.ID, domain.CreatePageParams{Name: "???"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	custom, err := f.app.CreatePage(f.ctx, f.owner, p.ID, domain.CreatePageParams{Name: "Desk", Slug: "my-desk"})
	require.NoError(t, err)
	assert.Equal(t, "my-desk", custom.Slug)

	renamed := "Work Desk"
	got, err := f.app.UpdatePage(f.ctx, f.owner, p.ID, custom.ID, domain.UpdatePageParams{Name: &renamed})
	require.NoError(t, err)
	assert.Equal(t, renamed, got.Name)
	assert.Equal(t, "my-desk", got.Slug, "renaming keeps the slug")

	slug := "travel-kit"
	_, err = f.app.UpdatePage(f.ctx, f.owner, p.ID, custom.ID, domain.UpdatePageParams{Slug: &slug})
	assert.ErrorIs(t, err, domain.ErrConflict)

	pages, err := f.app.ListPages(f.ctx, f.owner, p.ID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, pg.ID, pages[0].ID)
}
