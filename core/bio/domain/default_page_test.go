package domain_test

import (
	"testing"

	"linkbio/core/bio/domain"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaultPage_SwitchClearsPageReference(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	pg := f.page(p.ID, "Main")

	got, err := f.app.SetDefaultPage(f.ctx, f.owner, p.ID, domain.PageTypeCustom, &pg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PageTypeCustom, got.DefaultPageType)
	require.NotNil(t, got.DefaultPageID)
	assert.Equal(t, pg.ID, *got.DefaultPageID)

	got, err = f.app.SetDefaultPage(f.ctx, f.owner, p.ID, domain.PageTypeRecommendation, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PageTypeRecommendation, got.DefaultPageType)
	assert.Nil(t, got.DefaultPageID)

	stored, err := f.app.GetProfile(f.ctx, f.owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PageTypeRecommendation, stored.DefaultPageType)
	assert.Nil(t, stored.DefaultPageID)
}

func TestSetDefaultPage_Validation(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	pg := f.page(p.ID, "Main")
	other := f.profile("bob")
	otherPage := f.page(other.ID, "Elsewhere")

	tests := []struct {
		name   string
		typ    domain.PageType
		pageID *uuid.UUID
		want   error
	}{
		{"unknown type", "home", nil, domain.ErrValidation},
		{"custom without page", domain.PageTypeCustom, nil, domain.ErrValidation},
		{"builtin with page", domain.PageTypeLink, &pg.ID, domain.ErrValidation},
		{"none with page", domain.PageTypeNone, &pg.ID, domain.ErrValidation},
		{"page of another profile", domain.PageTypeCustom, &otherPage.ID, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.app.SetDefaultPage(f.ctx, f.owner, p.ID, tt.typ, tt.pageID)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	stored, err := f.app.GetProfile(f.ctx, f.owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PageTypeNone, stored.DefaultPageType)
	assert.Nil(t, stored.DefaultPageID)
}

func TestDeletePage_ResetsDefault(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	pg := f.page(p.ID, "Main")
	f.textBlocks(p.ID, &pg.ID, "A", "B")
	_, err := f.app.SetDefaultPage(f.ctx, f.owner, p.ID, domain.PageTypeCustom, &pg.ID)
	require.NoError(t, err)

	require.NoError(t, f.app.DeletePage(f.ctx, f.owner, p.ID, pg.ID))

	stored, err := f.app.GetProfile(f.ctx, f.owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PageTypeNone, stored.DefaultPageType)
	assert.Nil(t, stored.DefaultPageID)

	_, err = f.app.ListBlocks(f.ctx, p.ID, &pg.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	blocks, err := f.store.ListBlocks(f.ctx, domain.Placement{ProfileID: p.ID, PageID: &pg.ID})
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestSetDefaultPage_BuiltinsAreExclusive(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")

	for _, typ := range []domain.PageType{domain.PageTypeRecommendation, domain.PageTypeLink, domain.PageTypeCollection, domain.PageTypeNone} {
		got, err := f.app.SetDefaultPage(f.ctx, f.owner, p.ID, typ, nil)
		require.NoError(t, err)
		assert.Equal(t, typ, got.DefaultPageType)
		assert.Nil(t, got.DefaultPageID)
	}
}
