package domain_test

import (
	"fmt"
	"testing"

	"linkbio/core/bio/domain"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProfile(t *testing.T) {
	f := newFixture(t)

	p := f.profile("alice")
	assert.Equal(t, "alice", p.Handle)
	assert.Equal(t, domain.PageTypeNone, p.DefaultPageType)
	assert.Nil(t, p.DefaultPageID)
	assert.Equal(t, int64(1), p.Version)

	_, err := f.app.CreateProfile(f.ctx, uuid.Must(uuid.NewV7()), domain.CreateProfileParams{Handle: "alice", DisplayName: "Other"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	for _, handle := range []string{"a", "has space", "api", "Admin", "waytoolonghandle_waytoolonghandle_"} {
		_, err := f.app.CreateProfile(f.ctx, f.owner, domain.CreateProfileParams{Handle: handle, DisplayName: "x"})
		assert.ErrorIs(t, err, domain.ErrValidation, handle)
	}
}

func TestCheckHandle(t *testing.T) {
	f := newFixture(t)
	f.profile("alice")

	ok, err := f.app.CheckHandle(f.ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.app.CheckHandle(f.ctx, "alice.b")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.app.CheckHandle(f.ctx, "x")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetProfile_HidesOtherOwners(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")

	_, err := f.app.GetProfile(f.ctx, uuid.Must(uuid.NewV7()), p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestModifyProfile(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	f.profile("bob")

	name := "Alice A."
	updated, err := f.app.ModifyProfile(f.ctx, f.owner, p.ID, p.Version, domain.ProfilePatch{
		DisplayName: &name,
		AvatarSet:   true,
		AvatarURL:   "https://cdn.example.com/a.png",
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.DisplayName)
	require.NotNil(t, updated.AvatarURL)
	assert.Equal(t, p.Version+1, updated.Version)

	_, err = f.app.ModifyProfile(f.ctx, f.owner, p.ID, p.Version, domain.ProfilePatch{DisplayName: &name})
	assert.ErrorIs(t, err, domain.ErrPrecondition, "stale version")

	taken := "bob"
	_, err = f.app.ModifyProfile(f.ctx, f.owner, p.ID, updated.Version, domain.ProfilePatch{Handle: &taken})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.app.ModifyProfile(f.ctx, f.owner, p.ID, updated.Version, domain.ProfilePatch{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	cleared, err := f.app.ModifyProfile(f.ctx, f.owner, p.ID, updated.Version, domain.ProfilePatch{AvatarSet: true, AvatarNull: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.AvatarURL)
	assert.Equal(t, name, cleared.DisplayName)
}

func TestModifyProfile_HandleChangeInvalidatesBoth(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")

	handle := "alice2"
	_, err := f.app.ModifyProfile(f.ctx, f.owner, p.ID, p.Version, domain.ProfilePatch{Handle: &handle})
	require.NoError(t, err)

	got := f.cache.invalidations()
	assert.Contains(t, got, "alice")
	assert.Contains(t, got, "alice2")

	_, err = f.app.ResolvePublicPage(f.ctx, "alice", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteProfile(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	pg := f.page(p.ID, "Main")
	f.textBlocks(p.ID, &pg.ID, "A")

	err := f.app.DeleteProfile(f.ctx, f.owner, p.ID, p.Version+1)
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	require.NoError(t, f.app.DeleteProfile(f.ctx, f.owner, p.ID, p.Version))

	_, err = f.app.GetProfile(f.ctx, f.owner, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	blocks, err := f.store.ListBlocks(f.ctx, domain.Placement{ProfileID: p.ID, PageID: &pg.ID})
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestListProfiles_CursorPagination(t *testing.T) {
	f := newFixture(t)
	var want []uuid.UUID
	for i := range 5 {
		want = append(want, f.profile(fmt.Sprintf("user%d", i)).ID)
	}
	// Someone else's profile never shows up.
	_, err := f.app.CreateProfile(f.ctx, uuid.Must(uuid.NewV7()), domain.CreateProfileParams{Handle: "stranger", DisplayName: "x"})
	require.NoError(t, err)

	ids := func(l *domain.ProfileList) []uuid.UUID {
		out := make([]uuid.UUID, len(l.Items))
		for i, p := range l.Items {
			out[i] = p.ID
		}
		return out
	}

	first, err := f.app.ListProfiles(f.ctx, f.owner, "", 2)
	require.NoError(t, err)
	assert.Equal(t, want[0:2], ids(first))
	assert.NotEmpty(t, first.Next)
	assert.Empty(t, first.Prev)

	second, err := f.app.ListProfiles(f.ctx, f.owner, first.Next, 2)
	require.NoError(t, err)
	assert.Equal(t, want[2:4], ids(second))
	assert.NotEmpty(t, second.Prev)

	third, err := f.app.ListProfiles(f.ctx, f.owner, second.Next, 2)
	require.NoError(t, err)
	assert.Equal(t, want[4:5], ids(third))
	assert.Empty(t, third.Next)

	back, err := f.app.ListProfiles(f.ctx, f.owner, third.Prev, 2)
	require.NoError(t, err)
	assert.Equal(t, want[2:4], ids(back))
	assert.NotEmpty(t, back.Prev)
	assert.NotEmpty(t, back.Next)

	start, err := f.app.ListProfiles(f.ctx, f.owner, back.Prev, 2)
	require.NoError(t, err)
	assert.Equal(t, want[0:2], ids(start))
	assert.Empty(t, start.Prev)
}

func TestListProfiles_RejectsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.app.ListProfiles(f.ctx, f.owner, "", 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.app.ListProfiles(f.ctx, f.owner, "", 101)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.app.ListProfiles(f.ctx, f.owner, "garbage.token", 10)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
