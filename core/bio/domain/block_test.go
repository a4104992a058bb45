package domain_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"linkbio/core/bio/domain"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestAddBlock_AppendsAndDeleteRenumbers(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	l1 := f.link(p.ID, "one")
	l2 := f.link(p.ID, "two")

	b1, err := f.app.AddBlock(f.ctx, f.owner, p.ID, domain.AddBlockParams{Kind: domain.BlockKindLink, ContentID: &l1.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, b1.DisplayOrder)
	assert.Nil(t, b1.PageID)

	b2, err := f.app.AddBlock(f.ctx, f.owner, p.ID, domain.AddBlockParams{Kind: domain.BlockKindLink, ContentID: &l2.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, b2.DisplayOrder)

	require.NoError(t, f.app.DeleteBlock(f.ctx, f.owner, p.ID, b1.ID))

	blocks, err := f.app.ListBlocks(f.ctx, p.ID, nil)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, b2.ID, blocks[0].ID)
	assert.Equal(t, 1, blocks[0].DisplayOrder)
}

func TestDeleteBlock_ClosesGap(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	page := f.page(p.ID, "Main")
	ids := f.textBlocks(p.ID, &page.ID, "A", "B", "C", "D")

	require.NoError(t, f.app.DeleteBlock(f.ctx, f.owner, p.ID, ids["B"]))

	blocks, err := f.app.ListBlocks(f.ctx, p.ID, &page.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "D"}, labels(t, blocks))

	err = f.app.DeleteBlock(f.ctx, f.owner, p.ID, ids["B"])
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddBlock_Validation(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	l := f.link(p.ID, "one")
	missing := uuid.Must(uuid.NewV7())

	tests := []struct {
		name   string
		params domain.AddBlockParams
		want   error
	}{
		{"unknown kind", domain.AddBlockParams{Kind: "poll", ContentID: &l.ID}, domain.ErrValidation},
		{"content kind without ref", domain.AddBlockParams{Kind: domain.BlockKindLink}, domain.ErrValidation},
		{"ref and payload", domain.AddBlockParams{Kind: domain.BlockKindLink, ContentID: &l.ID, Payload: &domain.Payload{Text: &domain.TextPayload{HTML: "x"}}}, domain.ErrValidation},
		{"inline kind with ref", domain.AddBlockParams{Kind: domain.BlockKindText, ContentID: &l.ID}, domain.ErrValidation},
		{"payload kind mismatch", domain.AddBlockParams{Kind: domain.BlockKindImage, Payload: &domain.Payload{Text: &domain.TextPayload{HTML: "x"}}}, domain.ErrValidation},
		{"two payload variants", domain.AddBlockParams{Kind: domain.BlockKindText, Payload: &domain.Payload{
			Text:  &domain.TextPayload{HTML: "x"},
			Image: &domain.ImagePayload{URL: "https://example.com/a.png"},
		}}, domain.ErrValidation},
		{"unsupported video", domain.AddBlockParams{Kind: domain.BlockKindVideo, Payload: &domain.Payload{Video: &domain.VideoPayload{URL: "https://example.com/v/1"}}}, domain.ErrValidation},
		{"missing content", domain.AddBlockParams{Kind: domain.BlockKindLink, ContentID: &missing}, domain.ErrNotFound},
		{"wrong kind for content", domain.AddBlockParams{Kind: domain.BlockKindRecommendation, ContentID: &l.ID}, domain.ErrNotFound},
		{"missing page", domain.AddBlockParams{PageID: &missing, Kind: domain.BlockKindLink, ContentID: &l.ID}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.app.AddBlock(f.ctx, f.owner, p.ID, tt.params)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	blocks, err := f.app.ListBlocks(f.ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestAddBlock_VideoIsResolved(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")

	b, err := f.app.AddBlock(f.ctx, f.owner, p.ID, domain.AddBlockParams{
		Kind:    domain.BlockKindVideo,
		Payload: &domain.Payload{Video: &domain.VideoPayload{URL: "https://youtu.be/dQw4w9WgXcQ"}},
	})
	require.NoError(t, err)
	require.NotNil(t, b.Payload.Video)
	assert.Equal(t, "youtube", b.Payload.Video.Provider)
	assert.Equal(t, "dQw4w9WgXcQ", b.Payload.Video.ExternalID)
}

func TestAddBlock_OtherOwnerSeesNotFound(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")

	_, err := f.app.AddBlock(f.ctx, uuid.Must(uuid.NewV7()), p.ID, textBlock(nil, "x"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListBlocks_ForeignOrUnknownPage(t *testing.T) {
	f := newFixture(t)
	alice := f.profile("alice")
	bob := f.profile("bob")
	bobPage := f.page(bob.ID, "Main")
	f.textBlocks(bob.ID, &bobPage.ID, "A")

	_, err := f.app.ListBlocks(f.ctx, alice.ID, &bobPage.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "a page of another profile")

	unknown := uuid.Must(uuid.NewV7())
	_, err = f.app.ListBlocks(f.ctx, alice.ID, &unknown)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	blocks, err := f.app.ListBlocks(f.ctx, bob.ID, &bobPage.ID)
	require.NoError(t, err)
	assert.Len(t, blocks, 1)
}

func TestMoveBlock_RemoveThenReinsert(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	page := f.page(p.ID, "Main")
	ids := f.textBlocks(p.ID, &page.ID, "A", "B", "C", "D", "E")

	got, err := f.app.MoveBlock(f.ctx, f.owner, p.ID, ids["C"], 2, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "D", "C", "E"}, labels(t, got))

	listed, err := f.app.ListBlocks(f.ctx, p.ID, &page.ID)
	require.NoError(t, err)
	assert.Equal(t, got, listed, "returned list is the committed order")
}

func TestMoveBlock_FirstToLast(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	page := f.page(p.ID, "Main")
	ids := f.textBlocks(p.ID, &page.ID, "A", "B", "C")

	got, err := f.app.MoveBlock(f.ctx, f.owner, p.ID, ids["A"], 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A"}, labels(t, got))

	got, err = f.app.MoveBlock(f.ctx, f.owner, p.ID, ids["A"], 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, labels(t, got))
}

func TestMoveBlock_Bounds(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	ids := f.textBlocks(p.ID, nil, "A", "B", "C")

	for _, tc := range []struct {
		from, to int
		field    string
	}{
		{1, 0, "toIndex"},
		{1, 4, "toIndex"},
		{0, 2, "fromIndex"},
		{9, 2, "fromIndex"},
	} {
		_, err := f.app.MoveBlock(f.ctx, f.owner, p.ID, ids["A"], tc.from, tc.to)
		var fe *domain.FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, tc.field, fe.Field)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}

	_, err := f.app.MoveBlock(f.ctx, f.owner, p.ID, uuid.Must(uuid.NewV7()), 1, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.app.MoveBlock(f.ctx, uuid.Must(uuid.NewV7()), p.ID, ids["A"], 1, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMoveBlock_StaleFromIndexMovesNamedBlock(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	ids := f.textBlocks(p.ID, nil, "A", "B", "C", "D")

	// The caller thinks D is second; D is fourth.
	got, err := f.app.MoveBlock(f.ctx, f.owner, p.ID, ids["D"], 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "A", "B", "C"}, labels(t, got))
}

func TestMoveBlock_SamePositionWritesNothing(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	ids := f.textBlocks(p.ID, nil, "A", "B", "C")
	before := len(f.cache.invalidations())

	f.store.InjectFault("ApplyOrder", errors.New("no write expected"))
	got, err := f.app.MoveBlock(f.ctx, f.owner, p.ID, ids["B"], 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, labels(t, got))
	assert.Len(t, f.cache.invalidations(), before, "nothing changed, nothing to invalidate")
}

func TestMoveBlock_FailureLeavesPriorOrder(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	ids := f.textBlocks(p.ID, nil, "A", "B", "C")

	// First list succeeds, the re-read after the rewrite fails.
	f.store.InjectFault("ListBlocks", nil, errors.New("connection reset"))
	_, err := f.app.MoveBlock(f.ctx, f.owner, p.ID, ids["A"], 1, 3)
	assert.ErrorIs(t, err, domain.ErrUnhandled)

	blocks, err := f.app.ListBlocks(f.ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, labels(t, blocks))
}

func TestMoveBlock_ConcurrentCallersKeepOrderDense(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	page := f.page(p.ID, "Main")
	ids := f.textBlocks(p.ID, &page.ID, "A", "B", "C", "D", "E", "F")
	all := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		all = append(all, id)
	}

	var g errgroup.Group
	for w := range 8 {
		g.Go(func() error {
			r := rand.New(rand.NewPCG(uint64(w), 42))
			for range 25 {
				id := all[r.IntN(len(all))]
				if _, err := f.app.MoveBlock(context.Background(), f.owner, p.ID, id, 1, 1+r.IntN(len(all))); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	blocks, err := f.app.ListBlocks(f.ctx, p.ID, &page.ID)
	require.NoError(t, err)
	require.Len(t, blocks, len(all))
	assert.True(t, domain.IsDense(blocks))
	seen := map[uuid.UUID]bool{}
	for _, b := range blocks {
		seen[b.ID] = true
	}
	assert.Len(t, seen, len(all))
}

// TestBlockOperations_MatchModel drives random adds, moves and deletes and
// compares every committed state against a plain slice model.
func TestBlockOperations_MatchModel(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	page := f.page(p.ID, "Main")
	r := rand.New(rand.NewPCG(7, 7))

	var model []uuid.UUID
	for step := range 300 {
		switch op := r.IntN(3); {
		case op == 0 || len(model) < 2:
			b, err := f.app.AddBlock(f.ctx, f.owner, p.ID, textBlock(&page.ID, "x"))
			require.NoError(t, err)
			model = append(model, b.ID)
		case op == 1:
			from := r.IntN(len(model))
			to := r.IntN(len(model))
			_, err := f.app.MoveBlock(f.ctx, f.owner, p.ID, model[from], from+1, to+1)
			require.NoError(t, err)
			model = domain.Splice(model, from, to)
		default:
			i := r.IntN(len(model))
			require.NoError(t, f.app.DeleteBlock(f.ctx, f.owner, p.ID, model[i]))
			model = append(model[:i:i], model[i+1:]...)
		}

		blocks, err := f.app.ListBlocks(f.ctx, p.ID, &page.ID)
		require.NoError(t, err)
		require.True(t, domain.IsDense(blocks), "step %d", step)
		got := make([]uuid.UUID, len(blocks))
		for i, b := range blocks {
			got[i] = b.ID
		}
		require.Equal(t, model, got, "step %d", step)
	}
}

func TestNormalizePlacement(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	ids := f.textBlocks(p.ID, nil, "A", "B", "C")
	placement := domain.Placement{ProfileID: p.ID}

	require.NoError(t, f.store.WithTx(f.ctx, func(ctx context.Context, tx domain.WriteTx) error {
		return tx.ApplyOrder(ctx, placement, []domain.OrderChange{
			{BlockID: ids["B"], Order: 5},
			{BlockID: ids["C"], Order: 9},
		})
	}))

	pending, err := f.app.UnnormalizedPlacements(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, p.ID, pending[0].ProfileID)
	assert.Nil(t, pending[0].PageID)

	changed, err := f.app.NormalizePlacement(f.ctx, placement)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	blocks, err := f.app.ListBlocks(f.ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, labels(t, blocks))

	changed, err = f.app.NormalizePlacement(f.ctx, placement)
	require.NoError(t, err)
	assert.Zero(t, changed)

	pending, err = f.app.UnnormalizedPlacements(f.ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAddBlock_HealsGapsBeforeAppend(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	ids := f.textBlocks(p.ID, nil, "A", "B")

	require.NoError(t, f.store.WithTx(f.ctx, func(ctx context.Context, tx domain.WriteTx) error {
		return tx.ApplyOrder(ctx, domain.Placement{ProfileID: p.ID}, []domain.OrderChange{{BlockID: ids["B"], Order: 4}})
	}))

	b, err := f.app.AddBlock(f.ctx, f.owner, p.ID, textBlock(nil, "C"))
	require.NoError(t, err)
	assert.Equal(t, 3, b.DisplayOrder)

	blocks, err := f.app.ListBlocks(f.ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, labels(t, blocks))
}

func TestMutations_AreNotRetried(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")

	f.store.InjectFault("WithTx", domain.ErrTransient)
	_, err := f.app.AddBlock(f.ctx, f.owner, p.ID, textBlock(nil, "A"))
	assert.ErrorIs(t, err, domain.ErrTransient)

	blocks, err := f.app.ListBlocks(f.ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestReads_RetryTransientOnce(t *testing.T) {
	f := newFixture(t)
	p := f.profile("alice")
	f.textBlocks(p.ID, nil, "A")

	f.store.InjectFault("ListBlocks", domain.ErrTransient)
	blocks, err := f.app.ListBlocks(f.ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Len(t, blocks, 1)

	f.store.InjectFault("ListBlocks", domain.ErrTransient, domain.ErrTransient)
	_, err = f.app.ListBlocks(f.ctx, p.ID, nil)
	assert.ErrorIs(t, err, domain.ErrTransient)

	f.store.InjectFault("ListBlocks", domain.ErrNotFound)
	_, err = f.app.ListBlocks(f.ctx, p.ID, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound, "only transient errors are retried")
}
