package workspace_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"linkbio/core/bio/domain"
	"linkbio/core/workspace"
	"linkbio/modules/api/bioapi"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

type fakeBackend struct {
	mu      sync.Mutex
	profile bioapi.Profile
	blocks  []bioapi.Block

	// moveGate, when set, holds MoveBlock until it is closed.
	moveGate chan struct{}
	moveErr  error
	moves    atomic.Int32

	collGate chan struct{}
	saves    atomic.Int32
}

func newFakeBackend(n int) *fakeBackend {
	f := &fakeBackend{profile: bioapi.Profile{ID: uuid.Must(uuid.NewV7()), Handle: "ada"}}
	for i := range n {
		f.blocks = append(f.blocks, bioapi.Block{ID: uuid.Must(uuid.NewV7()), ProfileID: f.profile.ID, Kind: "text", DisplayOrder: i + 1})
	}
	return f
}

func (f *fakeBackend) GetProfile(_ context.Context, id uuid.UUID) (*bioapi.Profile, error) {
	if id != f.profile.ID {
		return nil, domain.ErrNotFound
	}
	p := f.profile
	return &p, nil
}

func (f *fakeBackend) ListPages(context.Context, uuid.UUID) ([]bioapi.Page, error) {
	return []bioapi.Page{}, nil
}

func (f *fakeBackend) ListBlocks(context.Context, uuid.UUID, *uuid.UUID) ([]bioapi.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bioapi.Block(nil), f.blocks...), nil
}

func (f *fakeBackend) MoveBlock(ctx context.Context, _ uuid.UUID, blockID uuid.UUID, _, to int) ([]bioapi.Block, error) {
	f.moves.Add(1)
	if f.moveGate != nil {
		select {
		case <-f.moveGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.moveErr != nil {
		return nil, f.moveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	from := -1
	for i, b := range f.blocks {
		if b.ID == blockID {
			from = i
		}
	}
	f.blocks = domain.Splice(f.blocks, from, to-1)
	for i := range f.blocks {
		f.blocks[i].DisplayOrder = i + 1
	}
	return append([]bioapi.Block(nil), f.blocks...), nil
}

func (f *fakeBackend) UpdateCollection(_ context.Context, profileID, id uuid.UUID, body bioapi.CollectionBody) (*bioapi.Collection, error) {
	f.saves.Add(1)
	if f.collGate != nil {
		<-f.collGate
	}
	return &bioapi.Collection{ID: id, ProfileID: profileID, Name: body.Name, Items: body.Items}, nil
}

func (f *fakeBackend) CheckHandle(context.Context, string) (bool, error) { return true, nil }

func ids(blocks []bioapi.Block) []uuid.UUID {
	out := make([]uuid.UUID, len(blocks))
	for i, b := range blocks {
		out[i] = b.ID
	}
	return out
}

func loaded(t *testing.T, f *fakeBackend) *workspace.Workspace {
	t.Helper()
	ws := workspace.New(f)
	require.NoError(t, ws.SwitchProfile(context.Background(), f.profile.ID))
	_, err := ws.RefreshBlocks(context.Background(), nil)
	require.NoError(t, err)
	return ws
}

func TestWorkspaceRequiresProfile(t *testing.T) {
	ws := workspace.New(newFakeBackend(0))
	_, err := ws.RefreshBlocks(context.Background(), nil)
	assert.ErrorIs(t, err, workspace.ErrNoProfile)
}

func TestMoveBlockOptimistic(t *testing.T) {
	f := newFakeBackend(3)
	before := ids(f.blocks)
	f.moveGate = make(chan struct{})
	ws := loaded(t, f)

	done := make(chan error, 1)
	go func() {
		_, err := ws.MoveBlock(context.Background(), nil, before[0], 3)
		done <- err
	}()

	// The local splice is visible while the server call is pending.
	require.Eventually(t, func() bool {
		view, _ := ws.Blocks(nil)
		return len(view) == 3 && view[2].ID == before[0]
	}, time.Second, 5*time.Millisecond)
	view, _ := ws.Blocks(nil)
	for i, b := range view {
		assert.Equal(t, i+1, b.DisplayOrder)
	}

	close(f.moveGate)
	require.NoError(t, <-done)

	view, _ = ws.Blocks(nil)
	assert.Equal(t, []uuid.UUID{before[1], before[2], before[0]}, ids(view))
}

func TestMoveBlockRollsBack(t *testing.T) {
	f := newFakeBackend(3)
	before := ids(f.blocks)
	f.moveErr = domain.ErrTransient
	ws := loaded(t, f)

	_, err := ws.MoveBlock(context.Background(), nil, before[2], 1)
	require.ErrorIs(t, err, domain.ErrTransient)

	view, ok := ws.Blocks(nil)
	require.True(t, ok)
	assert.Equal(t, before, ids(view), "view returns to the last confirmed order")
}

func TestMoveBlockLocalChecks(t *testing.T) {
	f := newFakeBackend(2)
	ws := loaded(t, f)

	_, err := ws.MoveBlock(context.Background(), nil, f.blocks[0].ID, 5)
	var fe *domain.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "toIndex", fe.Field)

	_, err = ws.MoveBlock(context.Background(), nil, uuid.Must(uuid.NewV7()), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	page := uuid.Must(uuid.NewV7())
	_, err = ws.MoveBlock(context.Background(), &page, f.blocks[0].ID, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound, "placement was never loaded")
	assert.Zero(t, f.moves.Load())
}

func TestSaveCollectionJoinsInFlight(t *testing.T) {
	f := newFakeBackend(0)
	f.collGate = make(chan struct{})
	ws := loaded(t, f)
	id := uuid.Must(uuid.NewV7())

	var wg sync.WaitGroup
	results := make([]*bioapi.Collection, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := ws.SaveCollection(context.Background(), id, bioapi.CollectionBody{Name: "Desk"})
			assert.NoError(t, err)
			results[i] = c
		}()
	}

	require.Eventually(t, func() bool { return ws.Guard().InFlight("collection:" + id.String()) }, time.Second, time.Millisecond)
	// let the second caller arrive while the first is blocked
	time.Sleep(20 * time.Millisecond)
	close(f.collGate)
	wg.Wait()

	assert.Equal(t, int32(1), f.saves.Load())
	assert.False(t, ws.Guard().InFlight("collection:"+id.String()))
	require.NotNil(t, results[0])
	assert.Equal(t, results[0].ID, results[1].ID)
}

func TestGuardCallerCanStopWaiting(t *testing.T) {
	g := workspace.NewGuard()
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_, _, _ = workspace.Guarded(context.Background(), g, "k", func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, shared, err := workspace.Guarded(ctx, g, "k", func(context.Context) (int, error) {
		return 2, errors.New("must not run")
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, shared)

	close(release)
	require.Eventually(t, func() bool { return !g.InFlight("k") }, time.Second, time.Millisecond)
}
