package maintenance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"linkbio/core/bio/adapters/memory"
	"linkbio/core/bio/domain"
	"linkbio/core/bio/maintenance"
	"linkbio/modules/db/redis/locking"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// seedGaps creates a profile with three unassigned blocks at orders 2, 4, 7.
func seedGaps(t *testing.T, ctx context.Context, store *memory.Store, app *domain.Application) domain.Placement {
	t.Helper()
	owner := uuid.Must(uuid.NewV7())
	prof, err := app.CreateProfile(ctx, owner, domain.CreateProfileParams{Handle: "gappy", DisplayName: "Gappy"})
	require.NoError(t, err)

	var ids []uuid.UUID
	for _, html := range []string{"a", "b", "c"} {
		b, err := app.AddBlock(ctx, owner, prof.ID, domain.AddBlockParams{
			Kind:    domain.BlockKindText,
			Payload: &domain.Payload{Text: &domain.TextPayload{HTML: html}},
		})
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	placement := domain.Placement{ProfileID: prof.ID}
	err = store.WithTx(ctx, func(ctx context.Context, tx domain.WriteTx) error {
		return tx.ApplyOrder(ctx, placement, []domain.OrderChange{
			{BlockID: ids[0], Order: 2},
			{BlockID: ids[1], Order: 4},
			{BlockID: ids[2], Order: 7},
		})
	})
	require.NoError(t, err)
	return placement
}

func TestSweeperRunOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	app := domain.NewApp(store, store)
	placement := seedGaps(t, ctx, store, app)

	s := maintenance.NewSweeper(app, maintenance.Config{Batch: 10, Concurrency: 2})
	report, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, maintenance.Report{Scanned: 1, Normalized: 1}, report)

	blocks, err := store.ListBlocks(ctx, placement)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	for i, b := range blocks {
		assert.Equal(t, i+1, b.DisplayOrder)
	}

	// Second pass finds nothing.
	report, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, maintenance.Report{}, report)
}

func TestSweeperCountsFailures(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	app := domain.NewApp(store, store)
	seedGaps(t, ctx, store, app)

	store.InjectFault("ApplyOrder", errors.New("disk on fire"))

	s := maintenance.NewSweeper(app, maintenance.Config{Batch: 10, Concurrency: 1})
	report, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Normalized)
}

type stubExecutor struct {
	err   error
	calls []locking.LockConfiguration
}

func (e *stubExecutor) Execute(ctx context.Context, cfg locking.LockConfiguration, task locking.TaskFunc) error {
	e.calls = append(e.calls, cfg)
	if e.err != nil {
		return e.err
	}
	return task(ctx)
}

func TestSweeperUnderLock(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	app := domain.NewApp(store, store)
	seedGaps(t, ctx, store, app)

	t.Run("held elsewhere", func(t *testing.T) {
		exec := &stubExecutor{err: locking.ErrLockNotAcquired}
		s := maintenance.NewSweeper(app, maintenance.Config{LockAtMostFor: time.Minute}, maintenance.WithExecutor(exec))

		report, err := s.RunOnce(ctx)
		require.NoError(t, err)
		assert.True(t, report.Skipped)
		require.Len(t, exec.calls, 1)
		assert.Equal(t, time.Minute, exec.calls[0].LockAtMostFor)
	})

	t.Run("acquired", func(t *testing.T) {
		exec := &stubExecutor{}
		s := maintenance.NewSweeper(app, maintenance.Config{}, maintenance.WithExecutor(exec))

		report, err := s.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Normalized)
	})

	t.Run("lock error", func(t *testing.T) {
		exec := &stubExecutor{err: errors.New("redis down")}
		s := maintenance.NewSweeper(app, maintenance.Config{}, maintenance.WithExecutor(exec))

		_, err := s.RunOnce(ctx)
		require.Error(t, err)
	})
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	store := memory.New()
	app := domain.NewApp(store, store)

	ctx, cancel := context.WithCancel(context.Background())
	s := maintenance.NewSweeper(app, maintenance.Config{Interval: 5 * time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
