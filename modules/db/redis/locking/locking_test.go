package locking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"linkbio/modules/db/redis/locking"

	"github.com/redis/rueidis/rueidislock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeLocker grants each name to one holder at a time.
type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: map[string]bool{}} }

func (f *fakeLocker) acquire(ctx context.Context, name string) (context.Context, context.CancelFunc) {
	f.held[name] = true
	lockCtx, cancel := context.WithCancel(ctx)
	return lockCtx, func() {
		cancel()
		f.mu.Lock()
		delete(f.held, name)
		f.mu.Unlock()
	}
}

func (f *fakeLocker) TryWithContext(ctx context.Context, name string) (context.Context, context.CancelFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[name] {
		return nil, nil, rueidislock.ErrNotLocked
	}
	lockCtx, cancel := f.acquire(ctx, name)
	return lockCtx, cancel, nil
}

func (f *fakeLocker) WithContext(ctx context.Context, name string) (context.Context, context.CancelFunc, error) {
	for {
		lockCtx, cancel, err := f.TryWithContext(ctx, name)
		if err == nil {
			return lockCtx, cancel, nil
		}
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func TestExecute_RunsTaskUnderPrefixedLock(t *testing.T) {
	locker := newFakeLocker()
	exec := locking.NewLockingTaskExecutor(locker, locking.WithNamePrefix("linkbio:"))

	ran := false
	err := exec.Execute(context.Background(), locking.LockConfiguration{Name: "sweep"}, func(ctx context.Context) error {
		locker.mu.Lock()
		defer locker.mu.Unlock()
		ran = locker.held["linkbio:sweep"]
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Empty(t, locker.held)
}

func TestExecute_TryOnceReportsHeldLock(t *testing.T) {
	locker := newFakeLocker()
	exec := locking.NewLockingTaskExecutor(locker)
	cfg := locking.LockConfiguration{Name: "sweep"}

	err := exec.Execute(context.Background(), cfg, func(ctx context.Context) error {
		inner := exec.Execute(ctx, cfg, func(context.Context) error { return nil })
		assert.ErrorIs(t, inner, locking.ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)
}

func TestExecute_WaitTimesOut(t *testing.T) {
	locker := newFakeLocker()
	holder := locking.NewLockingTaskExecutor(locker)
	waiter := locking.NewLockingTaskExecutor(locker,
		locking.WithWaitForLock(true),
		locking.WithAcquireTimeout(10*time.Millisecond),
	)
	cfg := locking.LockConfiguration{Name: "sweep"}

	err := holder.Execute(context.Background(), cfg, func(ctx context.Context) error {
		return waiter.Execute(ctx, cfg, func(context.Context) error { return nil })
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecute_TaskErrorAndDeadline(t *testing.T) {
	exec := locking.NewLockingTaskExecutor(newFakeLocker())
	boom := errors.New("boom")

	err := exec.Execute(context.Background(), locking.LockConfiguration{Name: "a"}, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	err = exec.Execute(context.Background(), locking.LockConfiguration{Name: "b", LockAtMostFor: 5 * time.Millisecond}, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecute_InvalidConfiguration(t *testing.T) {
	exec := locking.NewLockingTaskExecutor(newFakeLocker())
	noop := func(context.Context) error { return nil }

	for _, cfg := range []locking.LockConfiguration{
		{},
		{Name: "x", LockAtMostFor: -time.Second},
		{Name: "x", LockAtMostFor: time.Second, LockAtLeastFor: 2 * time.Second},
	} {
		assert.ErrorIs(t, exec.Execute(context.Background(), cfg, noop), locking.ErrInvalidConfiguration)
	}
	assert.Error(t, exec.Execute(context.Background(), locking.LockConfiguration{Name: "x"}, nil))
}
