package workspace_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"linkbio/core/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkerFunc func(ctx context.Context, handle string) (bool, error)

func (f checkerFunc) CheckHandle(ctx context.Context, handle string) (bool, error) {
	return f(ctx, handle)
}

type recorder struct {
	mu  sync.Mutex
	got []workspace.HandleResult
}

func (r *recorder) publish(res workspace.HandleResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, res)
}

func (r *recorder) results() []workspace.HandleResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]workspace.HandleResult(nil), r.got...)
}

func TestValidatorDebouncesInput(t *testing.T) {
	var calls atomic.Int32
	checker := checkerFunc(func(_ context.Context, handle string) (bool, error) {
		calls.Add(1)
		return handle != "taken", nil
	})
	rec := &recorder{}
	v := workspace.NewHandleValidator(checker, rec.publish, workspace.WithDebounce(30*time.Millisecond))
	defer v.Close()

	for _, h := range []string{"a", "ad", "ada"} {
		v.Check(h)
	}

	require.Eventually(t, func() bool { return len(rec.results()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "only the settled input reaches the server")
	assert.Equal(t, workspace.HandleResult{Handle: "ada", Available: true}, rec.results()[0])

	latest, ok := v.Latest()
	require.True(t, ok)
	assert.Equal(t, "ada", latest.Handle)
}

func TestValidatorDropsSupersededResult(t *testing.T) {
	slow := make(chan struct{})
	checker := checkerFunc(func(ctx context.Context, handle string) (bool, error) {
		if handle == "first" {
			// ignores cancellation to model a response that arrives late
			<-slow
			return true, nil
		}
		return false, nil
	})
	rec := &recorder{}
	v := workspace.NewHandleValidator(checker, rec.publish, workspace.WithDebounce(0))

	v.Check("first")
	time.Sleep(10 * time.Millisecond)
	v.Check("second")

	require.Eventually(t, func() bool { return len(rec.results()) == 1 }, time.Second, 5*time.Millisecond)
	close(slow)
	v.Close()

	got := rec.results()
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Handle)
	assert.False(t, got[0].Available)
}

func TestValidatorTimeoutFailsClosed(t *testing.T) {
	checker := checkerFunc(func(ctx context.Context, _ string) (bool, error) {
		<-ctx.Done()
		return true, ctx.Err()
	})
	rec := &recorder{}
	v := workspace.NewHandleValidator(checker, rec.publish,
		workspace.WithDebounce(0), workspace.WithCheckTimeout(20*time.Millisecond))
	defer v.Close()

	v.Check("ada")
	require.Eventually(t, func() bool { return len(rec.results()) == 1 }, time.Second, 5*time.Millisecond)

	res := rec.results()[0]
	assert.False(t, res.Available)
	assert.ErrorIs(t, res.Err, workspace.ErrCheckTimeout)
}

func TestValidatorReportsCheckerError(t *testing.T) {
	boom := errors.New("boom")
	checker := checkerFunc(func(context.Context, string) (bool, error) { return true, boom })
	rec := &recorder{}
	v := workspace.NewHandleValidator(checker, rec.publish, workspace.WithDebounce(0))
	defer v.Close()

	v.Check("ada")
	require.Eventually(t, func() bool { return len(rec.results()) == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, rec.results()[0].Available)
	assert.ErrorIs(t, rec.results()[0].Err, boom)
}

func TestValidatorCloseCancelsPending(t *testing.T) {
	started := make(chan struct{})
	checker := checkerFunc(func(ctx context.Context, _ string) (bool, error) {
		close(started)
		<-ctx.Done()
		return false, ctx.Err()
	})
	rec := &recorder{}
	v := workspace.NewHandleValidator(checker, rec.publish, workspace.WithDebounce(0), workspace.WithCheckTimeout(time.Minute))

	v.Check("ada")
	<-started
	v.Close()
	v.Check("after-close")

	assert.Empty(t, rec.results())
	_, ok := v.Latest()
	assert.False(t, ok)
}

func TestValidatorCheckWaitsForPublishInProgress(t *testing.T) {
	inPublish := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	rec := &recorder{}
	publish := func(res workspace.HandleResult) {
		once.Do(func() {
			close(inPublish)
			<-release
		})
		rec.publish(res)
	}
	checker := checkerFunc(func(context.Context, string) (bool, error) { return true, nil })
	v := workspace.NewHandleValidator(checker, publish, workspace.WithDebounce(0))
	defer v.Close()

	v.Check("first")
	<-inPublish

	checked := make(chan struct{})
	go func() {
		v.Check("second")
		close(checked)
	}()
	select {
	case <-checked:
		t.Fatal("a newer check was accepted while the previous result was being published")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-checked

	require.Eventually(t, func() bool { return len(rec.results()) == 2 }, time.Second, 5*time.Millisecond)
	got := rec.results()
	assert.Equal(t, "first", got[0].Handle)
	assert.Equal(t, "second", got[1].Handle)
	latest, ok := v.Latest()
	require.True(t, ok)
	assert.Equal(t, "second", latest.Handle)
}
