package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"linkbio/modules/clock"
	"linkbio/modules/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindow_LimitsWithinWindow(t *testing.T) {
	clk := clock.NewStepClock(time.Unix(600, 0), 0)
	limiter := ratelimit.SlidingWindowFactory(clk, ratelimit.NewMemoryCounter(clk), "test")(3, time.Minute)
	ctx := context.Background()

	for i, wantRemaining := range []int64{2, 1, 0} {
		res, err := limiter.Allow(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, wantRemaining, res.Remaining)
		assert.Zero(t, res.RetryAfter)
	}

	res, err := limiter.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Minute, res.RetryAfter)

	// Other keys have their own budget.
	res, err = limiter.Allow(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestSlidingWindow_PreviousWindowDecays(t *testing.T) {
	clk := clock.NewStepClock(time.Unix(600, 0), 0)
	limiter := ratelimit.SlidingWindowFactory(clk, ratelimit.NewMemoryCounter(clk), "test")(2, time.Minute)
	ctx := context.Background()

	for range 2 {
		res, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	// Halfway into the next window the previous one still weighs 50%.
	clk.Advance(90 * time.Second)
	res, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	res, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// Two windows later everything has decayed.
	clk.Advance(2 * time.Minute)
	res, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryCounter_Expires(t *testing.T) {
	clk := clock.NewStepClock(time.Unix(0, 0), 0)
	c := ratelimit.NewMemoryCounter(clk)
	ctx := context.Background()

	n, err := c.Incr(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, _ = c.Incr(ctx, "k", time.Second)
	assert.Equal(t, int64(2), n)

	clk.Advance(time.Second)
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, got)

	n, _ = c.Incr(ctx, "k", time.Second)
	assert.Equal(t, int64(1), n)
}
