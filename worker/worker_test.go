package worker

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBlockingPool_ProcessesEveryJob(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i + 1
	}

	var sum atomic.Int64
	BlockingPool(context.Background(), 4, Feed(context.Background(), items), func(_ context.Context, n int) {
		sum.Add(int64(n))
	})
	assert.Equal(t, int64(5050), sum.Load())
}

func TestBlockingPool_SurvivesPanics(t *testing.T) {
	var done atomic.Int32
	BlockingPool(context.Background(), 1, Feed(context.Background(), []int{1, 2, 3}), func(_ context.Context, n int) {
		if n == 2 {
			panic("boom")
		}
		done.Add(1)
	})
	assert.Equal(t, int32(2), done.Load())
}

func TestBlockingPool_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	jobs := make(chan int)

	var seen atomic.Int32
	go func() {
		jobs <- 1
		cancel()
	}()
	BlockingPool(ctx, 2, jobs, func(context.Context, int) { seen.Add(1) })
	assert.Equal(t, int32(1), seen.Load())
}

func TestFeed_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := Feed(ctx, []int{1, 2, 3})
	assert.Equal(t, 1, <-ch)
	cancel()
	for range ch {
	}
}

func Benchmark_BlockingPool_SHA256(b *testing.B) {
	payload := make([]byte, 1024)
	worker := func(_ context.Context, p []byte) { _ = sha256.Sum256(p) }

	for _, size := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("pool_size=%d", size), func(b *testing.B) {
			b.SetBytes(int64(len(payload)))
			b.ReportAllocs()
			items := make([][]byte, b.N)
			for i := range items {
				items[i] = payload
			}
			b.ResetTimer()
			BlockingPool(context.Background(), size, Feed(context.Background(), items), worker)
		})
	}
}
