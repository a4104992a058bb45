// Copyright 2025 Nguyen Nhat Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package worker

import (
	"context"
	"log/slog"
	"sync"
)

type Worker[Job any] func(context.Context, Job)

// BlockingPool spawns size workers that drain jobs and blocks until the
// channel is closed or ctx is cancelled.
//
// The caller must ensure that jobs eventually gets closed or ctx gets cancelled.
//
// A panicking job is logged and the worker moves on to the next job, so one
// bad job cannot stall the pool.
func BlockingPool[Job any](ctx context.Context, size int, jobs <-chan Job, worker Worker[Job]) {
	if size <= 0 {
		size = 1
	}
	wg := sync.WaitGroup{}
	for range size {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-jobs:
					if !ok {
						return
					}
					run(ctx, worker, job)
				}
			}
		})
	}

	wg.Wait()
}

// wg.Go requires that func does not panic
func run[Job any](ctx context.Context, worker Worker[Job], job Job) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "worker panic", slog.Any("error", rec))
		}
	}()
	worker(ctx, job)
}

// Feed sends items on a new channel and closes it when done or when ctx ends.
func Feed[Job any](ctx context.Context, items []Job) <-chan Job {
	ch := make(chan Job)
	go func() {
		defer close(ch)
		for _, it := range items {
			select {
			case <-ctx.Done():
				return
			case ch <- it:
			}
		}
	}()
	return ch
}
