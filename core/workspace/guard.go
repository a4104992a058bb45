// Copyright 2025 Nhat-Nguyen Nguyen
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

package workspace

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Guard suppresses duplicate actions: a call for a key that is already in
// flight joins the running one and receives its result instead of issuing a
// second write.
type Guard struct {
	group singleflight.Group

	mu       sync.Mutex
	inFlight map[string]int
}

func NewGuard() *Guard {
	return &Guard{inFlight: map[string]int{}}
}

// InFlight reports whether an action for key is running, e.g. to disable a button.
func (g *Guard) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight[key] > 0
}

func (g *Guard) enter(key string) {
	g.mu.Lock()
	g.inFlight[key]++
	g.mu.Unlock()
}

func (g *Guard) leave(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight[key]--; g.inFlight[key] <= 0 {
		delete(g.inFlight, key)
	}
}

// Guarded runs fn once per key at a time. shared reports whether the result
// came from a call started by someone else. A caller whose ctx ends stops
// waiting; the action itself keeps running for the others.
func Guarded[T any](ctx context.Context, g *Guard, key string, fn func(ctx context.Context) (T, error)) (v T, shared bool, err error) {
	ch := g.group.DoChan(key, func() (any, error) {
		g.enter(key)
		defer g.leave(key)
		// detached so one impatient caller does not fail the others
		return fn(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return v, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return v, res.Shared, res.Err
		}
		v, _ = res.Val.(T)
		return v, res.Shared, nil
	}
}
