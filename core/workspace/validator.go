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
	"errors"
	"sync"
	"time"
)

var ErrCheckTimeout = errors.New("availability check timed out")

// HandleChecker asks the server whether a handle is free.
type HandleChecker interface {
	CheckHandle(ctx context.Context, handle string) (bool, error)
}

// HandleResult is the outcome of one check. Err is set when the check
// failed; Available is then false.
type HandleResult struct {
	Handle    string
	Available bool
	Err       error
}

type ValidatorOption func(*HandleValidator)

// WithDebounce sets how long input must stay unchanged before a check is sent.
func WithDebounce(d time.Duration) ValidatorOption {
	return func(v *HandleValidator) { v.debounce = d }
}

// WithCheckTimeout bounds a single check; on expiry the handle is reported unavailable.
func WithCheckTimeout(d time.Duration) ValidatorOption {
	return func(v *HandleValidator) { v.timeout = d }
}

// HandleValidator runs debounced, cancellable availability checks. Each
// Check supersedes the previous one, and only the most recent check may
// publish its result.
type HandleValidator struct {
	checker  HandleChecker
	publish  func(HandleResult)
	debounce time.Duration
	timeout  time.Duration

	base   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	latest *HandleResult
	closed bool
}

// NewHandleValidator calls publish with the result of the latest check.
// publish runs with the validator locked and must not call back into it.
func NewHandleValidator(checker HandleChecker, publish func(HandleResult), opts ...ValidatorOption) *HandleValidator {
	base, stop := context.WithCancel(context.Background())
	v := &HandleValidator{
		checker:  checker,
		publish:  publish,
		debounce: 300 * time.Millisecond,
		timeout:  3 * time.Second,
		base:     base,
		stop:     stop,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Check starts checking handle after the debounce delay and cancels the
// check in flight, if any. It waits only for a publish in progress.
func (v *HandleValidator) Check(handle string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	if v.cancel != nil {
		v.cancel()
	}
	v.seq++
	ctx, cancel := context.WithCancel(v.base)
	v.cancel = cancel
	v.latest = nil

	v.wg.Add(1)
	go v.run(ctx, v.seq, handle)
}

// Latest returns the published result of the most recent check, if it finished.
func (v *HandleValidator) Latest() (HandleResult, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.latest == nil {
		return HandleResult{}, false
	}
	return *v.latest, true
}

func (v *HandleValidator) run(ctx context.Context, seq uint64, handle string) {
	defer v.wg.Done()

	if v.debounce > 0 {
		t := time.NewTimer(v.debounce)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}

	cctx, cancel := context.WithTimeout(ctx, v.timeout)
	available, err := v.checker.CheckHandle(cctx, handle)
	timedOut := errors.Is(cctx.Err(), context.DeadlineExceeded)
	cancel()

	if ctx.Err() != nil {
		// superseded or closed
		return
	}
	res := HandleResult{Handle: handle, Available: available && err == nil}
	switch {
	case timedOut:
		res = HandleResult{Handle: handle, Err: ErrCheckTimeout}
	case err != nil:
		res.Err = err
	}

	// a Check cannot supersede res between the seq check and publish
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || seq != v.seq {
		return
	}
	v.latest = &res
	if v.publish != nil {
		v.publish(res)
	}
}

// Close cancels every pending check and waits for them to return.
func (v *HandleValidator) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	v.stop()
	v.wg.Wait()
}
