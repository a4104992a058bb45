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

// Package maintenance renumbers placement groups whose display orders drifted
// from 1..N, e.g. after manual SQL or an import.
package maintenance

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"linkbio/core/bio/domain"
	"linkbio/modules/db/redis/locking"
	"linkbio/modules/telemetry"
	"linkbio/worker"

	"golang.org/x/time/rate"
)

const lockName = "sweep-placements"

type (
	// Normalizer is the slice of the application the sweeper drives.
	Normalizer interface {
		UnnormalizedPlacements(ctx context.Context, limit int) ([]domain.Placement, error)
		NormalizePlacement(ctx context.Context, placement domain.Placement) (int, error)
	}

	// TaskExecutor runs a task under a cluster-wide lock.
	TaskExecutor interface {
		Execute(ctx context.Context, cfg locking.LockConfiguration, task locking.TaskFunc) error
	}

	Config struct {
		Interval       time.Duration `env:"INTERVAL"          envDefault:"5m"`
		Batch          int           `env:"BATCH"             envDefault:"500"`
		Concurrency    int           `env:"CONCURRENCY"       envDefault:"4"`
		RatePerSecond  float64       `env:"RATE"              envDefault:"50"`
		LockAtMostFor  time.Duration `env:"LOCK_AT_MOST_FOR"  envDefault:"2m"`
		LockAtLeastFor time.Duration `env:"LOCK_AT_LEAST_FOR" envDefault:"10s"`
	}

	// Report summarizes one sweep.
	Report struct {
		Scanned    int
		Normalized int
		Failed     int
		// Skipped is set when another node held the lock.
		Skipped bool
	}

	Sweeper struct {
		app     Normalizer
		exec    TaskExecutor
		cfg     Config
		metrics *telemetry.SweepMetrics
	}

	Option func(*Sweeper)
)

// WithExecutor runs sweeps under a distributed lock. Without it sweeps run
// unguarded, which is only correct for a single node.
func WithExecutor(e TaskExecutor) Option {
	return func(s *Sweeper) { s.exec = e }
}

func WithMetrics(m *telemetry.SweepMetrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

func NewSweeper(app Normalizer, cfg Config, opts ...Option) *Sweeper {
	if cfg.Batch <= 0 {
		cfg.Batch = 500
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	s := &Sweeper{app: app, cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RunOnce sweeps a single batch.
func (s *Sweeper) RunOnce(ctx context.Context) (Report, error) {
	var report Report
	task := func(ctx context.Context) error {
		var err error
		report, err = s.sweep(ctx)
		return err
	}

	var err error
	if s.exec == nil {
		err = task(ctx)
	} else {
		err = s.exec.Execute(ctx, locking.LockConfiguration{
			Name:           lockName,
			LockAtMostFor:  s.cfg.LockAtMostFor,
			LockAtLeastFor: s.cfg.LockAtLeastFor,
		}, task)
	}

	switch {
	case errors.Is(err, locking.ErrLockNotAcquired):
		s.metrics.Record(ctx, "skipped", 0, 0)
		return Report{Skipped: true}, nil
	case err != nil:
		s.metrics.Record(ctx, "error", report.Normalized, report.Failed)
		return report, err
	}
	s.metrics.Record(ctx, "ok", report.Normalized, report.Failed)
	return report, nil
}

func (s *Sweeper) sweep(ctx context.Context) (Report, error) {
	placements, err := s.app.UnnormalizedPlacements(ctx, s.cfg.Batch)
	if err != nil {
		return Report{}, err
	}
	report := Report{Scanned: len(placements)}
	if len(placements) == 0 {
		return report, nil
	}

	var limiter *rate.Limiter
	if s.cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.RatePerSecond), 1)
	}

	var mu sync.Mutex
	worker.BlockingPool(ctx, s.cfg.Concurrency, worker.Feed(ctx, placements), func(ctx context.Context, p domain.Placement) {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}
		_, err := s.app.NormalizePlacement(ctx, p)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.Failed++
			slog.WarnContext(ctx, "placement normalization failed",
				slog.String("profile_id", p.ProfileID.String()),
				slog.Any("error", err),
			)
			return
		}
		report.Normalized++
	})

	slog.InfoContext(ctx, "placement sweep finished",
		slog.Int("scanned", report.Scanned),
		slog.Int("normalized", report.Normalized),
		slog.Int("failed", report.Failed),
	)
	return report, ctx.Err()
}

// Run sweeps every Interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "placement sweep error", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
