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

package main

import (
	"context"
	"fmt"
	"log/slog"

	"linkbio/core/bio/maintenance"
	"linkbio/modules/db/redis"
	"linkbio/modules/db/redis/locking"
	"linkbio/modules/telemetry"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Renumber placement groups whose display orders are not 1..N, once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		d, err := buildDeps(ctx, appConfig)
		if err != nil {
			return err
		}
		defer func() {
			if err := d.Close(context.WithoutCancel(ctx)); err != nil {
				slog.ErrorContext(ctx, "shutdown error", slog.Any("error", err))
			}
		}()

		sweeper, err := newSweeper(d)
		if err != nil {
			return err
		}
		report, err := sweeper.RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d normalized=%d failed=%d skipped=%t\n",
			report.Scanned, report.Normalized, report.Failed, report.Skipped)
		return nil
	},
}

// newSweeper guards sweeps with a Redis lock when Redis is configured, so
// only one replica sweeps at a time.
func newSweeper(d *deps) (*maintenance.Sweeper, error) {
	var opts []maintenance.Option

	if m, err := telemetry.NewSweepMetrics(d.cfg.Otel.ServiceName); err == nil {
		opts = append(opts, maintenance.WithMetrics(m))
	} else {
		slog.Warn("sweep metrics disabled", slog.Any("error", err))
	}

	if d.redis != nil {
		locker, err := redis.NewLocker(d.cfg.Redis, "linkbio:lock", d.cfg.Sweep.LockAtMostFor)
		if err != nil {
			return nil, err
		}
		d.onClose(func(context.Context) error { locker.Close(); return nil })
		opts = append(opts, maintenance.WithExecutor(locking.NewLockingTaskExecutor(locker)))
	}

	return maintenance.NewSweeper(d.app, d.cfg.Sweep, opts...), nil
}
