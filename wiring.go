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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"linkbio/core/bio/adapters/cache"
	"linkbio/core/bio/adapters/memory"
	persistence "linkbio/core/bio/adapters/persistence/pg"
	"linkbio/core/bio/domain"
	"linkbio/modules/appconfig"
	"linkbio/modules/clock"
	"linkbio/modules/db"
	"linkbio/modules/db/postgres"
	"linkbio/modules/db/redis"
	hmac_sign "linkbio/modules/hmac"
	"linkbio/modules/telemetry"

	"github.com/redis/rueidis"
)

// generations must outlive the pages cached under them
const generationTTL = 24 * time.Hour

// deps is the manual dependency graph shared by serve and sweep.
// imo there's no need to over-engineer with DI frameworks like Fx or Wire
type deps struct {
	cfg   *appconfig.Config
	clock clock.Clock
	app   *domain.Application

	// nil with STORE=memory
	pool  *postgres.PostgresConnectionPool
	redis rueidis.Client

	closers []func(context.Context) error
}

func (d *deps) onClose(fn func(context.Context) error) {
	d.closers = append(d.closers, fn)
}

// Close releases resources in reverse acquisition order.
func (d *deps) Close(ctx context.Context) error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// healthChecker is nil with STORE=memory.
func (d *deps) healthChecker() db.HealthManager {
	if d.pool == nil {
		return nil
	}
	return d.pool
}

func buildDeps(ctx context.Context, cfg *appconfig.Config) (_ *deps, err error) {
	d := &deps{cfg: cfg, clock: clock.RealClockProvider()}
	defer func() {
		if err != nil {
			_ = d.Close(ctx)
		}
	}()

	signer, err := hmac_sign.NewHMACSigner([]byte(cfg.HMAC.Secret))
	if err != nil {
		return nil, fmt.Errorf("hmac signer setup: %w", err)
	}

	var (
		reader domain.ReadStore
		writer domain.WriteStore
		pages  db.KV
		gens   db.KV
	)

	switch cfg.Store {
	case appconfig.StoreMemory:
		slog.WarnContext(ctx, "using in-memory store, data is lost on exit")
		store := memory.New(memory.WithClock(d.clock))
		reader, writer = store, store
		pages = db.NewMemoryKV(d.clock, cfg.PublicCacheTTL)
		gens = db.NewMemoryKV(d.clock, generationTTL)

	case appconfig.StorePostgres:
		d.pool, err = postgres.New(ctx, &cfg.Postgres, postgres.PostgresOptions{
			// assuming writer connection does not pass through pgBouncer,
			// so we can apply server-side prepared statements
			ReaderOptions: []postgres.PgxConfigOption{
				postgres.WithPgBouncerSimpleProtocol(),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		d.onClose(d.pool.Shutdown)

		if err := d.pool.HealthCheck(); err != nil {
			return nil, fmt.Errorf("database health check: %w", err)
		}

		reader = persistence.NewPostgresReader(d.pool)
		// prepared statements live on the primary
		if writer, err = persistence.NewPostgresWriter(ctx, d.pool); err != nil {
			return nil, fmt.Errorf("bio writer initialization: %w", err)
		}

		d.redis, err = redis.NewRueidisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		d.onClose(func(context.Context) error { d.redis.Close(); return nil })

		pages = redis.NewRedisKV(d.redis, redis.WithKeyPrefix("linkbio:page"), redis.WithDefaultTTL(cfg.PublicCacheTTL))
		gens = redis.NewRedisKV(d.redis, redis.WithKeyPrefix("linkbio:gen"), redis.WithDefaultTTL(generationTTL))
	}

	var cacheOpts []cache.Option
	if m, err := telemetry.NewCacheMetrics(cfg.Otel.ServiceName); err == nil {
		cacheOpts = append(cacheOpts, cache.WithMetrics(m))
	} else {
		slog.WarnContext(ctx, "cache metrics disabled", slog.Any("error", err))
	}

	d.app = domain.NewApp(reader, writer,
		domain.WithCursorSigner(signer.Derive("profile-cursor")),
		domain.WithPublicPageCache(cache.NewPublicPageCache(pages, gens, cacheOpts...)),
		domain.WithClock(d.clock),
	)
	return d, nil
}
