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
	"net/http"

	"linkbio/core/bio/adapters/rest"
	"linkbio/modules/db/redis/counter"
	"linkbio/modules/middleware"
	"linkbio/modules/middleware/auth"
	"linkbio/modules/middleware/ratelimit"
	rl "linkbio/modules/ratelimit"
	"linkbio/modules/server"
	"linkbio/modules/services"
	"linkbio/modules/telemetry"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the placement sweeper",
	RunE:  runServe,
}

var noSweep bool

func init() {
	serveCmd.Flags().BoolVar(&noSweep, "no-sweep", false, "Do not run the placement sweeper in this process")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := appConfig

	otelShutdown, err := telemetry.Init(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("telemetry not properly configured: %w", err)
	}
	defer func() {
		if err := otelShutdown(context.WithoutCancel(ctx)); err != nil {
			slog.ErrorContext(ctx, "telemetry shutdown error", slog.Any("error", err))
		}
	}()

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(context.WithoutCancel(ctx)); err != nil {
			slog.ErrorContext(ctx, "shutdown error", slog.Any("error", err))
		}
	}()

	authn, err := auth.New(cfg.Auth)
	if err != nil {
		return fmt.Errorf("auth setup: %w", err)
	}

	rateLimit, err := newRateLimitMiddleware(d, authn)
	if err != nil {
		return err
	}

	// Initialize HTTP metrics for middleware-based instrumentation
	httpMetrics, err := telemetry.NewHTTPMetrics(cfg.Otel.ServiceName)
	if err != nil {
		slog.WarnContext(ctx, "failed to initialize HTTP metrics, continuing without metrics", slog.Any("error", err))
		httpMetrics = nil
	}

	var apiOpts []rest.Option
	if h := d.healthChecker(); h != nil {
		apiOpts = append(apiOpts, rest.WithHealthChecker(h))
	}
	bioSvc := services.NewBioAPIService(rest.NewBioAPI(d.app, authn, apiOpts...))

	srv, err := server.New(
		cfg.HTTP.Host, cfg.HTTP.Port,
		server.WithReadTimeout(cfg.HTTP.ReadTimeout),
		server.WithWriteTimeout(cfg.HTTP.WriteTimeout),
		server.WithGlobalMiddlewares(
			middleware.Telemetry(httpMetrics),
			rateLimit,
		),
		server.WithServices(bioSvc),
	)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if !noSweep {
		sweeper, err := newSweeper(d)
		if err != nil {
			return err
		}
		g.Go(func() error { return sweeper.Run(gctx) })
	}
	return g.Wait()
}

func newRateLimitMiddleware(d *deps, authn *auth.Authenticator) (func(http.Handler) http.Handler, error) {
	cfg := d.cfg
	if cfg.RateLimit.Disabled {
		slog.Warn("rate limiting disabled")
		return func(next http.Handler) http.Handler { return next }, nil
	}

	var store rl.CounterStore = rl.NewMemoryCounter(d.clock)
	if d.redis != nil {
		store = counter.NewRedisCounterStore(d.redis, "linkbio:rl")
	}

	keyStrategies := map[ratelimit.KeyStrategyId]ratelimit.KeyFunc{
		"remote_ip": ratelimit.RemoteIpKeyFunc,
		"subject":   ratelimit.SubjectKeyFunc(authn.Subject),
	}

	slog.Debug("app rate limit config", slog.Any("rate_limit_config", cfg.RateLimit))

	rtp, err := ratelimit.ParsePolicy(
		rl.SlidingWindowFactory(d.clock, store, cfg.Env),
		&cfg.RateLimit,
		func(r *http.Request) ratelimit.RouteInfo {
			id := ratelimit.Pattern(r.Pattern)
			// pattern is empty if request is not matched against a pattern
			if r.Pattern == "" {
				id = ratelimit.Pattern(r.URL.Path)
			}
			return ratelimit.RouteInfo{
				ID:     id,
				Method: r.Method,
				Path:   r.URL.Path,
			}
		},
		keyStrategies,
	)
	if err != nil {
		return nil, fmt.Errorf("ratelimit config not properly parsed: %w", err)
	}
	return ratelimit.NewRateLimitMiddleware(rtp), nil
}
