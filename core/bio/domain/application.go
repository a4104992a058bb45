package domain

import (
	"context"
	"log/slog"

	"linkbio/modules/clock"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("linkbio/core/bio")

type Option func(*Application)

func WithCursorSigner(s CursorSigner) Option {
	return func(a *Application) { a.signer = s }
}

func WithPublicPageCache(c PublicPageCache) Option {
	return func(a *Application) {
		if c != nil {
			a.cache = c
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(a *Application) {
		if c != nil {
			a.clock = c
		}
	}
}

func NewApp(reader ReadStore, writer WriteStore, opts ...Option) *Application {
	app := &Application{
		reader: reader,
		writer: writer,
		cache:  noopCache{},
		clock:  clock.RealClockProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

// invalidate drops cached public pages after a committed mutation.
// Cache failures never fail the mutation; entries also expire by TTL.
func (app *Application) invalidate(ctx context.Context, handles ...string) {
	for _, h := range handles {
		if h == "" {
			continue
		}
		if err := app.cache.Invalidate(ctx, h); err != nil {
			slog.WarnContext(ctx, "public page cache invalidation failed", slog.String("handle", h), slog.Any("error", err))
		}
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, string) (*PublicPage, string, error) {
	return nil, "", nil
}
func (noopCache) Put(context.Context, string, string, string, *PublicPage) error { return nil }
func (noopCache) Invalidate(context.Context, string) error                       { return nil }
