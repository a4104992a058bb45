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

package domain

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// defaultPath is the cache key used for the profile root URL.
const defaultPath = "_"

// ResolvePublicPage resolves the page a public visitor sees at /{handle}/{path}.
// An empty path resolves the profile's default page.
//
// Built-in paths list their content entities by creation time; custom pages
// list their blocks by display order.
func (app *Application) ResolvePublicPage(ctx context.Context, handle, path string) (*PublicPage, error) {
	ctx, span := tracer.Start(ctx, "bio.ResolvePublicPage", trace.WithAttributes(
		attribute.String("profile.handle", handle),
		attribute.String("page.path", path),
	))
	defer span.End()

	if handle == "" {
		return nil, ErrNotFound
	}
	key := path
	if key == "" {
		key = defaultPath
	}

	// the version is taken before the read so a mutation committed in
	// between invalidates what this call stores
	cached, version, err := app.cache.Get(ctx, handle, key)
	if err != nil {
		slog.WarnContext(ctx, "public page cache read failed", slog.Any("error", err))
	} else if cached != nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	page, err := app.resolvePublicPage(ctx, handle, path)
	if err != nil {
		return nil, mapError(ctx, "ResolvePublicPage", err)
	}

	if version == "" {
		return page, nil
	}
	if err := app.cache.Put(ctx, handle, key, version, page); err != nil {
		slog.WarnContext(ctx, "public page cache write failed", slog.Any("error", err))
	}
	return page, nil
}

func (app *Application) resolvePublicPage(ctx context.Context, handle, path string) (*PublicPage, error) {
	prof, err := retryRead(ctx, func() (*Profile, error) {
		return app.reader.GetProfileByHandle(ctx, handle)
	})
	if err != nil {
		return nil, err
	}

	if path == "" {
		def, err := app.ResolveDefaultPage(ctx, prof)
		if err != nil {
			return nil, err
		}
		switch {
		case def.Type == PageTypeNone:
			return &PublicPage{Profile: *prof, Type: PageTypeNone}, nil
		case def.Type.Builtin():
			return app.builtinPage(ctx, prof, def.Type)
		default:
			return app.customPage(ctx, prof, def.Page)
		}
	}

	if typ, ok := BuiltinFromPath(path); ok {
		return app.builtinPage(ctx, prof, typ)
	}

	page, err := retryRead(ctx, func() (*Page, error) {
		return app.reader.GetPageBySlug(ctx, prof.ID, path)
	})
	if err != nil {
		return nil, err
	}
	return app.customPage(ctx, prof, page)
}

func (app *Application) builtinPage(ctx context.Context, prof *Profile, typ PageType) (*PublicPage, error) {
	out := &PublicPage{Profile: *prof, Type: typ}
	var err error
	switch typ {
	case PageTypeRecommendation:
		out.Recommendations, err = retryRead(ctx, func() ([]Recommendation, error) {
			return app.reader.ListRecommendations(ctx, prof.ID)
		})
	case PageTypeLink:
		out.Links, err = retryRead(ctx, func() ([]Link, error) {
			return app.reader.ListLinks(ctx, prof.ID)
		})
	case PageTypeCollection:
		out.Collections, err = retryRead(ctx, func() ([]Collection, error) {
			return app.reader.ListCollections(ctx, prof.ID)
		})
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (app *Application) customPage(ctx context.Context, prof *Profile, page *Page) (*PublicPage, error) {
	pageID := page.ID
	blocks, err := retryRead(ctx, func() ([]Block, error) {
		return app.reader.ListBlocks(ctx, Placement{ProfileID: prof.ID, PageID: &pageID})
	})
	if err != nil {
		return nil, err
	}
	return &PublicPage{Profile: *prof, Type: PageTypeCustom, Page: page, Blocks: blocks}, nil
}

// ResolveDefaultPage reports the landing page of a profile. A custom default
// whose page no longer exists resolves to NoDefault without an error.
func (app *Application) ResolveDefaultPage(ctx context.Context, prof *Profile) (DefaultPage, error) {
	switch {
	case prof.DefaultPageType.Builtin():
		return DefaultPage{Type: prof.DefaultPageType}, nil
	case prof.DefaultPageType != PageTypeCustom || prof.DefaultPageID == nil:
		return NoDefault(), nil
	}

	page, err := retryRead(ctx, func() (*Page, error) {
		return app.reader.GetPage(ctx, prof.ID, *prof.DefaultPageID)
	})
	if errors.Is(err, ErrNotFound) {
		slog.WarnContext(ctx, "default page is dangling, falling back to none",
			slog.String("profile", prof.ID.String()),
			slog.String("page", prof.DefaultPageID.String()),
		)
		return NoDefault(), nil
	}
	if err != nil {
		return DefaultPage{}, mapError(ctx, "ResolveDefaultPage", err)
	}
	return DefaultPage{Type: PageTypeCustom, Page: page}, nil
}
