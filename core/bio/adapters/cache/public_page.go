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

// Package cache stores resolved public pages in a KV store.
//
// Entries are keyed by handle, generation and path:
//
//	page:{handle}:{generation}:{path}
//
// Invalidate replaces the handle's generation, so every path cached for the
// handle becomes unreachable in one write and then expires by TTL. The
// generation store must keep keys longer than the page store.
package cache

import (
	"context"
	"fmt"

	"linkbio/core/bio/domain"
	"linkbio/modules/db"
	"linkbio/modules/telemetry"

	"github.com/gofrs/uuid/v5"
)

var _ domain.PublicPageCache = (*PublicPageCache)(nil)

// initialGeneration is used until a handle is first invalidated.
const initialGeneration = "0"

type PublicPageCache struct {
	pages   db.JSONKV[domain.PublicPage]
	gens    db.KV
	metrics *telemetry.CacheMetrics
}

type Option func(*PublicPageCache)

func WithMetrics(m *telemetry.CacheMetrics) Option {
	return func(c *PublicPageCache) { c.metrics = m }
}

// NewPublicPageCache builds a cache over pages (short TTL) and gens (long TTL).
func NewPublicPageCache(pages, gens db.KV, opts ...Option) *PublicPageCache {
	c := &PublicPageCache{
		pages: db.NewJSONKV[domain.PublicPage](pages),
		gens:  gens,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func generationKey(handle string) string { return "gen:" + handle }

func pageKey(handle, gen, path string) string {
	return fmt.Sprintf("page:%s:%s:%s", handle, gen, path)
}

func (c *PublicPageCache) generation(ctx context.Context, handle string) (string, error) {
	raw, err := c.gens.AtomicGet(ctx, generationKey(handle))
	if err != nil {
		return "", err
	}
	switch v := raw.(type) {
	case nil:
		return initialGeneration, nil
	case []byte:
		return string(v), nil
	case string:
		return v, nil
	}
	return "", fmt.Errorf("cache: unexpected generation type %T", raw)
}

// Get returns the page and the generation it was looked up under. The page
// is nil on a miss.
func (c *PublicPageCache) Get(ctx context.Context, handle, path string) (*domain.PublicPage, string, error) {
	gen, err := c.generation(ctx, handle)
	if err != nil {
		c.metrics.Lookup(ctx, "error")
		return nil, "", err
	}
	page, err := c.pages.Get(ctx, pageKey(handle, gen, path))
	switch {
	case err != nil:
		c.metrics.Lookup(ctx, "error")
		return nil, gen, err
	case page == nil:
		c.metrics.Lookup(ctx, "miss")
	default:
		c.metrics.Lookup(ctx, "hit")
	}
	return page, gen, nil
}

// Put stores page under gen, the generation returned by the Get that missed.
// If the handle was invalidated since, the entry is unreachable.
func (c *PublicPageCache) Put(ctx context.Context, handle, path, gen string, page *domain.PublicPage) error {
	if page == nil || gen == "" {
		return nil
	}
	_, err := c.pages.Set(ctx, pageKey(handle, gen, path), *page)
	return err
}

// Invalidate moves the handle to a fresh generation.
func (c *PublicPageCache) Invalidate(ctx context.Context, handle string) error {
	gen, err := uuid.NewV7()
	if err != nil {
		return err
	}
	_, err = c.gens.AtomicSet(ctx, generationKey(handle), gen.String())
	return err
}
