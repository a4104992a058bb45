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
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofrs/uuid/v5"
)

// CreatePage adds a custom page. The slug is derived from the name when not given;
// the row and its slug are created by one insert.
func (app *Application) CreatePage(ctx context.Context, userID, profileID uuid.UUID, params CreatePageParams) (*Page, error) {
	name := strings.TrimSpace(params.Name)
	if err := validateLength("name", name, 1, maxPageNameLen); err != nil {
		return nil, err
	}
	slug := params.Slug
	if slug == "" {
		slug = Slugify(name)
	}
	if err := validateSlug(slug); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, mapError(ctx, "CreatePage", err)
	}

	var (
		created *Page
		handle  string
	)
	err = app.writer.WithTx(ctx, func(ctx context.Context, tx WriteTx) error {
		prof, err := lockOwned(ctx, tx, userID, profileID)
		if err != nil {
			return err
		}
		handle = prof.Handle
		p, err := tx.CreatePage(ctx, Page{
			ID:        id,
			ProfileID: profileID,
			Name:      name,
			Slug:      slug,
			CreatedAt: app.clock.Now().UTC(),
		})
		if err != nil {
			return err
		}
		created = p
		return nil
	})
	if errors.Is(err, ErrConflict) {
		return nil, fmt.Errorf("slug %q: %w", slug, ErrConflict)
	}
	if err != nil {
		return nil, mapError(ctx, "CreatePage", err)
	}

	app.invalidate(ctx, handle)
	slog.DebugContext(ctx, "created page", slog.String("page", created.ID.String()), slog.String("slug", created.Slug))
	return created, nil
}

// UpdatePage renames a page and/or changes its slug.
func (app *Application) UpdatePage(ctx context.Context, userID, profileID, pageID uuid.UUID, params UpdatePageParams) (*Page, error) {
	if params.Name == nil && params.Slug == nil {
		return nil, invalid("body", "no valid fields to update")
	}
	if params.Name != nil {
		trimmed := strings.TrimSpace(*params.Name)
		if err := validateLength("name", trimmed, 1, maxPageNameLen); err != nil {
			return nil, err
		}
		params.Name = &trimmed
	}
	if params.Slug != nil {
		if err := validateSlug(*params.Slug); err != nil {
			return nil, err
		}
	}

	var (
		updated *Page
		handle  string
	)
	err := app.writer.WithTx(ctx, func(ctx context.Context, tx WriteTx) error {
		prof, err := lockOwned(ctx, tx, userID, profileID)
		if err != nil {
			return err
		}
		handle = prof.Handle
		p, err := tx.UpdatePage(ctx, profileID, pageID, params)
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, mapError(ctx, "UpdatePage", err)
	}

	app.invalidate(ctx, handle)
	return updated, nil
}

// DeletePage removes a custom page with its blocks. When the page is the
// profile's default, the default is reset to none in the same transaction.
func (app *Application) DeletePage(ctx context.Context, userID, profileID, pageID uuid.UUID) error {
	var handle string
	err := app.writer.WithTx(ctx, func(ctx context.Context, tx WriteTx) error {
		prof, err := lockOwned(ctx, tx, userID, profileID)
		if err != nil {
			return err
		}
		handle = prof.Handle

		if _, err := tx.GetPage(ctx, profileID, pageID); err != nil {
			return err
		}
		if prof.DefaultPageType == PageTypeCustom && prof.DefaultPageID != nil && *prof.DefaultPageID == pageID {
			if _, err := tx.SetDefaultPage(ctx, profileID, PageTypeNone, nil); err != nil {
				return err
			}
		}
		return tx.DeletePage(ctx, profileID, pageID)
	})
	if err != nil {
		return mapError(ctx, "DeletePage", err)
	}

	app.invalidate(ctx, handle)
	return nil
}

func (app *Application) ListPages(ctx context.Context, userID, profileID uuid.UUID) ([]Page, error) {
	if _, err := app.GetProfile(ctx, userID, profileID); err != nil {
		return nil, err
	}
	pages, err := retryRead(ctx, func() ([]Page, error) {
		return app.reader.ListPages(ctx, profileID)
	})
	if err != nil {
		return nil, mapError(ctx, "ListPages", err)
	}
	return pages, nil
}
