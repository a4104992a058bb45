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
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofrs/uuid/v5"
)

const maxCollectionItems = 200

func (app *Application) CreateRecommendation(ctx context.Context, userID, profileID uuid.UUID, params CreateRecommendationParams) (*Recommendation, error) {
	if err := validateLength("title", params.Title, 1, maxTitleLen); err != nil {
		return nil, err
	}
	if err := validateHTTPURL("url", params.URL); err != nil {
		return nil, err
	}
	if params.ImageURL != nil {
		if err := validateHTTPURL("imageUrl", *params.ImageURL); err != nil {
			return nil, err
		}
	}
	if err := validateLength("description", params.Description, 0, maxBioLen); err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, mapError(ctx, "CreateRecommendation", err)
	}

	var created *Recommendation
	err = app.mutateContent(ctx, "CreateRecommendation", userID, profileID, func(ctx context.Context, tx WriteTx) error {
		r, err := tx.CreateRecommendation(ctx, Recommendation{
			ID:          id,
			ProfileID:   profileID,
			Title:       strings.TrimSpace(params.Title),
			URL:         params.URL,
			ImageURL:    params.ImageURL,
			Description: params.Description,
			CreatedAt:   app.clock.Now().UTC(),
		})
		created = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (app *Application) CreateLink(ctx context.Context, userID, profileID uuid.UUID, params CreateLinkParams) (*Link, error) {
	if err := validateLength("title", params.Title, 1, maxTitleLen); err != nil {
		return nil, err
	}
	if err := validateHTTPURL("url", params.URL); err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, mapError(ctx, "CreateLink", err)
	}

	var created *Link
	err = app.mutateContent(ctx, "CreateLink", userID, profileID, func(ctx context.Context, tx WriteTx) error {
		l, err := tx.CreateLink(ctx, Link{
			ID:        id,
			ProfileID: profileID,
			Title:     strings.TrimSpace(params.Title),
			URL:       params.URL,
			CreatedAt: app.clock.Now().UTC(),
		})
		created = l
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (app *Application) CreateCollection(ctx context.Context, userID, profileID uuid.UUID, params CollectionParams) (*Collection, error) {
	if err := validateCollection(params); err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, mapError(ctx, "CreateCollection", err)
	}
	now := app.clock.Now().UTC()

	var created *Collection
	err = app.mutateContent(ctx, "CreateCollection", userID, profileID, func(ctx context.Context, tx WriteTx) error {
		if err := checkItemsOwned(ctx, tx, profileID, params.Items); err != nil {
			return err
		}
		c, err := tx.CreateCollection(ctx, Collection{
			ID:          id,
			ProfileID:   profileID,
			Name:        strings.TrimSpace(params.Name),
			Description: params.Description,
			Items:       params.Items,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		created = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateCollection replaces name, description and the ordered item list in one transaction.
func (app *Application) UpdateCollection(ctx context.Context, userID, profileID, collectionID uuid.UUID, params CollectionParams) (*Collection, error) {
	if err := validateCollection(params); err != nil {
		return nil, err
	}

	var updated *Collection
	err := app.mutateContent(ctx, "UpdateCollection", userID, profileID, func(ctx context.Context, tx WriteTx) error {
		ok, err := tx.ContentExists(ctx, profileID, BlockKindCollection, collectionID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("collection %s: %w", collectionID, ErrNotFound)
		}
		if err := checkItemsOwned(ctx, tx, profileID, params.Items); err != nil {
			return err
		}
		c, err := tx.UpdateCollection(ctx, Collection{
			ID:          collectionID,
			ProfileID:   profileID,
			Name:        strings.TrimSpace(params.Name),
			Description: params.Description,
			Items:       params.Items,
			UpdatedAt:   app.clock.Now().UTC(),
		})
		updated = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteContent removes a recommendation, link or collection together with
// every block placing it, and renumbers each placement that lost a block.
func (app *Application) DeleteContent(ctx context.Context, userID, profileID uuid.UUID, kind BlockKind, contentID uuid.UUID) error {
	if !kind.ReferencesContent() {
		return invalid("kind", "not a content kind")
	}
	return app.mutateContent(ctx, "DeleteContent", userID, profileID, func(ctx context.Context, tx WriteTx) error {
		ok, err := tx.ContentExists(ctx, profileID, kind, contentID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s %s: %w", kind, contentID, ErrNotFound)
		}
		placements, err := tx.DeleteContent(ctx, profileID, kind, contentID)
		if err != nil {
			return err
		}
		for _, pl := range placements {
			if err := renumberPlacement(ctx, tx, pl); err != nil {
				return err
			}
		}
		slog.DebugContext(ctx, "deleted content",
			slog.String("kind", string(kind)),
			slog.String("content", contentID.String()),
			slog.Int("placements", len(placements)),
		)
		return nil
	})
}

func (app *Application) ListRecommendations(ctx context.Context, userID, profileID uuid.UUID) ([]Recommendation, error) {
	if _, err := app.GetProfile(ctx, userID, profileID); err != nil {
		return nil, err
	}
	out, err := retryRead(ctx, func() ([]Recommendation, error) {
		return app.reader.ListRecommendations(ctx, profileID)
	})
	return out, mapError(ctx, "ListRecommendations", err)
}

func (app *Application) ListLinks(ctx context.Context, userID, profileID uuid.UUID) ([]Link, error) {
	if _, err := app.GetProfile(ctx, userID, profileID); err != nil {
		return nil, err
	}
	out, err := retryRead(ctx, func() ([]Link, error) {
		return app.reader.ListLinks(ctx, profileID)
	})
	return out, mapError(ctx, "ListLinks", err)
}

func (app *Application) ListCollections(ctx context.Context, userID, profileID uuid.UUID) ([]Collection, error) {
	if _, err := app.GetProfile(ctx, userID, profileID); err != nil {
		return nil, err
	}
	out, err := retryRead(ctx, func() ([]Collection, error) {
		return app.reader.ListCollections(ctx, profileID)
	})
	return out, mapError(ctx, "ListCollections", err)
}

func (app *Application) GetCollection(ctx context.Context, userID, profileID, collectionID uuid.UUID) (*Collection, error) {
	if _, err := app.GetProfile(ctx, userID, profileID); err != nil {
		return nil, err
	}
	c, err := retryRead(ctx, func() (*Collection, error) {
		return app.reader.GetCollection(ctx, profileID, collectionID)
	})
	if err != nil {
		return nil, mapError(ctx, "GetCollection", err)
	}
	return c, nil
}

// mutateContent runs fn under the owner's profile lock and invalidates the public pages on success.
func (app *Application) mutateContent(ctx context.Context, op string, userID, profileID uuid.UUID, fn func(ctx context.Context, tx WriteTx) error) error {
	var handle string
	err := app.writer.WithTx(ctx, func(ctx context.Context, tx WriteTx) error {
		prof, err := lockOwned(ctx, tx, userID, profileID)
		if err != nil {
			return err
		}
		handle = prof.Handle
		return fn(ctx, tx)
	})
	if err != nil {
		return mapError(ctx, op, err)
	}
	app.invalidate(ctx, handle)
	return nil
}

func validateCollection(params CollectionParams) error {
	if err := validateLength("name", params.Name, 1, maxTitleLen); err != nil {
		return err
	}
	if err := validateLength("description", params.Description, 0, maxBioLen); err != nil {
		return err
	}
	if len(params.Items) > maxCollectionItems {
		return invalid("items", "too many items")
	}
	seen := make(map[uuid.UUID]struct{}, len(params.Items))
	for _, id := range params.Items {
		if _, dup := seen[id]; dup {
			return invalid("items", "duplicate recommendation")
		}
		seen[id] = struct{}{}
	}
	return nil
}

func checkItemsOwned(ctx context.Context, tx WriteTx, profileID uuid.UUID, items []uuid.UUID) error {
	for _, id := range items {
		ok, err := tx.ContentExists(ctx, profileID, BlockKindRecommendation, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
		}
	}
	return nil
}
