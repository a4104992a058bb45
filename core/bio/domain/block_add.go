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

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AddBlock appends a block at the end of its placement.
func (app *Application) AddBlock(ctx context.Context, userID, profileID uuid.UUID, params AddBlockParams) (*Block, error) {
	ctx, span := tracer.Start(ctx, "bio.AddBlock", trace.WithAttributes(
		attribute.String("profile.id", profileID.String()),
		attribute.String("block.kind", string(params.Kind)),
	))
	defer span.End()

	if err := validateBlockShape(params); err != nil {
		return nil, err
	}
	if params.Kind == BlockKindVideo {
		video, err := ParseVideoURL(params.Payload.Video.URL)
		if err != nil {
			return nil, err
		}
		params.Payload = &Payload{Video: video}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, mapError(ctx, "AddBlock", err)
	}

	var (
		created *Block
		handle  string
	)
	err = app.writer.WithTx(ctx, func(ctx context.Context, tx WriteTx) error {
		prof, err := lockOwned(ctx, tx, userID, profileID)
		if err != nil {
			return err
		}
		handle = prof.Handle

		if params.PageID != nil {
			if _, err := tx.GetPage(ctx, profileID, *params.PageID); err != nil {
				return err
			}
		}
		if params.Kind.ReferencesContent() {
			ok, err := tx.ContentExists(ctx, profileID, params.Kind, *params.ContentID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s %s: %w", params.Kind, params.ContentID, ErrNotFound)
			}
		}

		placement := Placement{ProfileID: profileID, PageID: params.PageID}
		blocks, err := tx.ListBlocks(ctx, placement)
		if err != nil {
			return err
		}
		if !IsDense(blocks) {
			slog.WarnContext(ctx, "healing unnormalized placement before append", slog.String("profile", profileID.String()))
			if err := tx.ApplyOrder(ctx, placement, Renumber(blocks)); err != nil {
				return err
			}
		}

		b, err := tx.InsertBlock(ctx, Block{
			ID:           id,
			ProfileID:    profileID,
			PageID:       params.PageID,
			Kind:         params.Kind,
			DisplayOrder: len(blocks) + 1,
			ContentID:    params.ContentID,
			Payload:      params.Payload,
			CreatedAt:    app.clock.Now().UTC(),
		})
		if err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, mapError(ctx, "AddBlock", err)
	}

	app.invalidate(ctx, handle)
	slog.DebugContext(ctx, "added block", slog.String("block", created.ID.String()), slog.Int("order", created.DisplayOrder))
	return created, nil
}

// lockOwned locks the profile row and hides profiles the user does not own.
func lockOwned(ctx context.Context, tx WriteTx, userID, profileID uuid.UUID) (*Profile, error) {
	prof, err := tx.LockProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if prof.OwnerID != userID {
		return nil, fmt.Errorf("profile %s: %w", profileID, ErrNotFound)
	}
	return prof, nil
}
