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
	"log/slog"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MoveBlock removes the block from its position and reinserts it at toIndex
// (1-based), renumbering the whole placement inside one transaction.
//
// The block id is authoritative: fromIndex is what the caller believed the
// position to be and is only range checked. A caller with a stale view still
// moves the block it named. Returns the placement's block list as committed.
func (app *Application) MoveBlock(ctx context.Context, userID, profileID, blockID uuid.UUID, fromIndex, toIndex int) ([]Block, error) {
	ctx, span := tracer.Start(ctx, "bio.MoveBlock", trace.WithAttributes(
		attribute.String("profile.id", profileID.String()),
		attribute.String("block.id", blockID.String()),
		attribute.Int("move.from", fromIndex),
		attribute.Int("move.to", toIndex),
	))
	defer span.End()

	if blockID.IsNil() {
		return nil, invalid("blockId", "required")
	}

	var (
		result  []Block
		handle  string
		changed bool
	)
	err := app.writer.WithTx(ctx, func(ctx context.Context, tx WriteTx) error {
		prof, err := lockOwned(ctx, tx, userID, profileID)
		if err != nil {
			return err
		}
		handle = prof.Handle

		block, err := tx.GetBlock(ctx, profileID, blockID)
		if err != nil {
			return err
		}
		placement := Placement{ProfileID: profileID, PageID: block.PageID}

		blocks, err := tx.ListBlocks(ctx, placement)
		if err != nil {
			return err
		}
		n := len(blocks)
		if toIndex < 1 || toIndex > n {
			return invalid("toIndex", "out of range")
		}
		if fromIndex < 1 || fromIndex > n {
			return invalid("fromIndex", "out of range")
		}

		current := indexOfBlock(blocks, blockID)
		if current+1 != fromIndex {
			slog.WarnContext(ctx, "move requested from a stale position",
				slog.String("block", blockID.String()),
				slog.Int("from", fromIndex),
				slog.Int("actual", current+1),
			)
		}

		if current+1 == toIndex && IsDense(blocks) {
			result = blocks
			return nil
		}

		moved := Splice(blocks, current, toIndex-1)
		if err := tx.ApplyOrder(ctx, placement, Renumber(moved)); err != nil {
			return err
		}
		changed = true

		result, err = tx.ListBlocks(ctx, placement)
		return err
	})
	if err != nil {
		return nil, mapError(ctx, "MoveBlock", err)
	}

	if changed {
		app.invalidate(ctx, handle)
	}
	return result, nil
}
