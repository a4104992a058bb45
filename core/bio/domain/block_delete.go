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

	"github.com/gofrs/uuid/v5"
)

// DeleteBlock removes the block and closes the gap it leaves in its placement.
func (app *Application) DeleteBlock(ctx context.Context, userID, profileID, blockID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "bio.DeleteBlock")
	defer span.End()

	if blockID.IsNil() {
		return invalid("blockId", "required")
	}

	var handle string
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
		if err := tx.DeleteBlock(ctx, profileID, blockID); err != nil {
			return err
		}
		return renumberPlacement(ctx, tx, Placement{ProfileID: profileID, PageID: block.PageID})
	})
	if err != nil {
		return mapError(ctx, "DeleteBlock", err)
	}

	app.invalidate(ctx, handle)
	return nil
}

// renumberPlacement rewrites the placement to 1..N, writing only changed rows.
func renumberPlacement(ctx context.Context, tx WriteTx, placement Placement) error {
	blocks, err := tx.ListBlocks(ctx, placement)
	if err != nil {
		return err
	}
	changes := Renumber(blocks)
	if len(changes) == 0 {
		return nil
	}
	return tx.ApplyOrder(ctx, placement, changes)
}
