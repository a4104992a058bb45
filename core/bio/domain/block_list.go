package domain

import (
	"context"
	"log/slog"

	"github.com/gofrs/uuid/v5"
)

// ListBlocks returns the blocks of a placement in display order. A page that
// does not belong to the profile is ErrNotFound.
func (app *Application) ListBlocks(ctx context.Context, profileID uuid.UUID, pageID *uuid.UUID) ([]Block, error) {
	ctx, span := tracer.Start(ctx, "bio.ListBlocks")
	defer span.End()

	if profileID.IsNil() {
		return nil, invalid("profileId", "required")
	}
	if pageID != nil {
		if _, err := retryRead(ctx, func() (*Page, error) {
			return app.reader.GetPage(ctx, profileID, *pageID)
		}); err != nil {
			return nil, mapError(ctx, "ListBlocks", err)
		}
	}
	placement := Placement{ProfileID: profileID, PageID: pageID}
	blocks, err := retryRead(ctx, func() ([]Block, error) {
		return app.reader.ListBlocks(ctx, placement)
	})
	if err != nil {
		return nil, mapError(ctx, "ListBlocks", err)
	}
	if !IsDense(blocks) {
		slog.WarnContext(ctx, "read an unnormalized placement", slog.String("profile", profileID.String()))
	}
	return blocks, nil
}

// NormalizePlacement renumbers one placement to 1..N and reports how many
// blocks changed. It is a maintenance operation and does not check ownership.
func (app *Application) NormalizePlacement(ctx context.Context, placement Placement) (int, error) {
	ctx, span := tracer.Start(ctx, "bio.NormalizePlacement")
	defer span.End()

	var (
		changed int
		handle  string
	)
	err := app.writer.WithTx(ctx, func(ctx context.Context, tx WriteTx) error {
		prof, err := tx.LockProfile(ctx, placement.ProfileID)
		if err != nil {
			return err
		}
		handle = prof.Handle

		blocks, err := tx.ListBlocks(ctx, placement)
		if err != nil {
			return err
		}
		changes := Renumber(blocks)
		changed = len(changes)
		if changed == 0 {
			return nil
		}
		return tx.ApplyOrder(ctx, placement, changes)
	})
	if err != nil {
		return 0, mapError(ctx, "NormalizePlacement", err)
	}
	if changed > 0 {
		app.invalidate(ctx, handle)
	}
	return changed, nil
}

// UnnormalizedPlacements lists placements that need NormalizePlacement.
func (app *Application) UnnormalizedPlacements(ctx context.Context, limit int) ([]Placement, error) {
	if limit <= 0 {
		return nil, invalid("limit", "must be positive")
	}
	placements, err := retryRead(ctx, func() ([]Placement, error) {
		return app.reader.ListUnnormalizedPlacements(ctx, limit)
	})
	if err != nil {
		return nil, mapError(ctx, "UnnormalizedPlacements", err)
	}
	return placements, nil
}
