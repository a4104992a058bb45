package domain

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"
)

// GetProfile returns a profile owned by userID. Profiles of other owners are reported as not found.
func (app *Application) GetProfile(ctx context.Context, userID, id uuid.UUID) (*Profile, error) {
	if id.IsNil() {
		return nil, invalid("profileId", "required")
	}
	prof, err := retryRead(ctx, func() (*Profile, error) {
		return app.reader.GetProfileByID(ctx, id)
	})
	if err != nil {
		return nil, mapError(ctx, "GetProfile", err)
	}
	if prof.OwnerID != userID {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return prof, nil
}
