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

func (app *Application) CreateProfile(ctx context.Context, userID uuid.UUID, params CreateProfileParams) (*Profile, error) {
	if userID.IsNil() {
		return nil, invalid("owner", "required")
	}
	if err := validateHandle(params.Handle); err != nil {
		slog.DebugContext(ctx, "invalid handle", slog.String("handle", params.Handle))
		return nil, err
	}
	if err := validateLength("displayName", params.DisplayName, 1, maxDisplayNameLen); err != nil {
		return nil, err
	}
	if err := validateLength("bio", params.Bio, 0, maxBioLen); err != nil {
		return nil, err
	}
	if params.AvatarURL != nil {
		if err := validateHTTPURL("avatarUrl", *params.AvatarURL); err != nil {
			return nil, err
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, mapError(ctx, "CreateProfile", err)
	}
	now := app.clock.Now().UTC()

	var created *Profile
	err = app.writer.WithTx(ctx, func(ctx context.Context, tx WriteTx) error {
		p, err := tx.CreateProfile(ctx, Profile{
			ID:              id,
			OwnerID:         userID,
			Handle:          params.Handle,
			DisplayName:     strings.TrimSpace(params.DisplayName),
			Bio:             params.Bio,
			AvatarURL:       params.AvatarURL,
			DefaultPageType: PageTypeNone,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return err
		}
		created = p
		return nil
	})
	if err == nil {
		slog.DebugContext(ctx, "created profile", slog.Any("profile", fmt.Sprintf("%+v", created)))
		return created, nil
	}
	if errors.Is(err, ErrConflict) {
		slog.DebugContext(ctx, "handle taken", slog.String("handle", params.Handle))
		return nil, fmt.Errorf("handle %q: %w", params.Handle, ErrConflict)
	}
	return nil, mapError(ctx, "CreateProfile", err)
}

// CheckHandle reports whether handle can be claimed right now.
// Availability is advisory: CreateProfile still enforces uniqueness.
func (app *Application) CheckHandle(ctx context.Context, handle string) (bool, error) {
	if err := validateHandle(handle); err != nil {
		return false, err
	}
	exists, err := retryRead(ctx, func() (bool, error) {
		return app.reader.HandleExists(ctx, handle)
	})
	if err != nil {
		return false, mapError(ctx, "CheckHandle", err)
	}
	return !exists, nil
}
