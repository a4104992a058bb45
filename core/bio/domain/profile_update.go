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
	"time"

	"github.com/gofrs/uuid/v5"
)

const profileWriteTimeout = 2 * time.Second

// ModifyProfile applies a partial update guarded by the profile version.
func (app *Application) ModifyProfile(ctx context.Context, userID, id uuid.UUID, version int64, patch ProfilePatch) (*Profile, error) {
	if id.IsNil() || version < 0 {
		return nil, invalid("profileId", "required")
	}
	if patch.Handle == nil && patch.DisplayName == nil && patch.Bio == nil && !patch.AvatarSet {
		return nil, invalid("body", "no valid fields to update")
	}
	if patch.Handle != nil {
		if err := validateHandle(*patch.Handle); err != nil {
			return nil, err
		}
	}
	if patch.DisplayName != nil {
		if err := validateLength("displayName", *patch.DisplayName, 1, maxDisplayNameLen); err != nil {
			return nil, err
		}
	}
	if patch.Bio != nil {
		if err := validateLength("bio", *patch.Bio, 0, maxBioLen); err != nil {
			return nil, err
		}
	}
	if patch.AvatarSet && !patch.AvatarNull {
		if err := validateHTTPURL("avatarUrl", patch.AvatarURL); err != nil {
			return nil, err
		}
	}

	var (
		updated   *Profile
		oldHandle string
	)
	err := app.writer.WithTimeoutTx(ctx, profileWriteTimeout, func(ctx context.Context, tx WriteTx) error {
		prof, err := lockOwned(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		oldHandle = prof.Handle
		p, err := tx.ModifyProfile(ctx, id, version, patch)
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, mapError(ctx, "ModifyProfile", err)
	}

	app.invalidate(ctx, oldHandle, updated.Handle)
	return updated, nil
}

// DeleteProfile removes the profile with all of its pages, blocks and content.
func (app *Application) DeleteProfile(ctx context.Context, userID, id uuid.UUID, version int64) error {
	if id.IsNil() || version < 0 {
		return invalid("profileId", "required")
	}

	var handle string
	err := app.writer.WithTimeoutTx(ctx, profileWriteTimeout, func(ctx context.Context, tx WriteTx) error {
		prof, err := lockOwned(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		handle = prof.Handle
		return tx.DeleteProfile(ctx, id, version)
	})
	if err == nil {
		app.invalidate(ctx, handle)
		return nil
	}
	if errors.Is(err, ErrPrecondition) {
		return ErrPrecondition
	}
	return mapError(ctx, "DeleteProfile", err)
}
