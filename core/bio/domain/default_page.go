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
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SetDefaultPage switches the landing page of a profile. Both the type and
// the page reference are written by a single update, so readers see either
// the old pair or the new pair.
//
//   - custom requires pageID to name a page of the profile
//   - any other type requires pageID to be nil
func (app *Application) SetDefaultPage(ctx context.Context, userID, profileID uuid.UUID, typ PageType, pageID *uuid.UUID) (*Profile, error) {
	ctx, span := tracer.Start(ctx, "bio.SetDefaultPage", trace.WithAttributes(
		attribute.String("profile.id", profileID.String()),
		attribute.String("default.type", string(typ)),
	))
	defer span.End()

	if !typ.Valid() {
		return nil, invalid("type", "unknown default page type")
	}
	if typ == PageTypeCustom && (pageID == nil || pageID.IsNil()) {
		return nil, invalid("pageId", "required for a custom default page")
	}
	if typ != PageTypeCustom && pageID != nil {
		return nil, invalid("pageId", "only allowed for a custom default page")
	}

	var updated *Profile
	err := app.writer.WithTx(ctx, func(ctx context.Context, tx WriteTx) error {
		if _, err := lockOwned(ctx, tx, userID, profileID); err != nil {
			return err
		}
		if typ == PageTypeCustom {
			if _, err := tx.GetPage(ctx, profileID, *pageID); err != nil {
				return err
			}
		}
		p, err := tx.SetDefaultPage(ctx, profileID, typ, pageID)
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, mapError(ctx, "SetDefaultPage", err)
	}

	app.invalidate(ctx, updated.Handle)
	return updated, nil
}
