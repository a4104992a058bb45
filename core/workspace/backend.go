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

// Package workspace is the editor-side state of one signed-in user: the
// active profile, its pages and the blocks of each placement, kept in step
// with the server through a Backend.
package workspace

import (
	"context"
	"errors"

	"linkbio/modules/api/bioapi"

	"github.com/gofrs/uuid/v5"
)

var ErrNoProfile = errors.New("no active profile")

// Backend is the server as seen by the workspace. Client implements it over
// the REST API.
type Backend interface {
	GetProfile(ctx context.Context, profileID uuid.UUID) (*bioapi.Profile, error)
	ListPages(ctx context.Context, profileID uuid.UUID) ([]bioapi.Page, error)
	ListBlocks(ctx context.Context, profileID uuid.UUID, pageID *uuid.UUID) ([]bioapi.Block, error)
	MoveBlock(ctx context.Context, profileID, blockID uuid.UUID, fromIndex, toIndex int) ([]bioapi.Block, error)
	UpdateCollection(ctx context.Context, profileID, collectionID uuid.UUID, body bioapi.CollectionBody) (*bioapi.Collection, error)
	CheckHandle(ctx context.Context, handle string) (bool, error)
}
