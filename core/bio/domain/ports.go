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
	"time"

	"github.com/gofrs/uuid/v5"
)

// ReadStore defines the port for read operations.
//
// Read/Write Separation Pattern:
// Implementations may route these calls to a read replica. None of the
// methods modify data and none of them participate in a transaction, so
// anything that must observe its own writes goes through WriteTx instead.
//
// Error contract:
//   - ErrNotFound when a single-row lookup matches nothing
//   - ErrTransient for connection loss, timeouts and serialization failures
type ReadStore interface {
	GetProfileByID(ctx context.Context, id uuid.UUID) (*Profile, error)

	// GetProfileByHandle is a case-sensitive exact match.
	GetProfileByHandle(ctx context.Context, handle string) (*Profile, error)

	// ListProfilesByOwner returns at most limit profiles of the owner ordered by
	// (created_at ASC, id ASC). A nil pivot starts from the beginning; otherwise
	// rows strictly after (ASC) or strictly before (DESC) the pivot are returned,
	// still in ascending order.
	ListProfilesByOwner(ctx context.Context, ownerID uuid.UUID, pivot *Pivot, limit int) ([]Profile, error)

	HandleExists(ctx context.Context, handle string) (bool, error)

	GetPage(ctx context.Context, profileID, pageID uuid.UUID) (*Page, error)
	GetPageBySlug(ctx context.Context, profileID uuid.UUID, slug string) (*Page, error)

	// ListPages returns custom pages ordered by (created_at ASC, id ASC).
	ListPages(ctx context.Context, profileID uuid.UUID) ([]Page, error)

	// ListBlocks returns the blocks of one placement ordered by display_order.
	ListBlocks(ctx context.Context, placement Placement) ([]Block, error)

	// Built-in page content, ordered by (created_at ASC, id ASC).
	ListRecommendations(ctx context.Context, profileID uuid.UUID) ([]Recommendation, error)
	ListLinks(ctx context.Context, profileID uuid.UUID) ([]Link, error)
	ListCollections(ctx context.Context, profileID uuid.UUID) ([]Collection, error)

	GetCollection(ctx context.Context, profileID, collectionID uuid.UUID) (*Collection, error)

	// ListUnnormalizedPlacements returns up to limit placements whose display
	// orders are not exactly 1..N.
	ListUnnormalizedPlacements(ctx context.Context, limit int) ([]Placement, error)
}

// WriteStore defines the port for write operations.
//
// Every mutation runs inside WithTx: if fn returns an error the transaction
// is rolled back and no partial state is observable by any reader.
//
// Important: Do NOT nest WithTx calls, WriteTx intentionally does not expose
// WithTx. Do not call ReadStore methods from inside fn either; the tx has
// everything a mutation needs.
type WriteStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx WriteTx) error) error
	// WithTimeoutTx is the same as WithTx but applies a context timeout before starting the transaction.
	WithTimeoutTx(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, tx WriteTx) error) error
}

// WriteTx is a transaction-scoped writer.
//
// Thread Safety:
// A WriteTx instance is NOT thread-safe and should only be used by the
// function that received it from WithTx. Do not pass it to goroutines.
type WriteTx interface {
	CreateProfile(ctx context.Context, p Profile) (*Profile, error)

	// LockProfile loads the profile and holds a row lock on it until the
	// transaction ends. Every block mutation of a profile serializes on this lock.
	LockProfile(ctx context.Context, id uuid.UUID) (*Profile, error)

	// ModifyProfile applies a patch when version matches and bumps the version.
	// Returns ErrPrecondition on version mismatch.
	ModifyProfile(ctx context.Context, id uuid.UUID, version int64, patch ProfilePatch) (*Profile, error)

	// DeleteProfile removes the profile and everything it owns.
	// Returns ErrPrecondition on version mismatch.
	DeleteProfile(ctx context.Context, id uuid.UUID, version int64) error

	// SetDefaultPage writes default_page_type and default_page_id in one statement.
	SetDefaultPage(ctx context.Context, profileID uuid.UUID, typ PageType, pageID *uuid.UUID) (*Profile, error)

	GetPage(ctx context.Context, profileID, pageID uuid.UUID) (*Page, error)
	CreatePage(ctx context.Context, p Page) (*Page, error)
	UpdatePage(ctx context.Context, profileID, pageID uuid.UUID, params UpdatePageParams) (*Page, error)
	// DeletePage removes the page and its blocks.
	DeletePage(ctx context.Context, profileID, pageID uuid.UUID) error

	GetBlock(ctx context.Context, profileID, blockID uuid.UUID) (*Block, error)
	ListBlocks(ctx context.Context, placement Placement) ([]Block, error)
	InsertBlock(ctx context.Context, b Block) (*Block, error)
	DeleteBlock(ctx context.Context, profileID, blockID uuid.UUID) error

	// ApplyOrder rewrites display_order for the given blocks in a single statement.
	// Intermediate duplicates inside the statement are allowed, the final state is checked at commit.
	ApplyOrder(ctx context.Context, placement Placement, changes []OrderChange) error

	// ContentExists reports whether a content entity of the kind is owned by the profile.
	ContentExists(ctx context.Context, profileID uuid.UUID, kind BlockKind, contentID uuid.UUID) (bool, error)

	CreateRecommendation(ctx context.Context, r Recommendation) (*Recommendation, error)
	CreateLink(ctx context.Context, l Link) (*Link, error)
	CreateCollection(ctx context.Context, c Collection) (*Collection, error)
	UpdateCollection(ctx context.Context, c Collection) (*Collection, error)

	// DeleteContent removes the content entity and every block referencing it,
	// returning the placements that lost a block.
	DeleteContent(ctx context.Context, profileID uuid.UUID, kind BlockKind, contentID uuid.UUID) ([]Placement, error)
}

// PublicPageCache stores resolved public pages. Implementations must tolerate
// Invalidate being called for handles that were never cached.
type PublicPageCache interface {
	// Get also returns the version it looked under, even on a miss.
	Get(ctx context.Context, handle, path string) (*PublicPage, string, error)
	// Put stores page under version. A page stored under a version older
	// than the last Invalidate is never returned.
	Put(ctx context.Context, handle, path, version string, page *PublicPage) error
	Invalidate(ctx context.Context, handle string) error
}

// CursorSigner is the outbound port for signing and verifying cursor tokens.
type CursorSigner interface {
	// Sign returns signed cursor token = base64url(payload) + "." + base64url(algo(payloadB64))
	Sign(payload []byte) (string, error)
	// Verify returns the original payload after validating signature
	Verify(token string) ([]byte, error)
}
