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

package pg

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"linkbio/core/bio/domain"
	"linkbio/modules/db"

	"github.com/gofrs/uuid/v5"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"
)

var _ domain.ReadStore = (*PostgresReader)(nil)

type PostgresReader struct {
	pool db.ReaderConnectionManager // calls Reader() at runtime
}

// NewPostgresReader creates a reader that calls Reader() at runtime for load balancing.
//
// Reads use dynamic queries instead of prepared statements so that every call
// can land on a different replica.
func NewPostgresReader(pool db.ReaderConnectionManager) *PostgresReader {
	return &PostgresReader{pool: pool}
}

func (r *PostgresReader) GetProfileByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	query := psql.Select(
		sm.Columns(columns(profileColumns)...),
		sm.From(tableProfiles),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	row, err := bob.One(ctx, r.pool.Reader(), query, scan.StructMapper[ProfileRow]())
	if err != nil {
		return nil, wrapError(err)
	}
	p := toProfile(row)
	return &p, nil
}

func (r *PostgresReader) GetProfileByHandle(ctx context.Context, handle string) (*domain.Profile, error) {
	query := psql.Select(
		sm.Columns(columns(profileColumns)...),
		sm.From(tableProfiles),
		sm.Where(psql.Quote("handle").EQ(psql.Arg(handle))),
	)
	row, err := bob.One(ctx, r.pool.Reader(), query, scan.StructMapper[ProfileRow]())
	if err != nil {
		return nil, wrapError(err)
	}
	p := toProfile(row)
	return &p, nil
}

// ListProfilesByOwner implements ReadStore (pivot-based keyset).
func (r *PostgresReader) ListProfilesByOwner(ctx context.Context, ownerID uuid.UUID, pivot *domain.Pivot, limit int) ([]domain.Profile, error) {
	if limit <= 0 {
		return nil, domain.ErrValidation
	}

	if pivot == nil {
		query := psql.Select(
			sm.Columns(columns(profileColumns)...),
			sm.From(tableProfiles),
			sm.Where(psql.Quote("owner_id").EQ(psql.Arg(ownerID))),
			sm.OrderBy("created_at").Asc(),
			sm.OrderBy("id").Asc(),
			sm.Limit(limit),
		)
		profiles, err := bob.Allx[profileTransformer](ctx, r.pool.Reader(), query, scan.StructMapper[ProfileRow]())
		if err != nil {
			slog.ErrorContext(ctx, "ListProfilesByOwner first page error", slog.Any("error", err))
			return nil, wrapError(err)
		}
		return profiles, nil
	}

	// Backward pages are read nearest-first and flipped afterwards.
	comparator, order := ">", "ASC"
	if pivot.Direction == domain.DESC {
		comparator, order = "<", "DESC"
	}

	raw := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1
		  AND (created_at, id) %s ($2, $3)
		ORDER BY created_at %s, id %s
		LIMIT $4
	`, strings.Join(profileColumns, ", "), tableProfiles, comparator, order, order)

	q := psql.RawQuery(raw, ownerID, pivot.CreatedAt, pivot.ID, limit)
	profiles, err := bob.Allx[profileTransformer](ctx, r.pool.Reader(), q, scan.StructMapper[ProfileRow]())
	if err != nil {
		slog.ErrorContext(ctx, "ListProfilesByOwner query error", slog.Any("error", err))
		return nil, wrapError(err)
	}
	if pivot.Direction == domain.DESC {
		slices.Reverse(profiles)
	}
	return profiles, nil
}

func (r *PostgresReader) HandleExists(ctx context.Context, handle string) (bool, error) {
	q := psql.RawQuery(`SELECT EXISTS (SELECT 1 FROM profiles WHERE handle = $1)`, handle)
	exists, err := bob.One(ctx, r.pool.Reader(), q, scan.SingleColumnMapper[bool])
	if err != nil {
		return false, wrapError(err)
	}
	return exists, nil
}

func (r *PostgresReader) GetPage(ctx context.Context, profileID, pageID uuid.UUID) (*domain.Page, error) {
	return getPage(ctx, r.pool.Reader(), profileID, pageID)
}

func (r *PostgresReader) GetPageBySlug(ctx context.Context, profileID uuid.UUID, slug string) (*domain.Page, error) {
	query := psql.Select(
		sm.Columns(columns(pageColumns)...),
		sm.From(tablePages),
		sm.Where(psql.Quote("profile_id").EQ(psql.Arg(profileID))),
		sm.Where(psql.Quote("slug").EQ(psql.Arg(slug))),
	)
	row, err := bob.One(ctx, r.pool.Reader(), query, scan.StructMapper[PageRow]())
	if err != nil {
		return nil, wrapError(err)
	}
	p := toPage(row)
	return &p, nil
}

func (r *PostgresReader) ListPages(ctx context.Context, profileID uuid.UUID) ([]domain.Page, error) {
	query := psql.Select(
		sm.Columns(columns(pageColumns)...),
		sm.From(tablePages),
		sm.Where(psql.Quote("profile_id").EQ(psql.Arg(profileID))),
		sm.OrderBy("created_at").Asc(),
		sm.OrderBy("id").Asc(),
	)
	pages, err := bob.Allx[pageTransformer](ctx, r.pool.Reader(), query, scan.StructMapper[PageRow]())
	if err != nil {
		return nil, wrapError(err)
	}
	return pages, nil
}

func (r *PostgresReader) ListBlocks(ctx context.Context, placement domain.Placement) ([]domain.Block, error) {
	return listBlocks(ctx, r.pool.Reader(), placement, false)
}

func (r *PostgresReader) ListRecommendations(ctx context.Context, profileID uuid.UUID) ([]domain.Recommendation, error) {
	query := psql.Select(
		sm.Columns(columns(recommendationColumns)...),
		sm.From(tableRecommendations),
		sm.Where(psql.Quote("profile_id").EQ(psql.Arg(profileID))),
		sm.OrderBy("created_at").Asc(),
		sm.OrderBy("id").Asc(),
	)
	out, err := bob.Allx[recommendationTransformer](ctx, r.pool.Reader(), query, scan.StructMapper[RecommendationRow]())
	if err != nil {
		return nil, wrapError(err)
	}
	return out, nil
}

func (r *PostgresReader) ListLinks(ctx context.Context, profileID uuid.UUID) ([]domain.Link, error) {
	query := psql.Select(
		sm.Columns(columns(linkColumns)...),
		sm.From(tableLinks),
		sm.Where(psql.Quote("profile_id").EQ(psql.Arg(profileID))),
		sm.OrderBy("created_at").Asc(),
		sm.OrderBy("id").Asc(),
	)
	out, err := bob.Allx[linkTransformer](ctx, r.pool.Reader(), query, scan.StructMapper[LinkRow]())
	if err != nil {
		return nil, wrapError(err)
	}
	return out, nil
}

const collectionSelect = `
	SELECT c.id, c.profile_id, c.name, c.description, c.created_at, c.updated_at,
	       coalesce(string_agg(ci.recommendation_id::text, ',' ORDER BY ci.position), '') AS items
	FROM collections c
	LEFT JOIN collection_items ci ON ci.collection_id = c.id
`

func (r *PostgresReader) ListCollections(ctx context.Context, profileID uuid.UUID) ([]domain.Collection, error) {
	q := psql.RawQuery(collectionSelect+`
		WHERE c.profile_id = $1
		GROUP BY c.id
		ORDER BY c.created_at ASC, c.id ASC
	`, profileID)
	out, err := bob.Allx[collectionTransformer](ctx, r.pool.Reader(), q, scan.StructMapper[CollectionRow]())
	if err != nil {
		return nil, wrapError(err)
	}
	return out, nil
}

func (r *PostgresReader) GetCollection(ctx context.Context, profileID, collectionID uuid.UUID) (*domain.Collection, error) {
	q := psql.RawQuery(collectionSelect+`
		WHERE c.profile_id = $1 AND c.id = $2
		GROUP BY c.id
	`, profileID, collectionID)
	row, err := bob.One(ctx, r.pool.Reader(), q, scan.StructMapper[CollectionRow]())
	if err != nil {
		return nil, wrapError(err)
	}
	c, err := toCollection(row)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListUnnormalizedPlacements finds placement groups whose orders are not 1..N:
// a group is dense exactly when min = 1, max = count and no order repeats.
func (r *PostgresReader) ListUnnormalizedPlacements(ctx context.Context, limit int) ([]domain.Placement, error) {
	q := psql.RawQuery(`
		SELECT profile_id, page_id
		FROM blocks
		GROUP BY profile_id, page_id
		HAVING min(display_order) <> 1
		    OR max(display_order) <> count(*)
		    OR count(DISTINCT display_order) <> count(*)
		ORDER BY profile_id, page_id NULLS FIRST
		LIMIT $1
	`, limit)
	out, err := bob.Allx[placementTransformer](ctx, r.pool.Reader(), q, scan.StructMapper[PlacementRow]())
	if err != nil {
		return nil, wrapError(err)
	}
	return out, nil
}

// Shared by the reader and the transaction.

func getPage(ctx context.Context, exec bob.Executor, profileID, pageID uuid.UUID) (*domain.Page, error) {
	query := psql.Select(
		sm.Columns(columns(pageColumns)...),
		sm.From(tablePages),
		sm.Where(psql.Quote("id").EQ(psql.Arg(pageID))),
		sm.Where(psql.Quote("profile_id").EQ(psql.Arg(profileID))),
	)
	row, err := bob.One(ctx, exec, query, scan.StructMapper[PageRow]())
	if err != nil {
		return nil, wrapError(err)
	}
	p := toPage(row)
	return &p, nil
}

// listBlocks reads one placement in display order. page_id IS NOT DISTINCT FROM
// matches the unassigned group when pageID is nil.
func listBlocks(ctx context.Context, exec bob.Executor, placement domain.Placement, forUpdate bool) ([]domain.Block, error) {
	raw := fmt.Sprintf(`
		SELECT %s
		FROM blocks
		WHERE profile_id = $1 AND page_id IS NOT DISTINCT FROM $2::uuid
		ORDER BY display_order ASC, id ASC
	`, strings.Join(blockColumns, ", "))
	if forUpdate {
		raw += " FOR UPDATE"
	}
	q := psql.RawQuery(raw, placement.ProfileID, toNullUUID(placement.PageID))
	blocks, err := bob.Allx[blockTransformer](ctx, exec, q, scan.StructMapper[BlockRow]())
	if err != nil {
		return nil, wrapError(err)
	}
	return blocks, nil
}
