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
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkbio/core/bio/domain"
	"linkbio/modules/db"

	"github.com/gofrs/uuid/v5"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/stephenafamo/scan"
)

var (
	_ domain.WriteStore = (*PostgresWriter)(nil)
	_ domain.WriteTx    = (*writerTx)(nil)
)

type (
	PostgresWriter struct {
		txm db.TxManager

		createProfileStmt bob.QueryStmt[createProfileArgs, ProfileRow, []ProfileRow]
		createPageStmt    bob.QueryStmt[createPageArgs, PageRow, []PageRow]
		insertBlockStmt   bob.QueryStmt[insertBlockArgs, BlockRow, []BlockRow]
		createLinkStmt    bob.QueryStmt[createLinkArgs, LinkRow, []LinkRow]
		createRcmdStmt    bob.QueryStmt[createRecommendationArgs, RecommendationRow, []RecommendationRow]
	}

	createProfileArgs struct {
		ID          uuid.UUID      `db:"id"`
		OwnerID     uuid.UUID      `db:"owner_id"`
		Handle      string         `db:"handle"`
		DisplayName string         `db:"display_name"`
		Bio         string         `db:"bio"`
		AvatarURL   sql.NullString `db:"avatar_url"`
		CreatedAt   time.Time      `db:"created_at"`
		UpdatedAt   time.Time      `db:"updated_at"`
	}

	createPageArgs struct {
		ID        uuid.UUID `db:"id"`
		ProfileID uuid.UUID `db:"profile_id"`
		Name      string    `db:"name"`
		Slug      string    `db:"slug"`
		CreatedAt time.Time `db:"created_at"`
	}

	insertBlockArgs struct {
		ID           uuid.UUID     `db:"id"`
		ProfileID    uuid.UUID     `db:"profile_id"`
		PageID       uuid.NullUUID `db:"page_id"`
		Kind         string        `db:"kind"`
		DisplayOrder int           `db:"display_order"`
		ContentID    uuid.NullUUID `db:"content_id"`
		Payload      []byte        `db:"payload"`
		CreatedAt    time.Time     `db:"created_at"`
	}

	createLinkArgs struct {
		ID        uuid.UUID `db:"id"`
		ProfileID uuid.UUID `db:"profile_id"`
		Title     string    `db:"title"`
		URL       string    `db:"url"`
		CreatedAt time.Time `db:"created_at"`
	}

	createRecommendationArgs struct {
		ID          uuid.UUID      `db:"id"`
		ProfileID   uuid.UUID      `db:"profile_id"`
		Title       string         `db:"title"`
		URL         string         `db:"url"`
		ImageURL    sql.NullString `db:"image_url"`
		Description string         `db:"description"`
		CreatedAt   time.Time      `db:"created_at"`
	}
)

func namedValues(cols []string) []bob.Expression {
	out := make([]bob.Expression, len(cols))
	for i, c := range cols {
		out[i] = bob.Named(c)
	}
	return out
}

// NewPostgresWriter creates a writer with the static inserts prepared on the primary.
func NewPostgresWriter(ctx context.Context, pool db.ConnectionPool) (*PostgresWriter, error) {
	primary := pool.Writer().(bob.DB)
	w := &PostgresWriter{txm: pool}

	var err error

	profileInsert := []string{"id", "owner_id", "handle", "display_name", "bio", "avatar_url", "created_at", "updated_at"}
	w.createProfileStmt, err = bob.PrepareQuery[createProfileArgs](ctx, primary, psql.Insert(
		im.Into(tableProfiles, profileInsert...),
		im.Values(namedValues(profileInsert)...),
		im.Returning(columns(profileColumns)...),
	), scan.StructMapper[ProfileRow]())
	if err != nil {
		return nil, fmt.Errorf("prepare create profile: %w", err)
	}

	w.createPageStmt, err = bob.PrepareQuery[createPageArgs](ctx, primary, psql.Insert(
		im.Into(tablePages, pageColumns...),
		im.Values(namedValues(pageColumns)...),
		im.Returning(columns(pageColumns)...),
	), scan.StructMapper[PageRow]())
	if err != nil {
		return nil, fmt.Errorf("prepare create page: %w", err)
	}

	w.insertBlockStmt, err = bob.PrepareQuery[insertBlockArgs](ctx, primary, psql.Insert(
		im.Into(tableBlocks, blockColumns...),
		im.Values(namedValues(blockColumns)...),
		im.Returning(columns(blockColumns)...),
	), scan.StructMapper[BlockRow]())
	if err != nil {
		return nil, fmt.Errorf("prepare insert block: %w", err)
	}

	w.createLinkStmt, err = bob.PrepareQuery[createLinkArgs](ctx, primary, psql.Insert(
		im.Into(tableLinks, linkColumns...),
		im.Values(namedValues(linkColumns)...),
		im.Returning(columns(linkColumns)...),
	), scan.StructMapper[LinkRow]())
	if err != nil {
		return nil, fmt.Errorf("prepare create link: %w", err)
	}

	w.createRcmdStmt, err = bob.PrepareQuery[createRecommendationArgs](ctx, primary, psql.Insert(
		im.Into(tableRecommendations, recommendationColumns...),
		im.Values(namedValues(recommendationColumns)...),
		im.Returning(columns(recommendationColumns)...),
	), scan.StructMapper[RecommendationRow]())
	if err != nil {
		return nil, fmt.Errorf("prepare create recommendation: %w", err)
	}

	return w, nil
}

// WithTx implements WriteStore transaction support. Commit failures, including
// the deferred ordering constraint, are mapped like statement failures.
func (w *PostgresWriter) WithTx(ctx context.Context, fn func(ctx context.Context, tx domain.WriteTx) error) error {
	return wrapError(w.txm.WithTx(ctx, w.txFn(fn)))
}

// WithTimeoutTx implements WriteStore transaction support with timeout.
func (w *PostgresWriter) WithTimeoutTx(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, tx domain.WriteTx) error) error {
	return wrapError(w.txm.WithTimeoutTx(ctx, timeout, w.txFn(fn)))
}

func (w *PostgresWriter) txFn(fn func(ctx context.Context, tx domain.WriteTx) error) db.TxFn {
	return func(ctx context.Context, q db.Querier) error {
		tx, ok := q.(bob.Tx)
		if !ok {
			return fmt.Errorf("querier is not a transaction")
		}
		return fn(ctx, &writerTx{parent: w, tx: tx})
	}
}

// writerTx is a transaction-scoped writer that reuses prepared statements.
type writerTx struct {
	parent *PostgresWriter
	tx     bob.Tx
}

func (t *writerTx) CreateProfile(ctx context.Context, p domain.Profile) (*domain.Profile, error) {
	stmt := inTxQueryStmt(ctx, t.parent.createProfileStmt, t.tx)
	row, err := stmt.One(ctx, createProfileArgs{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Handle:      p.Handle,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		AvatarURL:   toNullString(p.AvatarURL),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	})
	if err != nil {
		return nil, wrapError(err)
	}
	out := toProfile(row)
	return &out, nil
}

func (t *writerTx) LockProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	q := psql.RawQuery(fmt.Sprintf(`SELECT %s FROM profiles WHERE id = $1 FOR UPDATE`, strings.Join(profileColumns, ", ")), id)
	row, err := bob.One(ctx, t.tx, q, scan.StructMapper[ProfileRow]())
	if err != nil {
		return nil, wrapError(err)
	}
	out := toProfile(row)
	return &out, nil
}

// ModifyProfile is left unprepared because the SET clause is truly dynamic.
func (t *writerTx) ModifyProfile(ctx context.Context, id uuid.UUID, version int64, patch domain.ProfilePatch) (*domain.Profile, error) {
	query := psql.Update(
		um.Table(tableProfiles),
		um.Where(psql.Quote("id").EQ(psql.Arg(id))),
		um.Where(psql.Quote("version_number").EQ(psql.Arg(version))),
	)

	if patch.Handle != nil {
		query.Apply(um.SetCol("handle").To(psql.Arg(*patch.Handle)))
	}
	if patch.DisplayName != nil {
		query.Apply(um.SetCol("display_name").To(psql.Arg(*patch.DisplayName)))
	}
	if patch.Bio != nil {
		query.Apply(um.SetCol("bio").To(psql.Arg(*patch.Bio)))
	}
	if patch.AvatarSet {
		if patch.AvatarNull {
			query.Apply(um.SetCol("avatar_url").To(psql.Raw("NULL")))
		} else {
			query.Apply(um.SetCol("avatar_url").To(psql.Arg(patch.AvatarURL)))
		}
	}

	// Always increment version for optimistic locking
	query.Apply(
		um.SetCol("version_number").To(psql.Raw("version_number + 1")),
		um.SetCol("updated_at").To(psql.Raw("now()")),
		um.Returning(columns(profileColumns)...),
	)

	row, err := bob.One(ctx, t.tx, query, scan.StructMapper[ProfileRow]())
	if errors.Is(err, sql.ErrNoRows) {
		// The row is locked by the caller, so a miss means the version moved.
		return nil, domain.ErrPrecondition
	}
	if err != nil {
		return nil, wrapError(err)
	}
	out := toProfile(row)
	return &out, nil
}

func (t *writerTx) DeleteProfile(ctx context.Context, id uuid.UUID, version int64) error {
	q := psql.RawQuery(`DELETE FROM profiles WHERE id = $1 AND version_number = $2 RETURNING id`, id, version)
	_, err := bob.One(ctx, t.tx, q, scan.SingleColumnMapper[uuid.UUID])
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrPrecondition
	}
	return wrapError(err)
}

func (t *writerTx) SetDefaultPage(ctx context.Context, profileID uuid.UUID, typ domain.PageType, pageID *uuid.UUID) (*domain.Profile, error) {
	q := psql.RawQuery(fmt.Sprintf(`
		UPDATE profiles
		SET default_page_type = $2,
		    default_page_id = $3::uuid,
		    version_number = version_number + 1,
		    updated_at = now()
		WHERE id = $1
		RETURNING %s
	`, strings.Join(profileColumns, ", ")), profileID, string(typ), toNullUUID(pageID))
	row, err := bob.One(ctx, t.tx, q, scan.StructMapper[ProfileRow]())
	if err != nil {
		return nil, wrapError(err)
	}
	out := toProfile(row)
	return &out, nil
}

func (t *writerTx) GetPage(ctx context.Context, profileID, pageID uuid.UUID) (*domain.Page, error) {
	return getPage(ctx, t.tx, profileID, pageID)
}

func (t *writerTx) CreatePage(ctx context.Context, p domain.Page) (*domain.Page, error) {
	stmt := inTxQueryStmt(ctx, t.parent.createPageStmt, t.tx)
	row, err := stmt.One(ctx, createPageArgs(p))
	if err != nil {
		return nil, wrapError(err)
	}
	out := toPage(row)
	return &out, nil
}

func (t *writerTx) UpdatePage(ctx context.Context, profileID, pageID uuid.UUID, params domain.UpdatePageParams) (*domain.Page, error) {
	if params.Name == nil && params.Slug == nil {
		return nil, domain.ErrValidation
	}
	query := psql.Update(
		um.Table(tablePages),
		um.Where(psql.Quote("id").EQ(psql.Arg(pageID))),
		um.Where(psql.Quote("profile_id").EQ(psql.Arg(profileID))),
		um.Returning(columns(pageColumns)...),
	)
	if params.Name != nil {
		query.Apply(um.SetCol("name").To(psql.Arg(*params.Name)))
	}
	if params.Slug != nil {
		query.Apply(um.SetCol("slug").To(psql.Arg(*params.Slug)))
	}
	row, err := bob.One(ctx, t.tx, query, scan.StructMapper[PageRow]())
	if err != nil {
		return nil, wrapError(err)
	}
	out := toPage(row)
	return &out, nil
}

// DeletePage relies on ON DELETE CASCADE for the page's blocks.
func (t *writerTx) DeletePage(ctx context.Context, profileID, pageID uuid.UUID) error {
	q := psql.RawQuery(`DELETE FROM pages WHERE id = $1 AND profile_id = $2 RETURNING id`, pageID, profileID)
	_, err := bob.One(ctx, t.tx, q, scan.SingleColumnMapper[uuid.UUID])
	return wrapError(err)
}

func (t *writerTx) GetBlock(ctx context.Context, profileID, blockID uuid.UUID) (*domain.Block, error) {
	q := psql.RawQuery(fmt.Sprintf(`SELECT %s FROM blocks WHERE id = $1 AND profile_id = $2`, strings.Join(blockColumns, ", ")), blockID, profileID)
	row, err := bob.One(ctx, t.tx, q, scan.StructMapper[BlockRow]())
	if err != nil {
		return nil, wrapError(err)
	}
	b, err := toBlock(row)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBlocks locks the placement's rows so the whole group is rewritten by a
// single writer even when callers bypass the profile lock.
func (t *writerTx) ListBlocks(ctx context.Context, placement domain.Placement) ([]domain.Block, error) {
	return listBlocks(ctx, t.tx, placement, true)
}

func (t *writerTx) InsertBlock(ctx context.Context, b domain.Block) (*domain.Block, error) {
	payload, err := marshalPayload(b.Payload)
	if err != nil {
		return nil, err
	}
	stmt := inTxQueryStmt(ctx, t.parent.insertBlockStmt, t.tx)
	row, err := stmt.One(ctx, insertBlockArgs{
		ID:           b.ID,
		ProfileID:    b.ProfileID,
		PageID:       toNullUUID(b.PageID),
		Kind:         string(b.Kind),
		DisplayOrder: b.DisplayOrder,
		ContentID:    toNullUUID(b.ContentID),
		Payload:      payload,
		CreatedAt:    b.CreatedAt,
	})
	if err != nil {
		return nil, wrapError(err)
	}
	out, err := toBlock(row)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *writerTx) DeleteBlock(ctx context.Context, profileID, blockID uuid.UUID) error {
	q := psql.RawQuery(`DELETE FROM blocks WHERE id = $1 AND profile_id = $2 RETURNING id`, blockID, profileID)
	_, err := bob.One(ctx, t.tx, q, scan.SingleColumnMapper[uuid.UUID])
	return wrapError(err)
}

// ApplyOrder writes every change with one UPDATE ... FROM unnest. The unique
// (profile, page, order) constraint is deferred, so rows may collide mid-statement.
func (t *writerTx) ApplyOrder(ctx context.Context, placement domain.Placement, changes []domain.OrderChange) error {
	if len(changes) == 0 {
		return nil
	}
	ids := make([]string, len(changes))
	orders := make([]int32, len(changes))
	for i, c := range changes {
		ids[i] = c.BlockID.String()
		orders[i] = int32(c.Order)
	}

	q := psql.RawQuery(`
		UPDATE blocks b
		SET display_order = u.ord
		FROM unnest($1::text[], $2::int[]) AS u(id, ord)
		WHERE b.id = u.id::uuid
		  AND b.profile_id = $3
		  AND b.page_id IS NOT DISTINCT FROM $4::uuid
		RETURNING b.id
	`, ids, orders, placement.ProfileID, toNullUUID(placement.PageID))
	updated, err := bob.All(ctx, t.tx, q, scan.SingleColumnMapper[uuid.UUID])
	if err != nil {
		return wrapError(err)
	}
	if len(updated) != len(changes) {
		return fmt.Errorf("reorder touched %d of %d blocks: %w", len(updated), len(changes), domain.ErrNotFound)
	}
	return nil
}

func contentTable(kind domain.BlockKind) (string, error) {
	switch kind {
	case domain.BlockKindRecommendation:
		return tableRecommendations, nil
	case domain.BlockKindLink:
		return tableLinks, nil
	case domain.BlockKindCollection:
		return tableCollections, nil
	}
	return "", fmt.Errorf("kind %q: %w", kind, domain.ErrValidation)
}

func (t *writerTx) ContentExists(ctx context.Context, profileID uuid.UUID, kind domain.BlockKind, contentID uuid.UUID) (bool, error) {
	table, err := contentTable(kind)
	if err != nil {
		return false, err
	}
	q := psql.RawQuery(fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND profile_id = $2)`, table), contentID, profileID)
	exists, err := bob.One(ctx, t.tx, q, scan.SingleColumnMapper[bool])
	if err != nil {
		return false, wrapError(err)
	}
	return exists, nil
}

func (t *writerTx) CreateRecommendation(ctx context.Context, r domain.Recommendation) (*domain.Recommendation, error) {
	stmt := inTxQueryStmt(ctx, t.parent.createRcmdStmt, t.tx)
	row, err := stmt.One(ctx, createRecommendationArgs{
		ID:          r.ID,
		ProfileID:   r.ProfileID,
		Title:       r.Title,
		URL:         r.URL,
		ImageURL:    toNullString(r.ImageURL),
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	})
	if err != nil {
		return nil, wrapError(err)
	}
	out := toRecommendation(row)
	return &out, nil
}

func (t *writerTx) CreateLink(ctx context.Context, l domain.Link) (*domain.Link, error) {
	stmt := inTxQueryStmt(ctx, t.parent.createLinkStmt, t.tx)
	row, err := stmt.One(ctx, createLinkArgs(l))
	if err != nil {
		return nil, wrapError(err)
	}
	out := toLink(row)
	return &out, nil
}

func (t *writerTx) CreateCollection(ctx context.Context, c domain.Collection) (*domain.Collection, error) {
	q := psql.Insert(
		im.Into(tableCollections, "id", "profile_id", "name", "description", "created_at", "updated_at"),
		im.Values(psql.Arg(c.ID), psql.Arg(c.ProfileID), psql.Arg(c.Name), psql.Arg(c.Description), psql.Arg(c.CreatedAt), psql.Arg(c.UpdatedAt)),
	)
	if _, err := bob.Exec(ctx, t.tx, q); err != nil {
		return nil, wrapError(err)
	}
	if err := t.writeItems(ctx, c.ID, c.Items); err != nil {
		return nil, err
	}
	return t.getCollection(ctx, c.ProfileID, c.ID)
}

func (t *writerTx) UpdateCollection(ctx context.Context, c domain.Collection) (*domain.Collection, error) {
	q := psql.Update(
		um.Table(tableCollections),
		um.SetCol("name").To(psql.Arg(c.Name)),
		um.SetCol("description").To(psql.Arg(c.Description)),
		um.SetCol("updated_at").To(psql.Arg(c.UpdatedAt)),
		um.Where(psql.Quote("id").EQ(psql.Arg(c.ID))),
		um.Where(psql.Quote("profile_id").EQ(psql.Arg(c.ProfileID))),
		um.Returning("id"),
	)
	if _, err := bob.One(ctx, t.tx, q, scan.SingleColumnMapper[uuid.UUID]); err != nil {
		return nil, wrapError(err)
	}

	del := psql.RawQuery(`DELETE FROM collection_items WHERE collection_id = $1`, c.ID)
	if _, err := bob.Exec(ctx, t.tx, del); err != nil {
		return nil, wrapError(err)
	}
	if err := t.writeItems(ctx, c.ID, c.Items); err != nil {
		return nil, err
	}
	return t.getCollection(ctx, c.ProfileID, c.ID)
}

func (t *writerTx) writeItems(ctx context.Context, collectionID uuid.UUID, items []uuid.UUID) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	for i, id := range items {
		ids[i] = id.String()
	}
	q := psql.RawQuery(`
		INSERT INTO collection_items (collection_id, recommendation_id, position)
		SELECT $1, u.id::uuid, u.ord
		FROM unnest($2::text[]) WITH ORDINALITY AS u(id, ord)
	`, collectionID, ids)
	_, err := bob.Exec(ctx, t.tx, q)
	return wrapError(err)
}

func (t *writerTx) getCollection(ctx context.Context, profileID, collectionID uuid.UUID) (*domain.Collection, error) {
	q := psql.RawQuery(collectionSelect+`
		WHERE c.profile_id = $1 AND c.id = $2
		GROUP BY c.id
	`, profileID, collectionID)
	row, err := bob.One(ctx, t.tx, q, scan.StructMapper[CollectionRow]())
	if err != nil {
		return nil, wrapError(err)
	}
	c, err := toCollection(row)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteContent removes the referencing blocks first, then the entity itself.
// collection_items rows of a recommendation go with it by cascade.
func (t *writerTx) DeleteContent(ctx context.Context, profileID uuid.UUID, kind domain.BlockKind, contentID uuid.UUID) ([]domain.Placement, error) {
	table, err := contentTable(kind)
	if err != nil {
		return nil, err
	}

	blocks := psql.RawQuery(`
		DELETE FROM blocks
		WHERE profile_id = $1 AND kind = $2 AND content_id = $3
		RETURNING profile_id, page_id
	`, profileID, string(kind), contentID)
	rows, err := bob.All(ctx, t.tx, blocks, scan.StructMapper[PlacementRow]())
	if err != nil {
		return nil, wrapError(err)
	}

	entity := psql.RawQuery(fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND profile_id = $2 RETURNING id`, table), contentID, profileID)
	if _, err := bob.One(ctx, t.tx, entity, scan.SingleColumnMapper[uuid.UUID]); err != nil {
		return nil, wrapError(err)
	}

	seen := make(map[uuid.NullUUID]struct{}, len(rows))
	var affected []domain.Placement
	for _, r := range rows {
		if _, dup := seen[r.PageID]; dup {
			continue
		}
		seen[r.PageID] = struct{}{}
		affected = append(affected, toPlacement(r))
	}
	return affected, nil
}
