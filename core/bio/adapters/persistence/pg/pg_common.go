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
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkbio/core/bio/domain"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stephenafamo/bob"
)

// Table names. Kept together so raw queries and builders agree.
const (
	tableProfiles        = "profiles"
	tablePages           = "pages"
	tableBlocks          = "blocks"
	tableRecommendations = "recommendations"
	tableLinks           = "links"
	tableCollections     = "collections"
	tableCollectionItems = "collection_items"
)

var (
	profileColumns        = []string{"id", "owner_id", "handle", "display_name", "bio", "avatar_url", "default_page_type", "default_page_id", "version_number", "created_at", "updated_at"}
	pageColumns           = []string{"id", "profile_id", "name", "slug", "created_at"}
	blockColumns          = []string{"id", "profile_id", "page_id", "kind", "display_order", "content_id", "payload", "created_at"}
	recommendationColumns = []string{"id", "profile_id", "title", "url", "image_url", "description", "created_at"}
	linkColumns           = []string{"id", "profile_id", "title", "url", "created_at"}
)

type (
	ProfileRow struct {
		ID              uuid.UUID      `db:"id"`
		OwnerID         uuid.UUID      `db:"owner_id"`
		Handle          string         `db:"handle"`
		DisplayName     string         `db:"display_name"`
		Bio             string         `db:"bio"`
		AvatarURL       sql.NullString `db:"avatar_url"`
		DefaultPageType string         `db:"default_page_type"`
		DefaultPageID   uuid.NullUUID  `db:"default_page_id"`
		Version         int64          `db:"version_number"`
		CreatedAt       time.Time      `db:"created_at"`
		UpdatedAt       time.Time      `db:"updated_at"`
	}

	PageRow struct {
		ID        uuid.UUID `db:"id"`
		ProfileID uuid.UUID `db:"profile_id"`
		Name      string    `db:"name"`
		Slug      string    `db:"slug"`
		CreatedAt time.Time `db:"created_at"`
	}

	BlockRow struct {
		ID           uuid.UUID     `db:"id"`
		ProfileID    uuid.UUID     `db:"profile_id"`
		PageID       uuid.NullUUID `db:"page_id"`
		Kind         string        `db:"kind"`
		DisplayOrder int           `db:"display_order"`
		ContentID    uuid.NullUUID `db:"content_id"`
		Payload      []byte        `db:"payload"`
		CreatedAt    time.Time     `db:"created_at"`
	}

	RecommendationRow struct {
		ID          uuid.UUID      `db:"id"`
		ProfileID   uuid.UUID      `db:"profile_id"`
		Title       string         `db:"title"`
		URL         string         `db:"url"`
		ImageURL    sql.NullString `db:"image_url"`
		Description string         `db:"description"`
		CreatedAt   time.Time      `db:"created_at"`
	}

	LinkRow struct {
		ID        uuid.UUID `db:"id"`
		ProfileID uuid.UUID `db:"profile_id"`
		Title     string    `db:"title"`
		URL       string    `db:"url"`
		CreatedAt time.Time `db:"created_at"`
	}

	// CollectionRow carries the ordered item ids as a comma separated list
	// (string_agg), which scans through database/sql without array support.
	CollectionRow struct {
		ID          uuid.UUID `db:"id"`
		ProfileID   uuid.UUID `db:"profile_id"`
		Name        string    `db:"name"`
		Description string    `db:"description"`
		Items       string    `db:"items"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	PlacementRow struct {
		ProfileID uuid.UUID     `db:"profile_id"`
		PageID    uuid.NullUUID `db:"page_id"`
	}
)

func nullablePtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func toNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func toProfile(row ProfileRow) domain.Profile {
	return domain.Profile{
		ID:              row.ID,
		OwnerID:         row.OwnerID,
		Handle:          row.Handle,
		DisplayName:     row.DisplayName,
		Bio:             row.Bio,
		AvatarURL:       stringPtr(row.AvatarURL),
		DefaultPageType: domain.PageType(row.DefaultPageType),
		DefaultPageID:   nullablePtr(row.DefaultPageID),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		Version:         row.Version,
	}
}

func toPage(row PageRow) domain.Page {
	return domain.Page(row)
}

func toBlock(row BlockRow) (domain.Block, error) {
	b := domain.Block{
		ID:           row.ID,
		ProfileID:    row.ProfileID,
		PageID:       nullablePtr(row.PageID),
		Kind:         domain.BlockKind(row.Kind),
		DisplayOrder: row.DisplayOrder,
		ContentID:    nullablePtr(row.ContentID),
		CreatedAt:    row.CreatedAt,
	}
	if len(row.Payload) > 0 {
		var p domain.Payload
		if err := json.Unmarshal(row.Payload, &p); err != nil {
			return domain.Block{}, fmt.Errorf("decode payload of block %s: %w", row.ID, err)
		}
		b.Payload = &p
	}
	return b, nil
}

func toRecommendation(row RecommendationRow) domain.Recommendation {
	return domain.Recommendation{
		ID:          row.ID,
		ProfileID:   row.ProfileID,
		Title:       row.Title,
		URL:         row.URL,
		ImageURL:    stringPtr(row.ImageURL),
		Description: row.Description,
		CreatedAt:   row.CreatedAt,
	}
}

func toLink(row LinkRow) domain.Link {
	return domain.Link(row)
}

func toCollection(row CollectionRow) (domain.Collection, error) {
	c := domain.Collection{
		ID:          row.ID,
		ProfileID:   row.ProfileID,
		Name:        row.Name,
		Description: row.Description,
		Items:       []uuid.UUID{},
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.Items == "" {
		return c, nil
	}
	for _, s := range strings.Split(row.Items, ",") {
		id, err := uuid.FromString(s)
		if err != nil {
			return domain.Collection{}, fmt.Errorf("collection %s item %q: %w", row.ID, s, err)
		}
		c.Items = append(c.Items, id)
	}
	return c, nil
}

func toPlacement(row PlacementRow) domain.Placement {
	return domain.Placement{ProfileID: row.ProfileID, PageID: nullablePtr(row.PageID)}
}

// Transformers for bob.Allx.
type (
	profileTransformer        struct{}
	pageTransformer           struct{}
	blockTransformer          struct{}
	recommendationTransformer struct{}
	linkTransformer           struct{}
	collectionTransformer     struct{}
	placementTransformer      struct{}
)

func (profileTransformer) TransformScanned(rows []ProfileRow) ([]domain.Profile, error) {
	out := make([]domain.Profile, len(rows))
	for i, r := range rows {
		out[i] = toProfile(r)
	}
	return out, nil
}

func (pageTransformer) TransformScanned(rows []PageRow) ([]domain.Page, error) {
	out := make([]domain.Page, len(rows))
	for i, r := range rows {
		out[i] = toPage(r)
	}
	return out, nil
}

func (blockTransformer) TransformScanned(rows []BlockRow) ([]domain.Block, error) {
	out := make([]domain.Block, len(rows))
	for i, r := range rows {
		b, err := toBlock(r)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func (recommendationTransformer) TransformScanned(rows []RecommendationRow) ([]domain.Recommendation, error) {
	out := make([]domain.Recommendation, len(rows))
	for i, r := range rows {
		out[i] = toRecommendation(r)
	}
	return out, nil
}

func (linkTransformer) TransformScanned(rows []LinkRow) ([]domain.Link, error) {
	out := make([]domain.Link, len(rows))
	for i, r := range rows {
		out[i] = toLink(r)
	}
	return out, nil
}

func (collectionTransformer) TransformScanned(rows []CollectionRow) ([]domain.Collection, error) {
	out := make([]domain.Collection, len(rows))
	for i, r := range rows {
		c, err := toCollection(r)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func (placementTransformer) TransformScanned(rows []PlacementRow) ([]domain.Placement, error) {
	out := make([]domain.Placement, len(rows))
	for i, r := range rows {
		out[i] = toPlacement(r)
	}
	return out, nil
}

// wrapError centralizes mapping of DB errors to domain errors.
//
// On pgx error handling:
// https://github.com/jackc/pgx/wiki/Error-Handling
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, domain.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, domain.ErrNotFound)
		case "23514", "22P02": // check_violation, invalid_text_representation
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, domain.ErrValidation)
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			return fmt.Errorf("%s: %w", pgErr.Code, domain.ErrTransient)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) ||
		pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}

	return err
}

// inTxQueryStmt rebinds a QueryStmt to a transaction.
func inTxQueryStmt[Arg any, T any, Ts ~[]T](
	ctx context.Context,
	stmt bob.QueryStmt[Arg, T, Ts],
	tx bob.Tx,
) bob.QueryStmt[Arg, T, Ts] {
	// Copy the original
	txStmt := stmt
	// Rebind inner Stmt to the transaction
	txStmt.Stmt = bob.InTx(ctx, stmt.Stmt, tx)
	return txStmt
}

func marshalPayload(p *domain.Payload) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// columns adapts a column list to the variadic any of bob's builders.
func columns(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}
