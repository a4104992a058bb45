package pg_test

import (
	"context"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"testing"

	persistence "linkbio/core/bio/adapters/persistence/pg"
	"linkbio/core/bio/domain"
	"linkbio/modules/db/postgres"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// databaseURLEnv names a disposable database; migrations are applied to it.
const databaseURLEnv = "LINKBIO_TEST_DATABASE_URL"

type pgFixture struct {
	t     *testing.T
	ctx   context.Context
	app   *domain.Application
	owner uuid.UUID
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv(databaseURLEnv))
	if dsn == "" {
		t.Skipf("postgres tests disabled; set %s to enable", databaseURLEnv)
	}

	parsed, err := pgconn.ParseConfig(dsn)
	require.NoError(t, err)
	sslMode := "disable"
	if strings.Contains(dsn, "sslmode=require") {
		sslMode = "require"
	}
	cfg := &postgres.PostgresConfig{
		WriteConfig: postgres.PoolConfig{
			Host:         parsed.Host,
			Port:         parsed.Port,
			User:         parsed.User,
			Password:     parsed.Password,
			Database:     parsed.Database,
			SSLMode:      sslMode,
			PoolMaxConns: 10,
		},
	}

	ctx := context.Background()
	pool, err := postgres.New(ctx, cfg, postgres.PostgresOptions{MigrationLog: io.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })
	require.NoError(t, pool.MigrateUp())

	writer, err := persistence.NewPostgresWriter(ctx, pool)
	require.NoError(t, err)

	return &pgFixture{
		t:     t,
		ctx:   ctx,
		app:   domain.NewApp(persistence.NewPostgresReader(pool), writer),
		owner: uuid.Must(uuid.NewV7()),
	}
}

// profile creates a profile under a fresh handle so runs do not collide.
func (f *pgFixture) profile() *domain.Profile {
	f.t.Helper()
	handle := "it-" + strings.ReplaceAll(uuid.Must(uuid.NewV4()).String(), "-", "")[:16]
	p, err := f.app.CreateProfile(f.ctx, f.owner, domain.CreateProfileParams{Handle: handle, DisplayName: handle})
	require.NoError(f.t, err)
	f.t.Cleanup(func() {
		fresh, err := f.app.GetProfile(context.Background(), f.owner, p.ID)
		if err == nil {
			_ = f.app.DeleteProfile(context.Background(), f.owner, p.ID, fresh.Version)
		}
	})
	return p
}

func (f *pgFixture) textBlocks(profileID uuid.UUID, pageID *uuid.UUID, labels ...string) []uuid.UUID {
	f.t.Helper()
	ids := make([]uuid.UUID, 0, len(labels))
	for _, label := range labels {
		b, err := f.app.AddBlock(f.ctx, f.owner, profileID, domain.AddBlockParams{
			PageID:  pageID,
			Kind:    domain.BlockKindText,
			Payload: &domain.Payload{Text: &domain.TextPayload{HTML: label}},
		})
		require.NoError(f.t, err)
		ids = append(ids, b.ID)
	}
	return ids
}

func blockLabels(t *testing.T, blocks []domain.Block) []string {
	t.Helper()
	out := make([]string, 0, len(blocks))
	for i, b := range blocks {
		require.Equal(t, i+1, b.DisplayOrder, "block %d is out of sequence", i)
		require.NotNil(t, b.Payload)
		require.NotNil(t, b.Payload.Text)
		out = append(out, b.Payload.Text.HTML)
	}
	return out
}

func TestPostgres_MoveAndDeleteKeepOrderDense(t *testing.T) {
	f := newPGFixture(t)
	p := f.profile()
	page, err := f.app.CreatePage(f.ctx, f.owner, p.ID, domain.CreatePageParams{Name: "Main"})
	require.NoError(t, err)
	ids := f.textBlocks(p.ID, &page.ID, "A", "B", "C", "D")

	// first to last renumbers every row through the deferred unique constraint
	moved, err := f.app.MoveBlock(f.ctx, f.owner, p.ID, ids[0], 1, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D", "A"}, blockLabels(t, moved))

	moved, err = f.app.MoveBlock(f.ctx, f.owner, p.ID, ids[3], 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "D", "C", "A"}, blockLabels(t, moved))

	require.NoError(t, f.app.DeleteBlock(f.ctx, f.owner, p.ID, ids[3]))
	blocks, err := f.app.ListBlocks(f.ctx, p.ID, &page.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A"}, blockLabels(t, blocks))

	_, err = f.app.MoveBlock(f.ctx, f.owner, p.ID, ids[1], 1, 9)
	assert.ErrorIs(t, err, domain.ErrValidation)
	blocks, err = f.app.ListBlocks(f.ctx, p.ID, &page.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A"}, blockLabels(t, blocks), "a rejected move leaves the order")

	// the unassigned group is its own placement
	f.textBlocks(p.ID, nil, "X", "Y")
	unassigned, err := f.app.ListBlocks(f.ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, blockLabels(t, unassigned))
}

func TestPostgres_ConcurrentMovesKeepOrderDense(t *testing.T) {
	f := newPGFixture(t)
	p := f.profile()
	page, err := f.app.CreatePage(f.ctx, f.owner, p.ID, domain.CreatePageParams{Name: "Main"})
	require.NoError(t, err)
	ids := f.textBlocks(p.ID, &page.ID, "A", "B", "C", "D", "E")

	var g errgroup.Group
	for w := range 4 {
		g.Go(func() error {
			r := rand.New(rand.NewPCG(uint64(w), 7))
			for range 10 {
				id := ids[r.IntN(len(ids))]
				if _, err := f.app.MoveBlock(context.Background(), f.owner, p.ID, id, 1, 1+r.IntN(len(ids))); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	blocks, err := f.app.ListBlocks(f.ctx, p.ID, &page.ID)
	require.NoError(t, err)
	require.Len(t, blocks, len(ids))
	assert.True(t, domain.IsDense(blocks))
	seen := map[uuid.UUID]bool{}
	for _, b := range blocks {
		seen[b.ID] = true
	}
	assert.Len(t, seen, len(ids))
}

func TestPostgres_SlugConflictCreatesNothing(t *testing.T) {
	f := newPGFixture(t)
	p := f.profile()
	_, err := f.app.CreatePage(f.ctx, f.owner, p.ID, domain.CreatePageParams{Name: "Travel Kit"})
	require.NoError(t, err)

	_, err = f.app.CreatePage(f.ctx, f.owner, p.ID, domain.CreatePageParams{Name: "travel kit"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	pages, err := f.app.ListPages(f.ctx, f.owner, p.ID)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "travel-kit", pages[0].Slug)
}

func TestPostgres_DeletingDefaultPageResetsProfile(t *testing.T) {
	f := newPGFixture(t)
	p := f.profile()
	page, err := f.app.CreatePage(f.ctx, f.owner, p.ID, domain.CreatePageParams{Name: "Main"})
	require.NoError(t, err)

	updated, err := f.app.SetDefaultPage(f.ctx, f.owner, p.ID, domain.PageTypeCustom, &page.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PageTypeCustom, updated.DefaultPageType)

	require.NoError(t, f.app.DeletePage(f.ctx, f.owner, p.ID, page.ID))
	got, err := f.app.GetProfile(f.ctx, f.owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PageTypeNone, got.DefaultPageType)
	assert.Nil(t, got.DefaultPageID)
}
