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

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"linkbio/fs"
	"linkbio/modules/db"

	"github.com/amacneil/dbmate/v2/pkg/dbmate"
	_ "github.com/amacneil/dbmate/v2/pkg/driver/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stephenafamo/bob"
)

var _ db.ConnectionPool = (*PostgresConnectionPool)(nil)

type PostgresConnectionPool struct {
	writer bob.DB

	readers []bob.DB
	mu      sync.Mutex

	cfg *PostgresConfig
	log io.Writer
}

// migrator builds a dbmate instance over the embedded migrations.
// Migrations always run against the primary.
func (p *PostgresConnectionPool) migrator() *dbmate.DB {
	m := dbmate.New(p.cfg.WriteConfig.URL())
	m.FS = fs.Migrations()
	m.MigrationsDir = []string{fs.MigrationsDir}
	m.AutoDumpSchema = false
	m.Verbose = false
	m.Log = p.log
	return m
}

// GenerateMigration creates a new, empty migration file on disk.
func (p *PostgresConnectionPool) GenerateMigration(name string) error {
	return GenerateMigration(p.cfg, name, p.log)
}

// GenerateMigration writes an empty migration into cfg.MigrationsDir. It
// needs no database connection.
func GenerateMigration(cfg *PostgresConfig, name string, log io.Writer) error {
	m := dbmate.New(cfg.WriteConfig.URL())
	m.MigrationsDir = []string{cfg.MigrationsDir}
	if log != nil {
		m.Log = log
	}
	if err := m.NewMigration(name); err != nil {
		return fmt.Errorf("generate migration %q: %w", name, err)
	}
	return nil
}

// HealthCheck implements db.ConnectionPool.
func (p *PostgresConnectionPool) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := p.writer.ExecContext(ctx, "SELECT 1")
	return err
}

// MigrateUp applies every pending migration.
func (p *PostgresConnectionPool) MigrateUp() error {
	if err := p.migrator().Migrate(); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	slog.Info("migrations applied")
	return nil
}

// MigrateDown rolls back the most recent migration.
func (p *PostgresConnectionPool) MigrateDown() error {
	if err := p.migrator().Rollback(); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	slog.Info("migration rolled back")
	return nil
}

// Reader implements db.ConnectionPool.
//
// Many strategies exist for selecting one reader from the list:
// - Health-aware selection (cool-down & circuit breakers)
// - Power of two choices
// - Retry policy
// - Read-your-write
//
// Without any profiling/edge cases to justify implementing the more complex
// choices, here we first use a simpler approach first
func (p *PostgresConnectionPool) Reader() db.Querier {
	if len(p.readers) == 0 {
		return p.Writer()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.readers[rand.IntN(len(p.readers))]
}

// WithTimeoutTx implements db.ConnectionPool.
func (p *PostgresConnectionPool) WithTimeoutTx(ctx context.Context, timeout time.Duration, fn db.TxFn) error {
	ctx, stop := context.WithTimeout(ctx, timeout)
	defer stop()

	return p.WithTx(ctx, fn)
}

// WithTx implements db.ConnectionPool.
//
// READ COMMITTED is enough: block mutations serialize on the profile row lock
// and the ordering constraint is checked at commit.
func (p *PostgresConnectionPool) WithTx(ctx context.Context, fn db.TxFn) error {
	return p.writer.RunInTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
		ReadOnly:  false,
	}, func(ctx context.Context, exec bob.Executor) error {
		// exec implements bob.Executor, which satisfies our db.Querier
		return fn(ctx, exec)
	})
}

// Shutdown implements db.ConnectionPool.
func (p *PostgresConnectionPool) Shutdown(_ context.Context) error {
	if p == nil {
		return nil
	}

	var errs []error

	if err := p.writer.Close(); err != nil {
		errs = append(errs, err)
	}

	for _, reader := range p.readers {
		if err := reader.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	// Using errors.Join() can blow up memory if we have big nested structures (https://github.com/golangci/golangci-lint/issues/5883)
	// Do a single, flat join.
	return errors.Join(errs...)
}

// Writer implements db.ConnectionPool.
func (p *PostgresConnectionPool) Writer() db.Querier {
	return p.writer
}

// Primary returns the primary (writer) bob.DB instance.
// This is used for preparing write statements.
func (p *PostgresConnectionPool) Primary() *bob.DB {
	return &p.writer
}

func New(
	ctx context.Context,
	config *PostgresConfig,
	opts PostgresOptions,
) (*PostgresConnectionPool, error) {
	writer, err := initDBFromConfig(ctx, &config.WriteConfig, opts.WriterOptions...)
	if err != nil {
		return nil, err
	}

	var readers []bob.DB
	for _, r := range config.ReadConfigs {
		reader, err := initDBFromConfig(ctx, &r, opts.ReaderOptions...)
		if err != nil {
			// A missing replica is not fatal, reads fall back to the primary.
			slog.WarnContext(ctx, "skipping read replica", slog.String("host", r.Host), slog.Any("error", err))
			continue
		}
		readers = append(readers, reader)
	}

	log := opts.MigrationLog
	if log == nil {
		log = os.Stdout
	}

	return &PostgresConnectionPool{
		writer:  writer,
		readers: readers,
		cfg:     config,
		log:     log,
	}, nil
}

func initDBFromConfig(
	ctx context.Context,
	config *PoolConfig,
	opts ...PgxConfigOption,
) (bob.DB, error) {
	poolConfig, err := pgxpool.ParseConfig(connString(config))
	if err != nil {
		return bob.DB{}, err
	}

	for _, opt := range opts {
		if opt != nil {
			opt(poolConfig)
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return bob.DB{}, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return bob.DB{}, fmt.Errorf("ping %s: %w", config.Host, err)
	}
	return bob.NewDB(stdlib.OpenDBFromPool(pool)), nil
}
