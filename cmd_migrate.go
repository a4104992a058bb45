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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"linkbio/modules/appconfig"
	"linkbio/modules/db/postgres"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Postgres schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPool(cmd.Context(), (*postgres.PostgresConnectionPool).MigrateUp)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPool(cmd.Context(), (*postgres.PostgresConnectionPool).MigrateDown)
	},
}

var migrateNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create an empty migration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return postgres.GenerateMigration(&appConfig.Postgres, args[0], cmd.OutOrStdout())
	},
}

func withPool(ctx context.Context, fn func(*postgres.PostgresConnectionPool) error) error {
	if appConfig.Store != appconfig.StorePostgres {
		return errors.New("migrations need STORE=postgres")
	}
	pool, err := postgres.New(ctx, &appConfig.Postgres, postgres.PostgresOptions{})
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() {
		if err := pool.Shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.ErrorContext(ctx, "database shutdown error", slog.Any("error", err))
		}
	}()
	return fn(pool)
}
