// Package testdb provides a PostgreSQL testcontainer shared across the
// integration tests. Import it from external test packages only.
package testdb

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"library-service/internal/auth"
	"library-service/internal/book"
	"library-service/internal/borrow"
	"library-service/internal/category"
	"library-service/internal/db"
	"library-service/internal/rating"
	"library-service/internal/user"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	sharedContainer *PostgresContainer
	sharedOnce      sync.Once
)

// PostgresContainer wraps the postgres testcontainer.
type PostgresContainer struct {
	Container *postgres.PostgresContainer
	DB        *bun.DB
	DSN       string
}

// SetupSharedPostgres creates a single PostgreSQL container shared across all
// tests in the package. Tests using the shared container cannot run in
// parallel.
func SetupSharedPostgres(t *testing.T) *PostgresContainer {
	t.Helper()

	sharedOnce.Do(func() {
		ctx := context.Background()
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("testdb"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2),
			),
		)
		require.NoError(t, err)

		connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
		bdb := bun.NewDB(sqldb, pgdialect.New())

		err = bdb.Ping()
		require.NoError(t, err)

		sharedContainer = &PostgresContainer{
			Container: pgContainer,
			DB:        bdb,
			DSN:       connStr,
		}
	})

	return sharedContainer
}

func (pc *PostgresContainer) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if pc.DB != nil {
		pc.DB.Close()
	}

	if pc.Container != nil {
		if err := pc.Container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
}

// MigrateAll creates every table and applies the cross-table constraints.
// The constraint pass references all tables, so tests always migrate the
// full schema even when they touch only one of them.
func (pc *PostgresContainer) MigrateAll(t *testing.T) {
	t.Helper()

	err := db.RunMigrations(context.Background(), pc.DB,
		(*user.User)(nil),
		(*user.Role)(nil),
		(*user.UserRole)(nil),
		(*auth.RefreshToken)(nil),
		(*category.Category)(nil),
		(*book.Book)(nil),
		(*rating.Rating)(nil),
		(*borrow.Loan)(nil),
	)
	require.NoError(t, err, "failed to run migrations")
}

// SeedRoles inserts the admin and user roles once per schema.
func (pc *PostgresContainer) SeedRoles(t *testing.T) {
	t.Helper()
	require.NoError(t, user.SeedRoles(context.Background(), pc.DB))
}

func CleanupTables(t *testing.T, bdb *bun.DB, tables ...string) {
	t.Helper()

	ctx := context.Background()

	for _, table := range tables {
		_, err := bdb.ExecContext(ctx, "TRUNCATE "+table+" RESTART IDENTITY CASCADE")
		require.NoError(t, err, "failed to truncate table: %s", table)
	}
}
