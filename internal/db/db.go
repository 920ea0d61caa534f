package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"time"

	"library-service/internal/config"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

func New(cfg config.DatabaseConfig) *bun.DB {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		sslMode,
	)

	db := NewWithDSN(dsn)
	configurePool(db, cfg)
	return db
}

// NewWithDSN creates a new database connection with a custom DSN (useful for testing)
func NewWithDSN(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.Ping(); err != nil {
		log.Fatal("Error pinging database:", err) // Fatal is OK here - can't run without DB
	}

	slog.Info("database connected successfully")
	return db
}

func configurePool(db *bun.DB, cfg config.DatabaseConfig) {
	sqlDB := db.DB

	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = 25
	}
	sqlDB.SetMaxOpenConns(maxOpen)

	maxIdle := cfg.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = 10
	}
	sqlDB.SetMaxIdleConns(maxIdle)

	connMaxLifetime := cfg.ConnMaxLifetime
	if connMaxLifetime == 0 {
		connMaxLifetime = 300
	}
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	connMaxIdleTime := cfg.ConnMaxIdleTime
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 60
	}
	sqlDB.SetConnMaxIdleTime(time.Duration(connMaxIdleTime) * time.Second)

	slog.Info("database pool configured",
		"max_open_conns", maxOpen,
		"max_idle_conns", maxIdle,
		"conn_max_lifetime_seconds", connMaxLifetime,
		"conn_max_idle_time_seconds", connMaxIdleTime,
	)
}

func Close(db *bun.DB) {
	if db != nil {
		db.Close()
	}
}

func RunMigrations(ctx context.Context, db *bun.DB, models ...interface{}) error {
	for _, model := range models {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table for model: %w", err)
		}
	}

	if err := applyConstraints(ctx, db); err != nil {
		return err
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// applyConstraints adds the referential and uniqueness rules that bun's
// create-table path does not emit. Statements are idempotent so they can run
// on every startup.
//
// The partial unique index on borrow_records enforces at most one open loan
// per book; the borrow repository maps its violation to a conflict.
func applyConstraints(ctx context.Context, db *bun.DB) error {
	statements := []string{
		`DO $$ BEGIN
			ALTER TABLE books ADD CONSTRAINT books_category_id_fkey
				FOREIGN KEY (category_id) REFERENCES categories (id)
				ON UPDATE CASCADE ON DELETE CASCADE;
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$`,
		`DO $$ BEGIN
			ALTER TABLE borrow_records ADD CONSTRAINT borrow_records_book_id_fkey
				FOREIGN KEY (book_id) REFERENCES books (id)
				ON UPDATE CASCADE ON DELETE CASCADE;
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$`,
		`DO $$ BEGIN
			ALTER TABLE borrow_records ADD CONSTRAINT borrow_records_user_id_fkey
				FOREIGN KEY (user_id) REFERENCES users (id)
				ON UPDATE CASCADE ON DELETE CASCADE;
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$`,
		`DO $$ BEGIN
			ALTER TABLE ratings ADD CONSTRAINT ratings_book_id_fkey
				FOREIGN KEY (book_id) REFERENCES books (id) ON DELETE CASCADE;
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$`,
		`DO $$ BEGIN
			ALTER TABLE ratings ADD CONSTRAINT ratings_user_id_fkey
				FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE;
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$`,
		`DO $$ BEGIN
			ALTER TABLE user_roles ADD CONSTRAINT user_roles_user_id_fkey
				FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE;
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$`,
		`DO $$ BEGIN
			ALTER TABLE user_roles ADD CONSTRAINT user_roles_role_id_fkey
				FOREIGN KEY (role_id) REFERENCES roles (id) ON DELETE CASCADE;
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$`,
		`DO $$ BEGIN
			ALTER TABLE refresh_tokens ADD CONSTRAINT refresh_tokens_user_id_fkey
				FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE;
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$`,
		`CREATE UNIQUE INDEX IF NOT EXISTS borrow_records_one_open_per_book
			ON borrow_records (book_id) WHERE returned_at IS NULL`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply constraint: %w", err)
		}
	}
	return nil
}
