package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/platform/config"
)

//go:embed schema/*.sql
var migrationFiles embed.FS

// PoolOptions tune the connection pool. Zero values keep pgxpool defaults.
type PoolOptions struct {
	MaxConns       int32
	ConnectTimeout time.Duration
	IdleTimeout    time.Duration
	Tracer         pgx.QueryTracer
}

func Connect(ctx context.Context, databaseURL string, opts PoolOptions) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		poolCfg.MaxConns = opts.MaxConns
	}
	if opts.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}
	if opts.IdleTimeout > 0 {
		poolCfg.MaxConnIdleTime = opts.IdleTimeout
	}
	if opts.Tracer != nil {
		poolCfg.ConnConfig.Tracer = opts.Tracer
	}

	slog.Info("Database SSL mode", "sslmode", config.TLSMode(&poolCfg.ConnConfig.Config))

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connected", "max_conns", poolCfg.MaxConns, "idle_timeout", poolCfg.MaxConnIdleTime)
	return pool, nil
}

const (
	// migrationLockID is "stocks" in ASCII hex.
	migrationLockID             = 0x73746f636b73
	migrationLockReleaseTimeout = 5 * time.Second
	versionTable                = "public.schema_version"
)

// RunMigrationsWithLock applies pending migrations while holding a Postgres advisory lock,
// so concurrently starting instances migrate once.
func RunMigrationsWithLock(ctx context.Context, pool *pgxpool.Pool) error {
	return withMigrationLock(ctx, pool, func(conn *pgx.Conn) error {
		slog.Info("Running database migrations")
		return migrateTo(ctx, conn, -1)
	})
}

// MigrateTo moves the schema to targetVersion (0 drops everything). Used by cmd/migrate.
func MigrateTo(ctx context.Context, pool *pgxpool.Pool, targetVersion int32) error {
	return withMigrationLock(ctx, pool, func(conn *pgx.Conn) error {
		return migrateTo(ctx, conn, targetVersion)
	})
}

// SchemaVersion reports the applied and the latest available migration version.
func SchemaVersion(ctx context.Context, pool *pgxpool.Pool) (current, latest int32, err error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	migrator, err := newMigrator(ctx, conn.Conn())
	if err != nil {
		return 0, 0, err
	}

	current, err = migrator.GetCurrentVersion(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	return current, int32(len(migrator.Migrations)), nil
}

func withMigrationLock(ctx context.Context, pool *pgxpool.Pool, fn func(conn *pgx.Conn) error) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for migration: %w", err)
	}
	defer conn.Release()

	release, err := migrationLock(ctx, conn.Conn(), migrationLockReleaseTimeout)
	if err != nil {
		return err
	}
	defer release()

	return fn(conn.Conn())
}

func newMigrator(ctx context.Context, conn *pgx.Conn) (*migrate.Migrator, error) {
	migrationFS, err := fs.Sub(migrationFiles, "schema")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	migrator, err := migrate.NewMigrator(ctx, conn, versionTable)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := migrator.LoadMigrations(migrationFS); err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return migrator, nil
}

// migrateTo migrates to targetVersion, or to the latest version when targetVersion < 0.
func migrateTo(ctx context.Context, conn *pgx.Conn, targetVersion int32) error {
	migrator, err := newMigrator(ctx, conn)
	if err != nil {
		return err
	}

	currentVersion, err := migrator.GetCurrentVersion(ctx)
	if err != nil {
		slog.Debug("Could not get current DB version (likely fresh DB)", "error", err)
	} else {
		slog.Info("Current DB version", "version", currentVersion, "available", len(migrator.Migrations))
	}

	if targetVersion < 0 {
		err = migrator.Migrate(ctx)
	} else {
		err = migrator.MigrateTo(ctx, targetVersion)
	}
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func migrationLock(ctx context.Context, conn *pgx.Conn, releaseTimeout time.Duration) (release func(), err error) {
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return nil, fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	release = func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			slog.Error("Failed to release migration lock", "error", err)
		}
	}
	return release, nil
}
