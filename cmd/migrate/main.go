// Command migrate applies or inspects the database schema outside of server startup.
//
// Usage:
//
//	migrate [flags] up          apply all pending migrations
//	migrate [flags] to VERSION  migrate up or down to VERSION (0 drops everything)
//	migrate [flags] status      print current and latest schema version
//	migrate [flags] seed        insert the default user if the users table is empty
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/adapter/postgres"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/platform/logging"
)

const commandTimeout = 2 * time.Minute

func main() {
	_ = godotenv.Load()

	var (
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "Postgres URL (or set DATABASE_URL env)")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *databaseURL == "" {
		log.Fatal("Database URL required (--database or DATABASE_URL env)")
	}
	if flag.NArg() < 1 {
		log.Fatal("Command required: up | to VERSION | status | seed")
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	logging.InitLogger(level, "text")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, *databaseURL, postgres.PoolOptions{MaxConns: 2})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	slog.Info("Connected to database", "url", sanitizeURL(*databaseURL))

	if err := run(ctx, pool, flag.Args()); err != nil {
		log.Fatalf("%s failed: %v", flag.Arg(0), err)
	}
}

func run(ctx context.Context, pool *pgxpool.Pool, args []string) error {
	switch args[0] {
	case "up":
		if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
			return err
		}
		return printStatus(ctx, pool)

	case "to":
		if len(args) < 2 {
			return fmt.Errorf("usage: to VERSION")
		}
		target, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil || target < 0 {
			return fmt.Errorf("invalid version %q", args[1])
		}
		if err := postgres.MigrateTo(ctx, pool, int32(target)); err != nil {
			return err
		}
		return printStatus(ctx, pool)

	case "status":
		return printStatus(ctx, pool)

	case "seed":
		created, err := postgres.NewUserRepo(pool).EnsureDefault(ctx)
		if err != nil {
			return err
		}
		slog.Info("Seed complete", "created_default_user", created)
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printStatus(ctx context.Context, pool *pgxpool.Pool) error {
	current, latest, err := postgres.SchemaVersion(ctx, pool)
	if err != nil {
		return err
	}
	slog.Info("Schema version", "current", current, "latest", latest, "pending", latest-current)
	return nil
}

// sanitizeURL hides the password when logging a connection string.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
