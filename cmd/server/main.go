package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/adapter/httpserver"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/adapter/metrics"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/adapter/postgres"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/adapter/redis"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/adapter/websocket"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/app"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/broadcast"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/domain"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/platform/config"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/platform/logging"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/platform/retry"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/platform/version"
	"golang.org/x/sync/errgroup"
)

const startupTimeout = 30 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupDB connects with backoff, since the database often starts alongside the app, then migrates.
func setupDB(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, clock clockwork.Clock) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	opts := postgres.PoolOptions{
		MaxConns:       cfg.DBMaxConns,
		ConnectTimeout: cfg.DBConnectTimeout,
		IdleTimeout:    cfg.DBIdleTimeout,
		Tracer:         postgres.NewQueryTracer(metrics.NewDBMetrics(reg), clock),
	}

	policy := retry.Policy{
		MaxAttempts:    6,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		Clock:          clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Database not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}

	pool, err := retry.Do(ctx, policy, classifyConnectError, func(ctx context.Context) (*pgxpool.Pool, error) {
		return postgres.Connect(ctx, cfg.DatabaseURL, opts)
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

// classifyConnectError stops on a malformed DATABASE_URL; everything else may be transient.
func classifyConnectError(err error) retry.Action {
	var parseErr *pgconn.ParseConfigError
	if errors.As(err, &parseErr) {
		return retry.Stop
	}
	return retry.Retry
}

func setupRedis(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) *goredis.Client {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL, metrics.NewRedisMetrics(reg))
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := metrics.NewRegistry()

	pool := setupDB(ctx, cfg, registry, clock)
	defer pool.Close()

	healthChecks := []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
	}

	gatewayMetrics := metrics.NewGatewayMetrics(registry)
	gateway := broadcast.NewGateway(gatewayMetrics, clock)

	var publisher domain.MessagePublisher = gateway
	var subscription *redis.Subscription
	if cfg.RedisURL != "" {
		redisClient := setupRedis(ctx, cfg, registry)
		defer func() { _ = redisClient.Close() }()

		relay := redis.NewRelay(redisClient, gateway, metrics.NewRelayMetrics(registry))
		sub, err := relay.Subscribe(ctx)
		if err != nil {
			slog.Error("Failed to subscribe to relay channel", "error", err)
			os.Exit(1)
		}
		subscription = sub
		publisher = relay

		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
		slog.Info("Cross-instance relay enabled", "channel", redis.RelayChannel)
	}

	appSvc := app.NewService(postgres.NewUserRepo(pool), postgres.NewMessageRepo(pool), publisher)

	if cfg.SeedDefaultUser {
		if err := appSvc.EnsureDefaultUser(ctx); err != nil {
			slog.Error("Failed to seed default user", "error", err)
			os.Exit(1)
		}
	}

	wsHandler := websocket.NewHandler(gateway, appSvc, gatewayMetrics,
		websocket.Limits{MaxConnections: cfg.MaxWebSocketConnections, MaxPerIP: cfg.MaxConnectionsPerIP},
		websocket.NewCheckOrigin(cfg.Origins(), cfg.IsDevelopment()),
	)

	srv := httpserver.NewServer(cfg, appSvc, wsHandler.Serve, registry, healthChecks)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)

	if subscription != nil {
		g.Go(func() error {
			subscription.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// hijacked WebSocket connections outlive the HTTP server; close them explicitly
		gateway.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}
