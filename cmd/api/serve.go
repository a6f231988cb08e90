// AngelaMos | 2026
// serve.go

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/carterperez-dev/templates/iam-service/internal/account"
	"github.com/carterperez-dev/templates/iam-service/internal/admin"
	"github.com/carterperez-dev/templates/iam-service/internal/auth"
	"github.com/carterperez-dev/templates/iam-service/internal/config"
	"github.com/carterperez-dev/templates/iam-service/internal/core"
	"github.com/carterperez-dev/templates/iam-service/internal/health"
	"github.com/carterperez-dev/templates/iam-service/internal/metrics"
	"github.com/carterperez-dev/templates/iam-service/internal/middleware"
	"github.com/carterperez-dev/templates/iam-service/internal/server"
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(
				cmd.Context(),
				syscall.SIGINT,
				syscall.SIGTERM,
			)
			defer stop()

			return run(ctx, cfg)
		},
	}

	config.BindFlags(cmd.Flags())

	return cmd
}

// store is the account backend chosen by database.driver together with the
// hooks the health and admin endpoints need.
type store struct {
	repo  account.Repository
	check health.Checker
	admin admin.HandlerConfig
	close func(ctx context.Context) error
}

//nolint:funlen // bootstrap code is inherently verbose
func run(ctx context.Context, cfg *config.Config) error {
	logger := core.NewLogger(cfg.Log, cfg.App, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"driver", cfg.Database.Driver,
	)

	telemetry, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		logger.Warn("failed to initialize telemetry", "error", err)
	}

	hasher, err := core.NewPasswordHasher(cfg.Security)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("token manager initialized",
		"algorithm", cfg.JWT.Algorithm,
		"expire", cfg.JWT.Expire,
	)

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var rdb *redis.Client
	var redisConn *core.Redis
	if cfg.Redis.URL != "" {
		redisConn, err = core.NewRedis(ctx, cfg.Redis)
		if err != nil {
			//nolint:errcheck // cleanup on startup failure
			_ = st.close(context.Background())
			return err
		}
		rdb = redisConn.Client
		st.admin.RedisStats = redisConn.PoolStats
		st.admin.RedisPing = redisConn.Ping
		logger.Info("redis connected", "pool_size", cfg.Redis.PoolSize)
	}

	accountSvc := account.NewService(st.repo, hasher, tokens, logger)

	deps := []health.Dependency{{Name: cfg.Database.Driver, Checker: st.check}}
	if redisConn != nil {
		deps = append(deps, health.Dependency{Name: "redis", Checker: redisConn})
	}
	healthHandler := health.NewHandler(deps...)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})
	router := srv.Router()

	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	var limiter *middleware.RateLimiter
	var limit func(next http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(rdb, middleware.RateLimitConfig{
			Limit:    middleware.LimitFromConfig(cfg.RateLimit),
			KeyFunc:  middleware.KeyByIPAndEndpoint,
			FailOpen: true,
		})
		limit = limiter.Handler
	}

	authenticator := middleware.Authenticator(tokens, accountSvc)

	router.Route("/v1", func(r chi.Router) {
		auth.NewHandler(accountSvc).RegisterRoutes(r, authenticator, limit)
		account.NewHandler(accountSvc).RegisterRoutes(r, authenticator)
		admin.NewHandler(st.admin).RegisterRoutes(r, authenticator)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+cfg.Server.DrainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, cfg.Server.DrainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if limiter != nil {
		limiter.Close()
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if redisConn != nil {
		if err := redisConn.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	if err := st.close(shutdownCtx); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func openStore(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (*store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		if cfg.Database.AutoMigrate {
			if err := migrateUp(cfg.Database.URL); err != nil {
				return nil, err
			}
			logger.Info("migrations applied")
		}

		db, err := core.NewDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		logger.Info("database connected",
			"max_open_conns", cfg.Database.MaxOpenConns,
			"max_idle_conns", cfg.Database.MaxIdleConns,
		)

		return &store{
			repo:  account.NewPostgresRepository(db.DB),
			check: db,
			admin: admin.HandlerConfig{
				Driver:  cfg.Database.Driver,
				DBStats: db.Stats,
				DBPing:  db.Ping,
			},
			close: func(context.Context) error { return db.Close() },
		}, nil

	case config.DriverMongo:
		m, err := core.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := account.EnsureMongoIndexes(ctx, m.DB); err != nil {
			//nolint:errcheck // cleanup on index failure
			_ = m.Close(context.Background())
			return nil, err
		}
		logger.Info("mongo connected", "database", cfg.Mongo.Database)

		return &store{
			repo:  account.NewMongoRepository(m.DB),
			check: m,
			admin: admin.HandlerConfig{
				Driver: cfg.Database.Driver,
				DBPing: m.Ping,
			},
			close: m.Close,
		}, nil

	case config.DriverMemory:
		logger.Warn("using in-memory account store; data is lost on restart")

		return &store{
			repo:  account.NewMemoryRepository(),
			admin: admin.HandlerConfig{Driver: cfg.Database.Driver},
			close: func(context.Context) error { return nil },
		}, nil
	}

	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}
