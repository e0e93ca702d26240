// @title        Labook Users API
// @version      1.0
// @description  Account signup, login and role-gated user management.
// @BasePath     /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/labook/users-api/internal/api"
	"github.com/labook/users-api/internal/api/handler"
	"github.com/labook/users-api/internal/core/service"
	"github.com/labook/users-api/internal/infrastructure/config"
	mongodb "github.com/labook/users-api/internal/infrastructure/db/mongo"
	redisdb "github.com/labook/users-api/internal/infrastructure/db/redis"
	"github.com/labook/users-api/internal/infrastructure/queue"
	"github.com/labook/users-api/internal/infrastructure/security"
	"github.com/labook/users-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		l := logger.Init(logger.Options{})
		l.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "users-api",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "users-api",
	})
	if err != nil {
		return err
	}
	defer disconnect(client, log)

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	store := mongodb.NewUserRepository(db)
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}
	users := redisdb.NewCachedUserRepository(store, rdb, cfg.Redis.CacheTTL, log)

	audit := queue.NewDispatcher(cfg.AuditWorkers, mongodb.NewAuditRepository(db), log)
	audit.Start(ctx)

	svc := service.NewUserService(
		users,
		security.UUIDGenerator{},
		security.NewBcryptHasher(cfg.BcryptCost),
		security.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL),
		audit,
		log,
	)

	e := api.NewRouter(api.Dependencies{
		Users: svc,
		Checks: map[string]handler.Check{
			"mongodb": func(ctx context.Context) error { return mongodb.Ping(ctx, db) },
			"redis":   func(ctx context.Context) error { return redisdb.Ping(ctx, rdb) },
		},
		Log: log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func disconnect(client *mongo.Client, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Warn().Err(err).Msg("mongo disconnect")
	}
}
