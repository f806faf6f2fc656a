package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hockeyunion/membership/internal/api"
	"github.com/hockeyunion/membership/internal/core/service"
	mongodb "github.com/hockeyunion/membership/internal/infrastructure/db/mongo"
	redisdb "github.com/hockeyunion/membership/internal/infrastructure/db/redis"
	"github.com/hockeyunion/membership/internal/infrastructure/http/handlers"
	"github.com/hockeyunion/membership/internal/infrastructure/queue"
	"github.com/hockeyunion/membership/internal/pkg/config"
	"github.com/hockeyunion/membership/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "membership-api",
		Caller:  true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo unavailable")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()
	if err := mongodb.EnsureSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("mongo schema setup failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis unavailable")
	}
	defer rdb.Close()

	// --- Dependencies ---
	profileRepo := mongodb.NewProfileRepository(db)
	provisioner := service.NewProfileProvisioner(profileRepo, service.DefaultAvatarBaseURL, logger.Component("provisioner"))
	dispatcher := queue.NewDispatcher(cfg.Provisioning.Workers, provisioner, logger.Component("dispatcher"))
	dispatcher.Start(ctx)

	authService := service.NewAuthService(
		mongodb.NewIdentityRepository(db),
		redisdb.NewSessionStore(rdb),
		dispatcher,
		service.TokenConfig{
			Secret:     cfg.JWTSecret,
			TTL:        cfg.Tokens.TTL,
			RefreshTTL: cfg.Tokens.RefreshTTL,
		},
		logger.Component("auth"),
	)
	profileService := service.NewProfileService(profileRepo, logger.Component("profiles"))

	e := api.NewRouter(api.Dependencies{
		Auth:     authService,
		Profiles: profileService,
		Checks: map[string]handlers.Checker{
			"mongodb": handlers.MongoChecker(db),
			"redis":   handlers.RedisChecker(rdb),
		},
		Log:     logger.Component("http"),
		Metrics: true,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("membership api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
