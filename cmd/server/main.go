// @title        School Records API
// @version      1.0
// @description  Identity, authentication and access control for the school records system.
// @BasePath     /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/school-records/records-api/internal/api"
	"github.com/school-records/records-api/internal/api/handler"
	"github.com/school-records/records-api/internal/core/ports"
	"github.com/school-records/records-api/internal/core/service"
	mongodb "github.com/school-records/records-api/internal/infrastructure/db/mongo"
	redisdb "github.com/school-records/records-api/internal/infrastructure/db/redis"
	"github.com/school-records/records-api/internal/infrastructure/security"
	"github.com/school-records/records-api/internal/pkg/config"
	"github.com/school-records/records-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "records-api",
	})
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting")

	// User store is mandatory.
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "records-api",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	repo := mongodb.NewUserRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure user indexes failed")
	}

	checks := []handler.DependencyCheck{handler.MongoCheck(db)}

	// Redis only backs the login limiter; run without throttling when it is down.
	var limiter service.LoginLimiter
	var closeRedis func() error
	if cfg.Login.MaxAttempts > 0 {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, login throttling disabled")
		} else {
			limiter = redisdb.NewLoginLimiter(rdb, cfg.Login.MaxAttempts, cfg.Login.Window)
			checks = append(checks, handler.RedisCheck(rdb))
			closeRedis = rdb.Close
		}
	}

	hasher, err := security.NewBcryptHasher(cfg.Password.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("password hasher")
	}
	tokens, err := security.NewTokenCodec(security.TokenConfig{
		Secret:    cfg.JWT.Secret,
		Algorithm: cfg.JWT.Algorithm,
		TTL:       cfg.JWT.TTL(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("token codec")
	}

	authService := service.NewAuthService(repo, hasher, tokens, limiter, log)

	if err := authService.Bootstrap(ctx, ports.AdminAccount{
		Username: cfg.Bootstrap.AdminUsername,
		Password: cfg.Bootstrap.AdminPassword,
	}); err != nil {
		log.Fatal().Err(err).Msg("admin bootstrap failed")
	}

	e := api.NewRouter(api.Dependencies{
		Auth:   authService,
		Tokens: tokens,
		Checks: checks,
		Logger: log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect")
	}
	if closeRedis != nil {
		if err := closeRedis(); err != nil {
			log.Error().Err(err).Msg("redis close")
		}
	}

	log.Info().Msg("server stopped")
}
