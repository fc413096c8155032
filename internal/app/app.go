// Package app assembles the service: database, gateway, verifier, limiter,
// and the HTTP server with graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/fundbridge/fundbridge/internal/auth"
	"github.com/fundbridge/fundbridge/internal/config"
	"github.com/fundbridge/fundbridge/internal/db"
	"github.com/fundbridge/fundbridge/internal/http/api"
	"github.com/fundbridge/fundbridge/internal/http/api/handlers"
	"github.com/fundbridge/fundbridge/internal/payment"
	"github.com/fundbridge/fundbridge/internal/ratelimit"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and applies the schema, then exits.
func Migrate(ctx context.Context, cfg config.Config) error {
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return fmt.Errorf("app: open database: %w", errOpen)
	}
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return fmt.Errorf("app: migrate: %w", errMigrate)
	}
	log.Info("database migrations applied")
	return nil
}

// RunServer starts the API server and blocks until ctx is canceled or the
// listener fails.
func RunServer(ctx context.Context, cfg config.Config) error {
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return fmt.Errorf("app: open database: %w", errOpen)
	}
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return fmt.Errorf("app: migrate: %w", errMigrate)
	}

	gateway := payment.NewRazorpayGateway(cfg.Gateway.KeyID, cfg.Gateway.KeySecret)
	orders := payment.NewOrderService(conn, gateway, cfg.Gateway.KeyID, cfg.TipPercent)
	verifier := payment.NewVerificationService(conn, []byte(cfg.Gateway.KeySecret))

	var identity auth.IdentityVerifier
	if cfg.GoogleClientID != "" {
		identity = auth.NewGoogleVerifier(cfg.GoogleClientID)
	}

	limiter := buildLimiter(cfg)

	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	api.RegisterRoutes(engine, api.Deps{
		DB:            conn,
		Config:        &cfg,
		Auth:          handlers.NewAuthHandler(conn, cfg.JWT, identity, cfg.BcryptCost, cfg.Production),
		Payments:      handlers.NewPaymentHandler(orders, verifier, cfg.Production),
		Contributions: handlers.NewContributionHandler(conn, cfg.Production),
		Health:        handlers.NewHealthHandler(conn),
		Limiter:       limiter,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("api server listening on %s", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case errServe := <-serveErr:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", errServe)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("app: shutdown: %w", errShutdown)
	}
	return nil
}

// buildLimiter returns the Redis-backed limiter when an address is
// configured, otherwise the in-process one.
func buildLimiter(cfg config.Config) ratelimit.Limiter {
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryLimiter()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return ratelimit.NewRedisLimiter(client, "fundbridge")
}
