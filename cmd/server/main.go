package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/restoledger/backend/internal/bootstrap"
	"github.com/restoledger/backend/internal/infrastructure/auth"
	"github.com/restoledger/backend/internal/infrastructure/config"
	"github.com/restoledger/backend/internal/infrastructure/logger"
	"github.com/restoledger/backend/internal/infrastructure/scheduler"
	"github.com/restoledger/backend/internal/interfaces/http/handler"
	"github.com/restoledger/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	issueToken := flag.String("issue-admin-token", "", "print an admin token for `subject` and exit")
	tokenTTL := flag.Duration("token-ttl", 12*time.Hour, "lifetime of the token printed by -issue-admin-token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if *issueToken != "" {
		token, expiresAt, err := auth.NewJWTService(cfg.Admin).Issue(*issueToken, []string{auth.RoleAdmin}, *tokenTTL)
		if err != nil {
			fmt.Fprintln(os.Stderr, "issue token:", err)
			os.Exit(1)
		}
		fmt.Println(token)
		fmt.Fprintln(os.Stderr, "expires at", expiresAt.Format(time.RFC3339))
		return
	}

	log, err := logger.New(logger.FromAppConfig(cfg.Log))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to start import pipeline", zap.Error(err))
	}
	log = app.Logger

	log.Info("Starting receipt ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	trigger, err := scheduler.NewDailyImportTrigger(
		scheduler.DailyImportConfigFrom(cfg.Scheduler, app.Location), app.Days, log)
	if err != nil {
		log.Fatal("Invalid scheduler configuration", zap.Error(err))
	}
	if err := trigger.Start(ctx); err != nil {
		log.Fatal("Failed to start daily import", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.Admin)
	if !jwtService.Enabled() {
		log.Warn("admin.jwt_secret is not set; admin endpoints will answer 503")
	}

	engine := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
	}, log)
	router.Mount(engine, router.Handlers{
		Health:   handler.NewHealthHandler(version, app.DB, trigger),
		Imports:  handler.NewReceiptImportHandler(app.Days, app.Ranges, handler.WithMaxRangeDays(cfg.HTTP.MaxImportRangeDays)),
		Receipts: handler.NewReceiptHandler(app.Receipts()),
	}, jwtService, log)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serveErr:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := trigger.Stop(shutdownCtx); err != nil {
		log.Warn("Daily import did not stop cleanly", zap.Error(err))
	}
	if err := app.Close(shutdownCtx); err != nil {
		log.Error("Error releasing resources", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
