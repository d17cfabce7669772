package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"indexpilot/internal/config"
	"indexpilot/internal/database"
	"indexpilot/internal/handlers"
	"indexpilot/internal/indexnow"
	"indexpilot/internal/pipeline"
	"indexpilot/internal/ratelimit"
	"indexpilot/internal/services"
	"indexpilot/internal/sitemap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// 2. Init DB
	if err := database.InitDB(cfg.DatabasePath); err != nil {
		logger.Fatal("failed to init database", zap.Error(err))
	}

	// 3. Services and pipeline
	fetcher := sitemap.NewFetcher(cfg.SitemapTimeout)
	collector := sitemap.NewCollector(fetcher, logger)
	submitter := indexnow.NewClient(cfg.IndexNowEndpoint, cfg.SubmitTimeout)

	siteSvc := services.NewSiteService(database.DB)
	creditSvc := services.NewCreditService(database.DB)
	recorderSvc := services.NewRecorderService(database.DB, logger)
	keySvc := services.NewKeyService(fetcher)

	orch := pipeline.NewOrchestrator(siteSvc, creditSvc, recorderSvc, submitter, collector, logger)
	limiter := ratelimit.NewPerUserLimiter(cfg.RateLimitPerMinute)

	// 4. API Server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	h := handlers.NewHandler(cfg, logger, orch, siteSvc, recorderSvc, keySvc, limiter)
	handlers.RegisterRoutes(e, h)

	// 5. Start with graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("starting server", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
}

func newLogger(environment, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if environment == "development" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}
