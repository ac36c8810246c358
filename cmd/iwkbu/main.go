package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/iwkbu-monitor/iwkbu-monitor/internal/app"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/auth"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/observability"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/platform/cache"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/platform/db"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap/export"
	rekaphttp "github.com/iwkbu-monitor/iwkbu-monitor/internal/rekap/http"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/shared"
	"github.com/iwkbu-monitor/iwkbu-monitor/internal/view"
	"github.com/iwkbu-monitor/iwkbu-monitor/jobs"
	"github.com/iwkbu-monitor/iwkbu-monitor/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics(cfg.AppVersion)

	sessionManager := shared.NewSessionManager(redisClient, "iwkbu_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	tokens := shared.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokens)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	rekapService, err := app.NewRekapService(ctx, cfg, logger, dbpool, redisClient, metrics.Registerer())
	if err != nil {
		logger.Error("init rekap service", slog.Any("error", err))
		os.Exit(1)
	}

	reportClient := report.NewClient(cfg.GotenbergURL, 30*time.Second)
	reportHandler := report.NewHandler(reportClient, logger)
	pdfExporter := &export.PDFExporter{Renderer: reportClient}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	rekapHandler := rekaphttp.NewHandler(logger, rekapService, templates, csrfManager, pdfExporter, cfg.DefaultTable)
	rekapHandler.WithWarmup(jobClient)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Tokens:         tokens,
		AuthHandler:    authHandler,
		RekapHandler:   rekapHandler,
		ReportHandler:  reportHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("version", cfg.AppVersion))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
