package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Simplici0/o.quote/internal/catalog"
	"github.com/Simplici0/o.quote/internal/config"
	"github.com/Simplici0/o.quote/internal/db"
	"github.com/Simplici0/o.quote/internal/logging"
	"github.com/Simplici0/o.quote/internal/metrics"
	"github.com/Simplici0/o.quote/internal/migrations"
	"github.com/Simplici0/o.quote/internal/pricing"
	"github.com/Simplici0/o.quote/internal/quotes"
	"github.com/Simplici0/o.quote/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Must(logging.Config{}).Fatal("failed to load configuration", zap.Error(err))
	}

	logger := logging.Must(logging.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: cfg.IsDev(),
		Fields:      map[string]string{"service": "quote-server"},
	})
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer database.Close()

	migrations.SetLogger(logger)
	if err := migrations.Up(database); err != nil {
		logger.Fatal("failed to run database migrations", zap.Error(err))
	}
	stats, err := seed.Run(ctx, database, seed.Config{})
	if err != nil {
		logger.Fatal("failed to seed catalog", zap.Error(err))
	}
	logger.Info("catalog ready", zap.Int("inserted", stats.Inserts), zap.Int("skipped", stats.Skipped))

	engine := pricing.New(pricing.WithLocale(cfg.CollationLocale))

	var registry *prometheus.Registry
	var recorder *metrics.Recorder
	if cfg.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		recorder = metrics.NewRecorder(registry)
	}

	srv := &server{
		db:      database,
		catalog: catalog.NewStore(database),
		quotes:  quotes.NewStore(database, engine),
		engine:  engine,
		metrics: recorder,
		log:     logger,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", httpServer.Addr), zap.String("env", cfg.AppEnv))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
