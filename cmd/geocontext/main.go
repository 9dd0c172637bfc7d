package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/geocontext-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/geocontext-service/internal/adapter/kafka"
	"github.com/couchcryptid/geocontext-service/internal/adapter/store"
	"github.com/couchcryptid/geocontext-service/internal/app"
	"github.com/couchcryptid/geocontext-service/internal/cache"
	"github.com/couchcryptid/geocontext-service/internal/config"
	"github.com/couchcryptid/geocontext-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// reportStore is what the service needs from a store backend.
type reportStore interface {
	httpadapter.ReportStore
	httpadapter.ReadinessChecker
	io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components := app.New(cfg, logger, metrics)

	opts := httpadapter.Options{
		Contexts:     components.Pipeline,
		Reports:      components.Generator,
		RateLimitRPS: cfg.RateLimitRPS,
	}

	// Initialize the report store (REPORT_STORE=none disables persistence).
	db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open report store", "store", cfg.ReportStore, "error", err)
		os.Exit(1)
	}
	if db != nil {
		opts.Store = db
		opts.Ready = db
		logger.Info("report store ready", "store", cfg.ReportStore)
	} else {
		logger.Info("report persistence disabled")
	}

	var publisher *kafkaadapter.ReportPublisher
	if cfg.KafkaEnabled() && db != nil {
		publisher = kafkaadapter.NewReportPublisher(cfg.KafkaBrokers, cfg.KafkaReportTopic, logger, metrics)
		opts.Publisher = publisher
		logger.Info("report events enabled", "topic", cfg.KafkaReportTopic)
	}

	janitor := cache.NewJanitor(cfg.CacheSweepInterval, logger, metrics, components.Caches...)
	if err := janitor.Start(); err != nil {
		logger.Error("failed to start cache janitor", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, opts, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	janitor.Stop()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("report store close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config) (reportStore, error) {
	switch cfg.ReportStore {
	case config.StoreSQLite:
		return store.NewSQLite(ctx, cfg.SQLitePath)
	case config.StorePostgres:
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	case config.StoreNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown report store %q", cfg.ReportStore)
	}
}
