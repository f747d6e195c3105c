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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "electricity-compare/internal/api/http"
	"electricity-compare/internal/auth"
	"electricity-compare/internal/bootstrap"
	"electricity-compare/internal/config"
	contracthttp "electricity-compare/internal/contracts/interfaces/http"
	"electricity-compare/internal/db"
	"electricity-compare/internal/observability/logging"
	"electricity-compare/internal/observability/metrics"
	spothttp "electricity-compare/internal/spotprice/interfaces/http"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.JWTSecret == "" {
		logger.Fatal("AUTH_JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("bootstrap error", zap.Error(err))
	}
	defer func() { _ = app.Close() }()

	if err := db.MigrateUp(app.DB); err != nil {
		logger.Fatal("migration error", zap.Error(err))
	}
	metrics.Init(app.DB, logger)

	spotHandler, err := spothttp.NewHandler(app.Aggregation, app.Ingestion, firstRegion(cfg.Regions))
	if err != nil {
		logger.Fatal("spot handler error", zap.Error(err))
	}
	contractHandler, err := contracthttp.NewHandler(app.Engine, app.Ranker, app.Postcodes, app.Location, logger.Named("contracts"))
	if err != nil {
		logger.Fatal("contract handler error", zap.Error(err))
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/ingest/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/spot/averages", spotHandler)
	mux.Handle("/api/v1/spot/averages/calculate", spotHandler)
	mux.Handle("/api/v1/spot/hours", apihttp.NewSpotHoursHandler(app.Hours))
	mux.Handle("/api/v1/exports/spot-hours.csv", apihttp.NewExportSpotHoursCSVHandler(app.Hours))
	mux.Handle("/api/v1/contracts/", contractHandler)
	mux.Handle("/api/v1/estimate", contractHandler)
	mux.Handle("/api/v1/comparison", contractHandler)
	mux.Handle("/api/v1/comparison.xlsx", contractHandler)
	mux.Handle("/api/v1/comparison.pdf", contractHandler)
	if cfg.IngestSecret != "" {
		ingestAuth := auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), cfg.IngestMaxSkew())
		mux.Handle("/ingest/spot-prices", ingestAuth.Wrap(spotHandler))
	} else {
		logger.Warn("INGEST_HMAC_SECRET not set; push ingest disabled")
	}
	if app.CatalogSync != nil {
		adminHandler, err := apihttp.NewAdminHandler(app.Ingestion, app.CatalogSync, app.Scheduler, app.Audit, app.Location, logger.Named("admin"))
		if err != nil {
			logger.Fatal("admin handler error", zap.Error(err))
		}
		mux.Handle("/api/v1/admin/", adminHandler)
	}
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := app.DB.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if err := app.ScheduleJobs(); err != nil {
		logger.Fatal("job schedule error", zap.Error(err))
	}
	app.Scheduler.Start()
	defer app.Scheduler.Stop()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(authMiddleware.Wrap(mux), logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown error", zap.Error(err))
		}
	}()

	logger.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.Strings("regions", cfg.Regions))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server error", zap.Error(err))
	}
}

func firstRegion(regions []string) string {
	if len(regions) == 0 {
		return ""
	}
	return regions[0]
}

func loggingMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", resp.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
