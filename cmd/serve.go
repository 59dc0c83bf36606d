package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dataset-service/internal/builder"
	"dataset-service/internal/cache"
	"dataset-service/internal/handlers"
	"dataset-service/internal/metrics"
	"dataset-service/internal/repository"
	"dataset-service/internal/store"
	"dataset-service/internal/utils"

	"github.com/gin-gonic/gin"
)

// runServe serves the read API until ctx is cancelled.
func runServe(ctx context.Context, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	gin.SetMode(cfg.Server.Mode)

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close(db)

	m := metrics.New()
	if summary, err := builder.Summarize(ctx, db); err != nil {
		utils.Log.WithError(err).Warn("Store holds no dataset yet")
	} else {
		m.ObserveBuild(summary)
	}

	var reports handlers.ReportSource
	var pinger handlers.Pinger
	if cfg.Redis.Addr != "" {
		reportCache, err := cache.NewReportCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, time.Duration(cfg.Redis.TTL)*time.Second)
		if err != nil {
			utils.Log.WithError(err).Warn("Report cache unavailable, /api/v1/reports/latest disabled")
		} else {
			defer reportCache.Close()
			reports, pinger = reportCache, reportCache
			if latest, err := reportCache.Latest(ctx); err == nil && latest != nil {
				m.ObserveReport(latest)
			}
		}
	}

	router := handlers.SetupRouter(
		handlers.NewHealthHandler(db, pinger),
		handlers.NewDatasetHandlers(repository.NewDatasetRepository(db), reports),
		m.Handler(),
		cfg.Server.AllowedOrigins,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Log.WithField("port", cfg.Server.Port).Info("Starting dataset API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.Log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	utils.Log.Info("Server exited")
	return nil
}
