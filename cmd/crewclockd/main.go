package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crewtools/crewclock/internal/adapters/http/api"
	"github.com/crewtools/crewclock/internal/adapters/http/swagger"
	"github.com/crewtools/crewclock/internal/adapters/mirror"
	"github.com/crewtools/crewclock/internal/adapters/repository"
	"github.com/crewtools/crewclock/internal/app"
	"github.com/crewtools/crewclock/internal/config"
	"github.com/crewtools/crewclock/pkg/clock"
	"github.com/crewtools/crewclock/pkg/logger"
	"github.com/crewtools/crewclock/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Resolve the punch timezone. An unknown zone falls back to the host's
	// local zone so the clock keeps running, with a warning.
	loc, ok := clock.LoadLocation(cfg.Timezone)
	if cfg.Timezone != "" && !ok {
		log.Warn(ctx, "unknown timezone; using host local zone", logger.String("timezone", cfg.Timezone))
	}

	store, err := repository.New(cfg.DBPath, loc)
	if err != nil {
		os.Stderr.WriteString("failed to open punch store: " + err.Error() + "\n")
		return
	}

	// The mirror is optional: an empty mirror_path runs the service without
	// one and every mirror job fails softly as not_configured.
	var sink mirror.Sink
	if cfg.MirrorPath != "" {
		sqlSink, err := mirror.NewSQLiteSink(cfg.MirrorPath)
		if err != nil {
			log.Warn(ctx, "mirror workbook unavailable; continuing without mirror",
				logger.String("mirror_path", cfg.MirrorPath), logger.Error(err))
		} else {
			sink = sqlSink
		}
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithStore(store),
		app.WithSink(sink),
		app.WithClock(clock.NewZoned(loc)),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithSourceTag(cfg.SourceTag),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register API docs under /api-docs.
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc, api.WithMaxRecentLimit(cfg.MaxRecentLimit))
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// startServiceMetricsUpdater refreshes gauge metrics from service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
	if stored, ok := stats["punchesStored"].(int64); ok {
		metrics.UpdatePunchesStored(stored)
	}
}
