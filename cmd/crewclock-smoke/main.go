// Command crewclock-smoke exercises a running crewclock server: it submits
// scripted shift punches concurrently, replays a duplicate, and verifies the
// aggregated hours endpoint.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crewtools/crewclock/internal/smoke"
	"github.com/crewtools/crewclock/pkg/logger"
)

func main() {
	cfg := smoke.NewConfig()

	flag.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the service")
	flag.IntVar(&cfg.Crew, "crew", cfg.Crew, "number of distinct persons to punch")
	flag.IntVar(&cfg.Shifts, "shifts", cfg.Shifts, "IN/OUT pairs per person")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent submitters")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "log every failed punch")
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := smoke.Run(ctx, cfg)
	if err != nil {
		log.Error(ctx, "smoke run failed", logger.Error(err))
		os.Exit(1)
	}
	log.Info(ctx, "all checks passed",
		logger.Int("recorded", stats.Recorded),
		logger.Int("verified", stats.Verified),
		logger.String("elapsed", stats.Elapsed.Round(time.Millisecond).String()),
	)
}
