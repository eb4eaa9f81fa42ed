// The sweeper is the cron-like trigger for the two maintenance sweeps: the
// stuck-job reaper and the expired-job collector. It owns no state; running
// several sweepers against one database is safe, just redundant.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aagnone3/software-multi-tool-sub002/internal/infra"
	"github.com/aagnone3/software-multi-tool-sub002/internal/queue"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweeper: db connection failed")
	}
	defer pool.Close()

	q := queue.New(infra.NewSQLRunner(pool, logger), logger)

	logger.Info().
		Dur("interval", cfg.SweepInterval).
		Dur("stuck_timeout", cfg.StuckJobTimeout).
		Msg("sweeper: started")

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		sweep(ctx, q, cfg, logger)
		select {
		case <-ctx.Done():
			logger.Info().Msg("sweeper: stopped")
			return
		case <-ticker.C:
		}
	}
}

func sweep(ctx context.Context, q *queue.Queue, cfg *infra.Config, logger infra.Logger) {
	if _, err := q.ReapStuck(ctx, cfg.StuckJobTimeout); err != nil {
		logger.Error().Err(err).Msg("sweeper: reap stuck failed")
	}
	if _, err := q.CleanupExpired(ctx); err != nil {
		logger.Error().Err(err).Msg("sweeper: cleanup expired failed")
	}
}
