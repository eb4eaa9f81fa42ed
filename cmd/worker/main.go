package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/aagnone3/software-multi-tool-sub002/internal/infra"
	"github.com/aagnone3/software-multi-tool-sub002/internal/ledger"
	"github.com/aagnone3/software-multi-tool-sub002/internal/queue"
	"github.com/aagnone3/software-multi-tool-sub002/internal/tool"
	"github.com/aagnone3/software-multi-tool-sub002/internal/worker"
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
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	echoCost := int64(1)
	if v := os.Getenv("ECHO_TOOL_COST"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			echoCost = n
		}
	}

	r := worker.NewRunner(worker.Options{
		SQL:          runner,
		Queue:        queue.New(runner, logger),
		Ledger:       ledger.New(runner, logger),
		Tools:        tool.NewRegistry(tool.Echo{Cost: echoCost}),
		Logger:       logger,
		ToolSlug:     os.Getenv("WORKER_TOOL_SLUG"),
		PollInterval: cfg.WorkerPollInterval,
	})

	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
