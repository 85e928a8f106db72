package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"shoplite/internal/config"
	"shoplite/internal/db"
	"shoplite/internal/logging"
	"shoplite/internal/seed"

	"go.uber.org/zap"
)

func main() {
	reset := flag.Bool("reset", false, "delete every item before seeding")
	flag.Parse()

	cfg := config.FromEnv()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if _, err := seed.Apply(ctx, pool, seed.Options{Reset: *reset}, logger); err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}
}
