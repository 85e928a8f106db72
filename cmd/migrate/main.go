package main

import (
	"context"
	"fmt"
	"os"

	"shoplite/internal/config"
	"shoplite/internal/logging"
	"shoplite/internal/migrate"

	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := migrate.Apply(context.Background(), cfg.DBConnString, logger); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}
}
