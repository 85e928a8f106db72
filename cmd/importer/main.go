package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"shoplite/internal/config"
	"shoplite/internal/db"
	"shoplite/internal/importer"
	"shoplite/internal/logging"
	itemrepo "shoplite/internal/repository/item"
	itemsvc "shoplite/internal/service/item"

	"go.uber.org/zap"
)

func main() {
	var (
		filePath    string
		skipInvalid bool
	)
	flag.StringVar(&filePath, "file", "", "Path to catalog CSV (title,description,price,category,imageUrl,stock)")
	flag.BoolVar(&skipInvalid, "skip-invalid", false, "Skip rows that fail validation instead of stopping")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

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

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	items := itemsvc.New(itemrepo.NewPostgres(pool, logger), logger)
	imp := importer.NewCSVImporter(f, items, logger)
	imp.SkipInvalid = skipInvalid

	start := time.Now()
	res, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Int("imported", res.Imported), zap.Error(err))
	}

	fmt.Printf("Imported %d items (%d skipped) in %s\n", res.Imported, res.Skipped, time.Since(start).Truncate(time.Millisecond))
}
