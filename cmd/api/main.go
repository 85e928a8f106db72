package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"shoplite/internal/config"
	"shoplite/internal/db"
	"shoplite/internal/httpserver"
	"shoplite/internal/logging"
	"shoplite/internal/migrate"
	itemrepo "shoplite/internal/repository/item"
	userrepo "shoplite/internal/repository/user"
	authsvc "shoplite/internal/service/auth"
	cartsvc "shoplite/internal/service/cart"
	itemsvc "shoplite/internal/service/item"
	tokensvc "shoplite/internal/service/token"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := migrate.Apply(ctx, cfg.DBConnString, logger.Named("migrate")); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer dbpool.Close()

	userRepo := userrepo.NewPostgres(dbpool, logger.Named("users"))
	itemRepo := itemrepo.NewPostgres(dbpool, logger.Named("items"))
	tokens := tokensvc.New(cfg.JWTSecret, cfg.TokenTTL)
	cartService := cartsvc.New(userRepo, itemRepo, logger.Named("cart"))

	srv, err := httpserver.New(cfg.HTTPAddr, logger.Named("http"), dbpool, httpserver.Deps{
		Items:  itemsvc.New(itemRepo, logger.Named("items")),
		Cart:   cartService,
		Auth:   authsvc.New(userRepo, tokens, logger.Named("auth")),
		Tokens: tokens,
		CORS: httpserver.CORSConfig{
			Origins:           cfg.CORSOrigins,
			AllowAnyLocalhost: cfg.AllowAnyLocalhost,
		},
		AdminCatalogWrites: cfg.AdminCatalogWrites,
	})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}
