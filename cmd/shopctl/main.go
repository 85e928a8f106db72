package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"shoplite/internal/localstore"
	"shoplite/internal/storefront"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	apiURL   string
	stateDir string
	verbose  bool
	timeout  time.Duration

	logger  *zap.Logger
	store   *localstore.FileStore
	session *storefront.Session
)

var rootCmd = &cobra.Command{
	Use:   "shopctl",
	Short: "ShopLite storefront client",
	Long: `shopctl browses the ShopLite catalog and manages a cart.

Signed out, the cart is a guest cart kept in the state directory. Logging in
or signing up merges it into your account cart and clears the local copy.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		store, err = localstore.OpenFile(stateDir, logger.Named("localstore"))
		if err != nil {
			return err
		}
		client := storefront.NewClient(apiURL, nil, logger.Named("api"))
		session = storefront.NewSession(client, store, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func defaultStateDir() string {
	if dir := os.Getenv("SHOPCTL_STATE_DIR"); dir != "" {
		return dir
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "shoplite")
	}
	return ".shoplite"
}

func defaultAPI() string {
	if v := os.Getenv("SHOPLITE_API"); v != "" {
		return v
	}
	return "http://localhost:4000/api"
}

// commandContext bounds a single command by --timeout and interrupts.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", defaultAPI(), "API base URL")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", defaultStateDir(), "Directory holding the session and guest cart")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-command timeout")

	rootCmd.AddCommand(itemsCmd, itemCmd)
	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(cartCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
