package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"formini/internal/auth"
	"formini/internal/config"
	"formini/internal/db"
	"formini/internal/logging"
	"formini/internal/notify"
	"formini/internal/service"
	"formini/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:           "formini-admin",
	Short:         "Maintenance commands for the Formini identity store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// environment is the set of collaborators a command runs against.
type environment struct {
	cfg   *config.Config
	deps  service.Dependencies
	close func() error
}

func openEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat).With("component", "admin-cli")

	users, closeStore, err := db.OpenUserStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	backend, err := storage.New(ctx, cfg.FileStore)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	notifier, closeNotifier, err := notify.New(cfg.Notifier, logger)
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	return &environment{
		cfg: cfg,
		deps: service.Dependencies{
			Users:       users,
			Tokens:      auth.NewJWTService(cfg.JWTSecret),
			Policy:      auth.NewAdminPolicy(cfg.AdminEmail),
			CVs:         storage.NewCVStore(backend),
			Notifier:    notifier,
			Logger:      logger,
			FrontendURL: cfg.FrontendURL,
		},
		close: func() error {
			_ = closeNotifier.Close()
			return closeStore()
		},
	}, nil
}
