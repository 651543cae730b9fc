package main

import (
	"context"
	"fmt"

	"github.com/pscheid92/wagate/internal/adapter/backend"
	"github.com/pscheid92/wagate/internal/platform/config"
	"github.com/pscheid92/wagate/internal/platform/logging"
	"github.com/pscheid92/wagate/internal/sessionstore"
	"github.com/spf13/cobra"
)

type storeFlags struct {
	backend  string
	file     string
	redisURL string
	redisKey string
}

func newRootCmd() *cobra.Command {
	var flags storeFlags

	rootCmd := &cobra.Command{
		Use:           "sessionctl",
		Short:         "Manage the gateway's persisted sessions",
		Long:          "sessionctl lists, removes and resets the sessions the gateway restores on startup. Run it while the gateway is stopped; a running gateway overwrites the list on its next change.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.backend, "backend", "", "store backend (file|redis), defaults to STORE_BACKEND")
	rootCmd.PersistentFlags().StringVar(&flags.file, "file", "", "sessions file, defaults to SESSIONS_FILE")
	rootCmd.PersistentFlags().StringVar(&flags.redisURL, "redis-url", "", "redis URL, defaults to REDIS_URL")
	rootCmd.PersistentFlags().StringVar(&flags.redisKey, "redis-key", "", "redis key, defaults to REDIS_SESSIONS_KEY")

	rootCmd.AddCommand(
		newVersionCmd(),
		newListCmd(&flags),
		newRemoveCmd(&flags),
		newResetCmd(&flags),
	)

	return rootCmd
}

// withStore opens the configured store, runs fn and closes the store.
func withStore(ctx context.Context, flags *storeFlags, fn func(*sessionstore.Store) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	doc, closeDoc, err := backend.Open(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("open session document: %w", err)
	}
	defer closeDoc()

	store, err := sessionstore.Open(ctx, doc)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	defer func() { _ = store.Close() }()

	return fn(store)
}

func loadConfig(flags *storeFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if flags.backend != "" {
		cfg.StoreBackend = flags.backend
	}
	if flags.file != "" {
		cfg.SessionsFile = flags.file
	}
	if flags.redisURL != "" {
		cfg.RedisURL = flags.redisURL
	}
	if flags.redisKey != "" {
		cfg.RedisSessionsKey = flags.redisKey
	}
	return cfg, nil
}
