package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/wagate/internal/adapter/backend"
	"github.com/pscheid92/wagate/internal/adapter/httpserver"
	"github.com/pscheid92/wagate/internal/adapter/metrics"
	"github.com/pscheid92/wagate/internal/adapter/whatsapp"
	"github.com/pscheid92/wagate/internal/app"
	"github.com/pscheid92/wagate/internal/broadcast"
	"github.com/pscheid92/wagate/internal/media"
	"github.com/pscheid92/wagate/internal/platform/config"
	"github.com/pscheid92/wagate/internal/platform/logging"
	"github.com/pscheid92/wagate/internal/platform/version"
	"github.com/pscheid92/wagate/internal/session"
	"github.com/pscheid92/wagate/internal/sessionstore"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func runGracefulShutdown(srv *httpserver.Server, manager *session.Manager, hub *broadcast.Hub, store *sessionstore.Store) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		manager.Shutdown()
		hub.Stop()

		if err := store.Close(); err != nil {
			slog.Error("Session store shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

// deviceDirCheck fails readiness when the device store directory has gone missing.
func deviceDirCheck(dir string) func(context.Context) error {
	return func(context.Context) error {
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
		return nil
	}
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "store", cfg.StoreBackend, "version", version.Version)

	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	wsMetrics := metrics.NewWebSocketMetrics(reg)
	sessionMetrics := metrics.NewSessionMetrics(reg)
	dispatchMetrics := metrics.NewDispatchMetrics(reg)
	mediaMetrics := metrics.NewMediaMetrics(reg)
	redisMetrics := metrics.NewRedisMetrics(reg)

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	doc, closeDoc, err := backend.Open(startupCtx, cfg, redisMetrics)
	if err != nil {
		slog.Error("Failed to open session document", "error", err)
		os.Exit(1)
	}
	defer closeDoc()

	store, err := sessionstore.Open(startupCtx, doc)
	if err != nil {
		slog.Error("Failed to load sessions", "error", err)
		os.Exit(1)
	}

	hub := broadcast.NewHub(clock, cfg.MaxObservers, wsMetrics)

	factory, err := whatsapp.NewFactory(cfg.DeviceStoreDir)
	if err != nil {
		slog.Error("Failed to prepare device store", "error", err)
		os.Exit(1)
	}

	manager, err := session.NewManager(store, factory, hub, session.Options{
		WelcomeTemplate:     cfg.GroupWelcomeTemplate,
		FarewellTemplate:    cfg.GroupFarewellTemplate,
		ReconnectMaxElapsed: cfg.ReconnectMaxElapsed,
		RestartDelay:        cfg.RestartDelay,
		GreetingWorkers:     cfg.EventWorkers,
	}, sessionMetrics)
	if err != nil {
		slog.Error("Failed to create session manager", "error", err)
		os.Exit(1)
	}

	restored, err := manager.Restore(startupCtx)
	if err != nil {
		slog.Error("Failed to restore sessions", "error", err)
		os.Exit(1)
	}
	slog.Info("Sessions restored", "count", restored)

	fetcher := media.NewFetcher(cfg.MediaFetchTimeout, cfg.MediaMaxBytes, mediaMetrics)
	dispatcher := app.NewService(manager, fetcher, cfg.DefaultCountryCode, dispatchMetrics)

	srv := httpserver.NewServer(cfg, httpserver.Deps{
		Dispatcher:     dispatcher,
		Sessions:       manager,
		Hub:            hub,
		MetricsHandler: metrics.Handler(reg),
		HTTPMetrics:    httpMetrics,
		HealthChecks: []httpserver.HealthCheck{
			{Name: "store", Check: doc.Ping},
			{Name: "device_dir", Check: deviceDirCheck(cfg.DeviceStoreDir)},
		},
	})

	done := runGracefulShutdown(srv, manager, hub, store)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
