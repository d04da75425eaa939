package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"fraternitybase/registry/internal/api"
	"fraternitybase/registry/internal/cipher"
	"fraternitybase/registry/internal/config"
	"fraternitybase/registry/internal/db"
	"fraternitybase/registry/internal/logging"
	"fraternitybase/registry/internal/metrics"
	"fraternitybase/registry/internal/routes"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("Registry API starting up",
		"environment", cfg.AppEnv,
		"driver", cfg.DBDriver,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	if err := run(cfg); err != nil {
		logging.Error("Server stopped with error", "error", err)
		_ = logging.Close()
		os.Exit(1)
	}
	logging.Info("Server stopped")
}

func run(cfg *config.Config) error {
	fieldCipher, err := cipher.NewFromEncoded(cfg.EncryptionKey, cfg.HashKey)
	if err != nil {
		return err
	}
	if !fieldCipher.Keyed() {
		logging.Warn("ROSTER_HASH_KEY not set; lookup hashes are unkeyed SHA-256")
	}

	store, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := db.Migrate(store.ORM); err != nil {
		return err
	}

	deps, err := api.InitDependencies(store.ORM, store.Reader, fieldCipher, cfg, metrics.NewMetricsRegistry())
	if err != nil {
		return err
	}
	defer deps.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           routes.RegisterRoutes(deps, time.Now()),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.Info("Server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logging.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
