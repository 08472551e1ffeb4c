// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the backdrop theme service. It loads
// configuration, connects to services, schedules the periodic jobs, starts
// the bulk import listener and serves the HTTP API with graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backdrop/internal/archive"
	"backdrop/internal/bus"
	"backdrop/internal/cache"
	"backdrop/internal/config"
	"backdrop/internal/database"
	"backdrop/internal/handlers"
	"backdrop/internal/ingest"
	"backdrop/internal/jobs"
	"backdrop/internal/library"
	"backdrop/internal/media"
	"backdrop/internal/middleware"
	"backdrop/internal/publish"
	"backdrop/internal/router"
	"backdrop/internal/storage"
	"backdrop/internal/store"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: JSON in production, text in development.
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"strict_validation", cfg.StrictValidation,
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (published snapshot + job locks).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	themeStore := store.NewThemeStore(db)
	assetStore := store.NewAssetStore(db)
	snapshots := cache.NewSnapshotStore(valkeyClient, cfg.SnapshotKey)
	policy := cfg.Policy()

	// Connect to S3-compatible object storage. Without it the service still
	// publishes, but uploads, imports and archival are disabled.
	var storageClient *storage.Client
	if cfg.S3Endpoint != "" && cfg.S3AccessKey != "" {
		storageClient, err = storage.New(storage.Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("s3 storage not configured, uploads, imports and archival disabled")
	}

	// Periodic jobs.
	runner := jobs.NewRunner(cache.NewLocker(valkeyClient))
	if err := runner.Register(publish.NewScheduler(themeStore, snapshots), jobs.Every(cfg.PublishInterval)); err != nil {
		slog.Error("failed to schedule publisher", "error", err)
		os.Exit(1)
	}

	var (
		lib     handlers.AssetWorkflow
		natsBus *bus.Client
	)
	if storageClient != nil {
		prober := media.NewStorageProber(storageClient, media.ProberOptions{
			FFProbePath: cfg.FFProbePath,
			Timeout:     cfg.ProbeTimeout,
		})
		lib = library.NewService(storageClient, prober, assetStore, policy)

		sweeper := archive.NewSweeper(themeStore, storageClient, archive.Options{StorageClass: cfg.ArchiveStorageClass})
		if err := runner.Register(sweeper, cfg.ArchiveSchedule); err != nil {
			slog.Error("failed to schedule archival sweeper", "error", err)
			os.Exit(1)
		}

		// Bulk imports arrive as bucket notifications over NATS.
		if cfg.NATSURL != "" {
			natsBus, err = bus.Connect(cfg.NATSURL)
			if err != nil {
				slog.Error("failed to connect to nats", "error", err)
				os.Exit(1)
			}
			listener := ingest.NewListener(storageClient, prober, themeStore, ingest.Options{
				Prefix: cfg.ImportPrefix,
				Policy: policy,
			})
			if _, err := natsBus.QueueSubscribe(cfg.IngestSubject, cfg.IngestQueue, listener.HandleMessage); err != nil {
				slog.Error("failed to subscribe to bucket notifications", "error", err)
				os.Exit(1)
			}
			slog.Info("bulk import listener started", "subject", cfg.IngestSubject, "prefix", cfg.ImportPrefix)
		} else {
			slog.Warn("NATS_URL not set, bulk import listener disabled")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runner.Start(ctx)

	// Publish once at startup so clients never wait a full interval.
	go func() {
		if err := runner.RunNow(ctx, publish.JobName); err != nil {
			slog.Warn("initial publish failed", "error", err)
		}
	}()

	limiter := middleware.NewRateLimiter(30, time.Minute)
	defer limiter.Stop()

	api := handlers.NewAPI(themeStore, assetStore, lib, snapshots, runner)
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.New(api, limiter),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	// Give active requests and running jobs up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if natsBus != nil {
		natsBus.Close()
	}
	if err := runner.Stop(shutdownCtx); err != nil {
		slog.Warn("jobs still running at shutdown", "error", err)
	}

	slog.Info("server stopped gracefully")
}
