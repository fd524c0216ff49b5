// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vaultline/vaultline/lib/config"
	"github.com/vaultline/vaultline/lib/ingest"
	"github.com/vaultline/vaultline/lib/process"
	"github.com/vaultline/vaultline/lib/replay"
	"github.com/vaultline/vaultline/lib/version"
	"github.com/vaultline/vaultline/lib/web"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		listen      string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "path to the vaultline.yaml config file (overrides VAULTLINE_CONFIG)")
	flag.StringVar(&listen, "listen", "", "listen address override, e.g. :8080")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		version.Print("vaultline-webhook")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Webhook.Listen = listen
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	pipeline, err := ingest.FromConfig(cfg, logger)
	if err != nil {
		return err
	}

	guard, err := buildGuard(cfg, logger)
	if err != nil {
		return err
	}

	secret, err := config.ReadSecret(cfg.Webhook.SecretFile)
	if err != nil {
		return fmt.Errorf("webhook secret: %w", err)
	}

	handler := web.NewWebhookHandler([]byte(secret), guard, logger, func(ctx context.Context, destination string, event web.Event) error {
		_, err := pipeline.Process(ctx, ingest.Message{
			Text:        event.Message.Text,
			TimestampMS: event.Timestamp,
			ID:          event.Message.ID,
			Destination: destination,
		})
		return err
	})

	server := web.NewHTTPServer(web.HTTPServerConfig{
		Address: cfg.Webhook.Listen,
		Handler: web.NewMux(handler),
		Logger:  logger,
	})

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()

	select {
	case <-server.Ready():
		logger.Info("webhook listener ready",
			"address", server.Addr().String(),
			"vault", cfg.Vault.RemoteURL,
			"zone", cfg.Time.Zone,
		)
	case err := <-serveDone:
		// The listener never came up: bad address or port in use.
		return err
	}

	// Serve returns once the context is cancelled and in-flight
	// requests drain, or earlier if the listener fails.
	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		if err := <-serveDone; err != nil {
			logger.Error("http server error", "error", err)
		}
	case serveErr = <-serveDone:
		// The listener died without a shutdown signal.
	}

	if cfg.Webhook.ReplaySnapshot != "" {
		if err := guard.Save(cfg.Webhook.ReplaySnapshot); err != nil {
			logger.Warn("saving replay snapshot failed", "path", cfg.Webhook.ReplaySnapshot, "error", err)
		} else {
			logger.Info("replay snapshot saved", "path", cfg.Webhook.ReplaySnapshot)
		}
	}

	return serveErr
}

// buildGuard creates the replay guard, restoring its snapshot when one
// is configured. A missing or unreadable snapshot starts the guard
// cold rather than blocking startup; the vault's content-level dedup
// still holds.
func buildGuard(cfg *config.Config, logger *slog.Logger) (*replay.Guard, error) {
	guard := replay.NewGuard(replay.DefaultWindow, nil)
	if cfg.Webhook.ReplaySnapshot == "" {
		return guard, nil
	}

	restored, err := guard.Load(cfg.Webhook.ReplaySnapshot)
	if err != nil {
		logger.Warn("replay snapshot unreadable, starting cold",
			"path", cfg.Webhook.ReplaySnapshot,
			"error", err,
		)
		return guard, nil
	}
	if restored > 0 {
		logger.Info("replay snapshot restored",
			"path", cfg.Webhook.ReplaySnapshot,
			"deliveries", restored,
		)
	}
	return guard, nil
}
