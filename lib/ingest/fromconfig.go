// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vaultline/vaultline/lib/checkout"
	"github.com/vaultline/vaultline/lib/config"
	"github.com/vaultline/vaultline/lib/routes"
	"github.com/vaultline/vaultline/lib/stamp"
	"github.com/vaultline/vaultline/lib/syncer"
)

// FromConfig wires a Pipeline from validated configuration. Both the
// webhook service and the CLI's manual append build their pipeline
// here, so a manual entry exercises the same path as a live delivery.
func FromConfig(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	formatter, err := stamp.NewFormatter(cfg.Time.Zone)
	if err != nil {
		return nil, err
	}

	table := routes.DefaultTable()
	if cfg.Vault.RoutesFile != "" {
		table, err = routes.ReadFile(cfg.Vault.RoutesFile)
		if err != nil {
			return nil, err
		}
	}

	credential := ""
	if cfg.Vault.CredentialFile != "" {
		credential, err = config.ReadSecret(cfg.Vault.CredentialFile)
		if err != nil {
			return nil, fmt.Errorf("vault credential: %w", err)
		}
	}

	materializer := checkout.NewMaterializer(checkout.Options{
		RemoteURL:  cfg.Vault.RemoteURL,
		Credential: credential,
		Branch:     cfg.Vault.Branch,
		WorkRoot:   cfg.Checkout.WorkRoot,
		Depth:      cfg.Checkout.Depth,
		Identity: checkout.Identity{
			Name:  cfg.Commit.AuthorName,
			Email: cfg.Commit.AuthorEmail,
		},
		Logger: logger,
	})

	coordinator := syncer.NewCoordinator(syncer.Options{
		MaxAttempts: cfg.Sync.MaxAttempts,
		JitterMin:   mustDuration(cfg.Sync.JitterMin),
		JitterMax:   mustDuration(cfg.Sync.JitterMax),
		Backoff:     mustDuration(cfg.Sync.Backoff),
		Logger:      logger,
	})

	return NewPipeline(Options{
		Stamper:       formatter,
		Routes:        table,
		Materializer:  materializer,
		Coordinator:   coordinator,
		MessagePrefix: cfg.Commit.MessagePrefix,
		Logger:        logger,
	}), nil
}

// mustDuration parses a duration string that Validate has already
// checked.
func mustDuration(value string) time.Duration {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		panic("config duration not validated: " + err.Error())
	}
	return parsed
}
