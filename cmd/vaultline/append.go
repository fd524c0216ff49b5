// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/vaultline/vaultline/cmd/vaultline/cli"
	"github.com/vaultline/vaultline/lib/config"
	"github.com/vaultline/vaultline/lib/ingest"
)

type appendParams struct {
	configPath string
	text       string
	at         int64
	route      string
}

func appendCommand() *cli.Command {
	var params appendParams

	return &cli.Command{
		Name:    "append",
		Summary: "Append an entry through the regular pipeline",
		Description: `Append a manual entry to the vault: clone, merge, commit, and push
exactly as a webhook delivery would. The entry lands in the named
route, or in the route table's default when --route is not given.

Reads the same configuration as vaultline-webhook, from --config or
the VAULTLINE_CONFIG environment variable.`,
		Usage: "vaultline append --text TEXT [flags]",
		Examples: []cli.Example{
			{
				Description: "Append to the default diary route, stamped now",
				Command:     "vaultline append --text 'Hello World'",
			},
			{
				Description: "Backfill an entry at an explicit event time",
				Command:     "vaultline append --text 'Hello World' --at 1750829400000",
			},
			{
				Description: "Append to a named route",
				Command:     "vaultline append --text 'new idea' --route notebook",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("append", pflag.ContinueOnError)
			flagSet.StringVar(&params.configPath, "config", "", "path to the vaultline.yaml config file (overrides VAULTLINE_CONFIG)")
			flagSet.StringVar(&params.text, "text", "", "entry text (required)")
			flagSet.Int64Var(&params.at, "at", 0, "event time in epoch milliseconds (defaults to now)")
			flagSet.StringVar(&params.route, "route", "", "route name (defaults to the route table's default)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return runAppend(ctx, params, os.Stdout, logger)
		},
	}
}

func runAppend(ctx context.Context, params appendParams, out io.Writer, logger *slog.Logger) error {
	if strings.TrimSpace(params.text) == "" {
		return fmt.Errorf("--text is required")
	}

	cfg, err := config.Resolve(params.configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	pipeline, err := ingest.FromConfig(cfg, logger)
	if err != nil {
		return err
	}

	at := params.at
	if at == 0 {
		at = time.Now().UnixMilli()
	}

	outcome, err := pipeline.Process(ctx, ingest.Message{
		Text:        params.text,
		TimestampMS: at,
		Route:       params.route,
	})
	if err != nil {
		return err
	}

	if !outcome.Applied {
		fmt.Fprintf(out, "duplicate, %s unchanged\n", outcome.Path)
		return nil
	}
	fmt.Fprintf(out, "appended to %s (%s)\n", outcome.Path, outcome.Commit)
	return nil
}
