// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/vaultline/vaultline/cmd/vaultline/cli"
	"github.com/vaultline/vaultline/lib/version"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output (like check) return an
		// ExitError with the desired exit code. Don't print a redundant
		// "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rootCommand().Execute(ctx, os.Args[1:], cli.NewCommandLogger())
}

// rootCommand builds the complete vaultline CLI command tree.
func rootCommand() *cli.Command {
	return &cli.Command{
		Name: "vaultline",
		Description: `Vaultline: LINE messages into a git-backed markdown vault.

Operator tooling for the vault: structural checks, manual appends,
and version information. Live deliveries are handled by the
vaultline-webhook service.`,
		Subcommands: []*cli.Command{
			checkCommand(),
			appendCommand(),
			versionCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Inspect every routed file in a vault working copy",
				Command:     "vaultline check --vault ~/vault",
			},
			{
				Description: "Append a manual entry through the regular pipeline",
				Command:     "vaultline append --text 'Hello World'",
			},
			{
				Description: "Backfill an entry at an explicit event time",
				Command:     "vaultline append --text 'Hello World' --at 1750829400000",
			},
		},
	}
}

func versionCommand() *cli.Command {
	var short bool

	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Usage:   "vaultline version [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("version", pflag.ContinueOnError)
			flagSet.BoolVar(&short, "short", false, "print only the version number")
			return flagSet
		},
		Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
			if short {
				fmt.Println(version.Short())
				return nil
			}
			fmt.Printf("vaultline %s\n", version.Full())
			return nil
		},
	}
}
