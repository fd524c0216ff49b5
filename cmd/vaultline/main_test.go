// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/vaultline/vaultline/cmd/vaultline/cli"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestCommandTree walks the full command tree and validates the
// invariants the help output relies on: every command has a name,
// every subcommand has a summary, every node has either a Run
// function or subcommands, and explicit usage strings open with the
// full command path.
func TestCommandTree(t *testing.T) {
	root := rootCommand()
	walkCommands(root, nil, func(command *cli.Command, path []string) {
		name := strings.Join(path, " ")
		if command.Name == "" {
			t.Errorf("%s: command with empty name", name)
		}
		if command != root && command.Summary == "" {
			t.Errorf("%s: missing summary", name)
		}
		if command.Run == nil && len(command.Subcommands) == 0 {
			t.Errorf("%s: neither Run nor subcommands", name)
		}
		if command.Usage != "" && !strings.HasPrefix(command.Usage, name) {
			t.Errorf("%s: usage %q does not open with the command path", name, command.Usage)
		}
	})
}

// walkCommands recursively visits every command in the tree,
// calling visit for each node with the accumulated command path.
func walkCommands(command *cli.Command, path []string, visit func(*cli.Command, []string)) {
	current := make([]string, len(path)+1)
	copy(current, path)
	current[len(path)] = command.Name
	visit(command, current)
	for _, sub := range command.Subcommands {
		walkCommands(sub, current, visit)
	}
}

func TestVersionCommand(t *testing.T) {
	if err := rootCommand().Execute(context.Background(), []string{"version"}, testLogger()); err != nil {
		t.Fatalf("version: %v", err)
	}
	if err := rootCommand().Execute(context.Background(), []string{"version", "--short"}, testLogger()); err != nil {
		t.Fatalf("version --short: %v", err)
	}
}
