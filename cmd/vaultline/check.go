// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/pflag"

	"github.com/vaultline/vaultline/cmd/vaultline/cli"
	"github.com/vaultline/vaultline/lib/routes"
	"github.com/vaultline/vaultline/lib/vault"
)

type checkParams struct {
	vaultDir string
	pattern  string
	routes   string
}

func checkCommand() *cli.Command {
	var params checkParams

	return &cli.Command{
		Name:    "check",
		Summary: "Inspect vault files for structural problems",
		Description: `Walk the vault's routed markdown files and report structural problems:
timeline files that do not open with their configured header, entries
that do not start with a clock time, and topic date blocks out of
newest-first order.

By default every markdown file under each timeline route's directory
is checked, plus each topic route's file. --pattern restricts the walk
to files matching a doublestar glob relative to the vault root.`,
		Usage: "vaultline check [flags]",
		Examples: []cli.Example{
			{
				Description: "Check the routed files of a vault working copy",
				Command:     "vaultline check --vault ~/vault",
			},
			{
				Description: "Check one year of diary files",
				Command:     "vaultline check --vault ~/vault --pattern '01_diary/2025/*.md'",
			},
			{
				Description: "Check against the deployed route table",
				Command:     "vaultline check --vault ~/vault --routes /etc/vaultline/routes.jsonc",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("check", pflag.ContinueOnError)
			flagSet.StringVar(&params.vaultDir, "vault", ".", "vault directory to inspect")
			flagSet.StringVar(&params.pattern, "pattern", "", "restrict to files matching this glob, relative to the vault root")
			flagSet.StringVar(&params.routes, "routes", "", "route table file (defaults to the built-in diary route)")
			return flagSet
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return runCheck(params, os.Stdout, logger)
		},
	}
}

// runCheck inspects the selected files and writes one line per finding
// to out, grep style: path, line, message. Findings make the command
// exit 1 without a redundant error line.
func runCheck(params checkParams, out io.Writer, logger *slog.Logger) error {
	table := routes.DefaultTable()
	if params.routes != "" {
		var err error
		table, err = routes.ReadFile(params.routes)
		if err != nil {
			return err
		}
	}

	files, err := collectFiles(params.vaultDir, params.pattern, table)
	if err != nil {
		return err
	}
	logger.Debug("collected vault files", "vault", params.vaultDir, "count", len(files))

	total := 0
	for _, relPath := range files {
		source, err := os.ReadFile(filepath.Join(params.vaultDir, relPath))
		if err != nil {
			return fmt.Errorf("reading %s: %w", relPath, err)
		}
		route := routeFor(table, relPath)
		findings := vault.Inspect(source, route.Kind, route.Header)
		for _, finding := range findings {
			if finding.Line > 0 {
				fmt.Fprintf(out, "%s:%d: %s\n", relPath, finding.Line, finding.Message)
			} else {
				fmt.Fprintf(out, "%s: %s\n", relPath, finding.Message)
			}
		}
		total += len(findings)
	}

	if total > 0 {
		fmt.Fprintf(out, "checked %d files, %d findings\n", len(files), total)
		return &cli.ExitError{Code: 1}
	}
	fmt.Fprintf(out, "checked %d files, no findings\n", len(files))
	return nil
}

// collectFiles lists the vault-relative files to inspect, sorted. With
// an explicit pattern the glob decides alone; otherwise the route
// table does: every markdown file under a timeline route's directory,
// plus each topic route's file when it exists.
func collectFiles(vaultDir, pattern string, table *routes.Table) ([]string, error) {
	fsys := os.DirFS(vaultDir)

	if pattern != "" {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("bad --pattern %q: %w", pattern, err)
		}
		slices.Sort(matches)
		return matches, nil
	}

	seen := make(map[string]bool)
	var files []string
	for _, route := range table.Routes() {
		if route.Kind == vault.KindTopic {
			relPath := path.Join(route.Dir, route.File)
			if _, err := fs.Stat(fsys, relPath); err == nil && !seen[relPath] {
				seen[relPath] = true
				files = append(files, relPath)
			}
			continue
		}
		matches, err := doublestar.Glob(fsys, path.Join(route.Dir, "**", "*.md"))
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", route.Dir, err)
		}
		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				files = append(files, match)
			}
		}
	}
	slices.Sort(files)
	return files, nil
}

// routeFor maps a vault-relative path back to the route that owns it.
// Topic routes claim their exact file; timeline routes claim their
// directory subtree. Unclaimed paths fall back to the default route.
func routeFor(table *routes.Table, relPath string) routes.Route {
	for _, route := range table.Routes() {
		if route.Kind == vault.KindTopic {
			if relPath == path.Join(route.Dir, route.File) {
				return route
			}
			continue
		}
		if strings.HasPrefix(relPath, route.Dir+"/") {
			return route
		}
	}
	return table.Select("")
}
