// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the vaultline CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree in cmd/vaultline/main.go
// and dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// Commands that print their own diagnostics and want a bare non-zero
// exit return [ExitError]; the binary's main checks for it and skips
// the generic "error:" line.
package cli
