// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Vaultline
// components.
//
// Configuration is loaded from a single file specified by either the
// VAULTLINE_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks, no ~/.config
// discovery, and no automatic file search. This ensures deterministic,
// auditable configuration with no hidden overrides.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Vault, Commit, Webhook, Time,
//     Sync, and Checkout sections
//   - [Default] -- returns a Config with the stock personal-vault
//     defaults (Asia/Tokyo stamps, "LINE" commit prefix, 3 push
//     attempts)
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [ReadSecret] -- reads and trims token/secret files referenced
//     by the config
//
// This package depends on no other Vaultline packages.
package config
