// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Vaultline webhook service. Receives LINE webhook events, appends
// each text message as a timestamped entry into the markdown vault,
// and commits and pushes the change to the vault's git remote.
//
// One interface: an HTTP listener for webhook ingestion (HMAC-SHA256
// verified), plus GET /healthz for liveness probes.
//
// Configuration comes from the YAML file named by VAULTLINE_CONFIG or
// the --config flag. Secrets (the channel secret, the git credential)
// are referenced from the config as file paths and never appear inline
// or in logs.
package main
