// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Vaultline operator CLI. Inspects vault structure (check), appends
// entries manually through the same pipeline the webhook service runs
// (append), and prints build information (version).
//
// The append command reads the same vaultline.yaml the service reads,
// via --config or VAULTLINE_CONFIG. The check command needs no
// configuration beyond an optional route table file; it works on any
// local working copy of the vault.
package main
