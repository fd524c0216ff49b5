// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Vaultline packages.
//
// [InitVaultRemote] creates a bare git repository seeded with one
// commit, standing in for the hosted vault remote. Tests that exercise
// clone, push, and pull paths run against it through file:// URLs or
// plain directory paths, so the full git interaction is covered
// without a network.
//
// [SeedRemoteFile] commits one file to the remote through a scratch
// clone. Tests use it to lay down pre-existing vault content and to
// advance the remote between a working copy's clone and its push,
// which is how push-rejection recovery is exercised deterministically.
//
// [RemoteFile] and [RemoteSubjects] read back remote state (file
// content at the branch tip, commit subjects) so tests assert on what
// was actually pushed rather than on local working-copy state.
//
// All helpers drive the real git binary and call t.Fatalf on failure,
// since fixture failures are not recoverable. They all operate on the
// remote's main branch.
//
// This package has no Vaultline-internal dependencies.
package testutil
