// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// InitVaultRemote creates a bare git repository seeded with one commit
// on main and returns its directory path. It stands in for the hosted
// vault remote; prefix the path with "file://" where a clone URL is
// needed.
func InitVaultRemote(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	bareDir := filepath.Join(dir, "vault.git")
	runGit(t, "init", "--bare", "--initial-branch=main", bareDir)

	// Seed through a scratch clone so the remote's HEAD resolves.
	seedDir := filepath.Join(dir, "seed")
	runGit(t, "clone", bareDir, seedDir)
	configureIdentity(t, seedDir)
	writeFile(t, filepath.Join(seedDir, "README.md"), "vault\n")
	runGit(t, "-C", seedDir, "add", "README.md")
	runGit(t, "-C", seedDir, "commit", "-m", "initial")
	runGit(t, "-C", seedDir, "push", "origin", "main")

	return bareDir
}

// SeedRemoteFile commits one file to the remote's main branch through
// a scratch clone. relPath is slash-separated and vault-relative. An
// existing file is overwritten, so tests can simulate hand edits to
// vault content between invocations.
func SeedRemoteFile(t *testing.T, remoteDir, relPath, content string) {
	t.Helper()

	scratchDir := filepath.Join(t.TempDir(), "scratch")
	runGit(t, "clone", remoteDir, scratchDir)
	configureIdentity(t, scratchDir)

	fullPath := filepath.Join(scratchDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(fullPath), err)
	}
	writeFile(t, fullPath, content)
	runGit(t, "-C", scratchDir, "add", filepath.FromSlash(relPath))
	runGit(t, "-C", scratchDir, "commit", "-m", "seed "+relPath)
	runGit(t, "-C", scratchDir, "push", "origin", "main")
}

// RemoteFile reads one file from the tip of the remote's main branch.
// The boolean reports whether the file exists there.
func RemoteFile(t *testing.T, remoteDir, relPath string) (string, bool) {
	t.Helper()

	command := exec.Command("git", "-C", remoteDir, "show", "main:"+relPath)
	output, err := command.Output()
	if err != nil {
		return "", false
	}
	return string(output), true
}

// RemoteSubjects returns the remote's main-branch commit subjects,
// newest first.
func RemoteSubjects(t *testing.T, remoteDir string) []string {
	t.Helper()

	command := exec.Command("git", "-C", remoteDir, "log", "--format=%s", "main")
	output, err := command.CombinedOutput()
	if err != nil {
		t.Fatalf("git log: %v\n%s", err, output)
	}
	var subjects []string
	for _, line := range strings.Split(string(output), "\n") {
		if line != "" {
			subjects = append(subjects, line)
		}
	}
	return subjects
}

func runGit(t *testing.T, args ...string) {
	t.Helper()
	command := exec.Command("git", args...)
	if output, err := command.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, output)
	}
}

func configureIdentity(t *testing.T, dir string) {
	t.Helper()
	runGit(t, "-C", dir, "config", "user.name", "Test")
	runGit(t, "-C", dir, "config", "user.email", "test@test.local")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
