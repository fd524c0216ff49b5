// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Package git provides typed access to the git CLI for vault
// operations: cloning a working copy, staging and committing the
// changed file, and pushing to (or rebasing onto) the remote. All
// commands target a specific repository directory via the -C flag,
// which is automatically injected by all Repository methods. Version
// control is consumed as a capability here, never reimplemented.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Repository represents a git repository at a specific directory. All
// operations target this directory via "git -C <dir>". There is no
// default directory — callers must always specify which repository
// they mean.
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// CloneShallow clones one branch of a remote at the given history
// depth into dir and returns a Repository targeting it. An empty
// branch clones the remote's default branch. The remote URL may embed
// credentials; it is deliberately left out of the error text (git's
// own stderr is the caller's to scrub).
func CloneShallow(ctx context.Context, remoteURL, branch, dir string, depth int) (*Repository, error) {
	args := []string{"clone", "--depth", strconv.Itoa(depth), "--single-branch"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, remoteURL, dir)

	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", args...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("git clone into %s: %w (stderr: %s)",
			dir, err, strings.TrimSpace(stderr.String()))
	}
	return NewRepository(dir), nil
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error messages
// on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Add stages a single path.
func (r *Repository) Add(ctx context.Context, path string) error {
	_, err := r.Run(ctx, "add", "--", path)
	return err
}

// Commit records the staged changes with the given message. The commit
// identity comes from the repository's local config (see ConfigSet).
func (r *Repository) Commit(ctx context.Context, message string) error {
	_, err := r.Run(ctx, "commit", "-m", message)
	return err
}

// Push sends the branch to the named remote. An empty branch pushes
// the current branch.
func (r *Repository) Push(ctx context.Context, remote, branch string) error {
	args := []string{"push", remote}
	if branch != "" {
		args = append(args, branch)
	}
	_, err := r.Run(ctx, args...)
	return err
}

// PullRebase fetches the branch from the named remote and rebases the
// local commits onto it. An empty branch uses the remote's default.
func (r *Repository) PullRebase(ctx context.Context, remote, branch string) error {
	args := []string{"pull", "--rebase", remote}
	if branch != "" {
		args = append(args, branch)
	}
	_, err := r.Run(ctx, args...)
	return err
}

// ConfigSet writes a repository-local config value, e.g. "user.name".
func (r *Repository) ConfigSet(ctx context.Context, key, value string) error {
	_, err := r.Run(ctx, "config", key, value)
	return err
}

// CurrentBranch returns the name of the checked-out branch.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}
