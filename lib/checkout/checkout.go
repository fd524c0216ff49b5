// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Package checkout materializes invocation-scoped working copies of
// the vault. Each materialization is a shallow clone into a freshly
// generated unique directory: concurrent invocations never share a
// working copy, because git index and branch state are not safe for
// concurrent mutation. Copies are disposable; Remove reclaims them at
// the end of a run.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vaultline/vaultline/lib/git"
)

// Identity is the commit author recorded on vault commits.
type Identity struct {
	Name  string
	Email string
}

// Options configure a Materializer. RemoteURL, Identity, and Logger
// are required.
type Options struct {
	// RemoteURL is the vault remote, e.g. "https://github.com/user/vault.git".
	RemoteURL string

	// Credential is an access token injected into the URL authority.
	// Empty means the remote needs no embedded credential (public, or
	// authenticated out of band).
	Credential string

	// Branch to clone and track. Empty clones the remote's default
	// branch.
	Branch string

	// WorkRoot is the parent directory for working copies. Empty uses
	// the system temp directory.
	WorkRoot string

	// Depth is the clone depth. Zero means 1.
	Depth int

	Identity Identity
	Logger   *slog.Logger
}

// Materializer produces working copies of one vault remote.
type Materializer struct {
	remoteURL  string
	credential string
	branch     string
	workRoot   string
	depth      int
	identity   Identity
	logger     *slog.Logger
}

// NewMaterializer validates options and returns a Materializer.
// Panics on missing required options: those are programmer errors, not
// runtime conditions.
func NewMaterializer(options Options) *Materializer {
	if options.RemoteURL == "" {
		panic("checkout: RemoteURL is required")
	}
	if options.Identity.Name == "" || options.Identity.Email == "" {
		panic("checkout: commit identity name and email are required")
	}
	if options.Logger == nil {
		panic("checkout: Logger is required")
	}
	workRoot := options.WorkRoot
	if workRoot == "" {
		workRoot = os.TempDir()
	}
	depth := options.Depth
	if depth == 0 {
		depth = 1
	}
	return &Materializer{
		remoteURL:  options.RemoteURL,
		credential: options.Credential,
		branch:     options.Branch,
		workRoot:   workRoot,
		depth:      depth,
		identity:   options.Identity,
		logger:     options.Logger,
	}
}

// WorkingCopy is one invocation's isolated checkout of the vault.
type WorkingCopy struct {
	repo   *git.Repository
	branch string
	logger *slog.Logger
}

// Materialize clones the vault into a unique directory and configures
// the commit identity on the clone. Failure is fatal for the
// invocation: without a working copy there is no target file to
// resolve, so callers must not retry.
func (m *Materializer) Materialize(ctx context.Context) (*WorkingCopy, error) {
	authURL, err := injectCredential(m.remoteURL, m.credential)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return nil, fmt.Errorf("creating work root: %w", err)
	}
	dir := filepath.Join(m.workRoot, "vault-"+uuid.NewString())

	repo, err := git.CloneShallow(ctx, authURL, m.branch, dir, m.depth)
	if err != nil {
		return nil, m.scrub(fmt.Errorf("materializing working copy: %w", err))
	}

	if err := repo.ConfigSet(ctx, "user.name", m.identity.Name); err != nil {
		return nil, m.scrub(err)
	}
	if err := repo.ConfigSet(ctx, "user.email", m.identity.Email); err != nil {
		return nil, m.scrub(err)
	}

	branch := m.branch
	if branch == "" {
		branch, err = repo.CurrentBranch(ctx)
		if err != nil {
			return nil, m.scrub(err)
		}
	}

	m.logger.Info("working copy materialized", "dir", dir, "branch", branch)
	return &WorkingCopy{repo: repo, branch: branch, logger: m.logger}, nil
}

// scrub redacts the credential from error text. The original error
// chain is dropped when redaction applies: the chain's text embeds the
// authenticated URL.
func (m *Materializer) scrub(err error) error {
	if err == nil || m.credential == "" {
		return err
	}
	text := err.Error()
	cleaned := strings.ReplaceAll(text, m.credential, "***")
	if cleaned == text {
		return err
	}
	return errors.New(cleaned)
}

// Repo returns the git repository of this working copy.
func (w *WorkingCopy) Repo() *git.Repository {
	return w.repo
}

// Dir returns the working copy's root directory.
func (w *WorkingCopy) Dir() string {
	return w.repo.Dir()
}

// Branch returns the checked-out branch name.
func (w *WorkingCopy) Branch() string {
	return w.branch
}

// Path joins elements under the working copy root.
func (w *WorkingCopy) Path(elements ...string) string {
	return filepath.Join(append([]string{w.repo.Dir()}, elements...)...)
}

// Remove deletes the working copy tree. Best effort: a copy that
// cannot be removed is logged and left for the host to reclaim.
func (w *WorkingCopy) Remove() {
	if err := os.RemoveAll(w.repo.Dir()); err != nil {
		w.logger.Warn("removing working copy failed", "dir", w.repo.Dir(), "error", err)
	}
}

// injectCredential places the credential into the URL's authority
// component as the userinfo. Requires an http(s) remote when a
// credential is present: embedding tokens is a URL-authority
// mechanism, not an ssh one.
func injectCredential(remoteURL, credential string) (string, error) {
	if credential == "" {
		return remoteURL, nil
	}
	parsed, err := url.Parse(remoteURL)
	if err != nil {
		return "", fmt.Errorf("parsing remote URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return "", fmt.Errorf("credential injection requires an http(s) remote, got scheme %q", parsed.Scheme)
	}
	parsed.User = url.User(credential)
	return parsed.String(), nil
}
