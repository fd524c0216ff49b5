// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Package syncer commits a merged change and pushes it to the vault
// remote. The remote enforces linear, non-force-pushable history, so
// concurrent invocations racing to append need a rebase-and-retry loop
// rather than failing on first rejection: push, and on rejection sleep
// a backoff proportional to the attempt number, best-effort pull
// --rebase, and try again up to a fixed attempt bound. A uniform
// random jitter before the invocation's first git interaction spreads
// racing invocations in time.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/vaultline/vaultline/lib/clock"
	"github.com/vaultline/vaultline/lib/git"
)

// Repository is the version-control capability the coordinator
// drives. Bind adapts a working copy's git repository; tests
// substitute scripted fakes.
type Repository interface {
	// Add stages one path.
	Add(ctx context.Context, path string) error

	// Commit records the staged change with the given message.
	Commit(ctx context.Context, message string) error

	// Push sends the local branch to the remote.
	Push(ctx context.Context) error

	// PullRebase rebases local commits onto the remote branch.
	PullRebase(ctx context.Context) error
}

// Bind fixes the remote name and branch that Push and PullRebase
// target, adapting *git.Repository to the Repository capability.
func Bind(repo *git.Repository, remoteName, branch string) Repository {
	return boundRepository{repo: repo, remoteName: remoteName, branch: branch}
}

type boundRepository struct {
	repo       *git.Repository
	remoteName string
	branch     string
}

func (b boundRepository) Add(ctx context.Context, path string) error {
	return b.repo.Add(ctx, path)
}

func (b boundRepository) Commit(ctx context.Context, message string) error {
	return b.repo.Commit(ctx, message)
}

func (b boundRepository) Push(ctx context.Context) error {
	return b.repo.Push(ctx, b.remoteName, b.branch)
}

func (b boundRepository) PullRebase(ctx context.Context) error {
	return b.repo.PullRebase(ctx, b.remoteName, b.branch)
}

// Options configure a Coordinator. Logger is required; zero values
// elsewhere take defaults.
type Options struct {
	// MaxAttempts bounds the push loop. Default 3.
	MaxAttempts int

	// JitterMin and JitterMax bound the pre-sync sleep window.
	// Defaults 1s and 3s.
	JitterMin time.Duration
	JitterMax time.Duration

	// Backoff is the unit slept between attempts; attempt n waits
	// n times this. Default 1s.
	Backoff time.Duration

	// Clock defaults to the real clock.
	Clock clock.Clock

	Logger *slog.Logger
}

// Coordinator owns the jitter and push-retry policy for one vault.
type Coordinator struct {
	maxAttempts int
	jitterMin   time.Duration
	jitterMax   time.Duration
	backoff     time.Duration
	clock       clock.Clock
	logger      *slog.Logger
}

// NewCoordinator validates options and returns a Coordinator. Panics
// on a nil logger or an inverted jitter window: both are programmer
// errors, the config layer validates user input before this point.
func NewCoordinator(options Options) *Coordinator {
	if options.Logger == nil {
		panic("syncer: Logger is required")
	}
	coordinator := &Coordinator{
		maxAttempts: options.MaxAttempts,
		jitterMin:   options.JitterMin,
		jitterMax:   options.JitterMax,
		backoff:     options.Backoff,
		clock:       options.Clock,
		logger:      options.Logger,
	}
	if coordinator.maxAttempts == 0 {
		coordinator.maxAttempts = 3
	}
	if coordinator.jitterMin == 0 && coordinator.jitterMax == 0 {
		coordinator.jitterMin = time.Second
		coordinator.jitterMax = 3 * time.Second
	}
	if coordinator.jitterMin > coordinator.jitterMax {
		panic("syncer: jitter window inverted")
	}
	if coordinator.backoff == 0 {
		coordinator.backoff = time.Second
	}
	if coordinator.clock == nil {
		coordinator.clock = clock.Real()
	}
	return coordinator
}

// Jitter sleeps a uniform random duration from the configured window.
// Run it once per invocation before its first git interaction.
func (c *Coordinator) Jitter() {
	delay := c.jitterMin
	if window := c.jitterMax - c.jitterMin; window > 0 {
		//nolint:gosec // The random delay is for jitter, not security.
		delay += time.Duration(rand.Int63n(int64(window)))
	}
	c.logger.Debug("jitter before vault sync", "delay", delay)
	c.clock.Sleep(delay)
}

// Sync stages the changed file, commits it with the given message,
// and pushes with the retry loop. A push rejection on the final
// attempt propagates the underlying error; staging and commit failures
// propagate immediately, there is nothing to retry locally.
func (c *Coordinator) Sync(ctx context.Context, repo Repository, path, message string) error {
	if err := repo.Add(ctx, path); err != nil {
		return fmt.Errorf("staging %s: %w", path, err)
	}
	if err := repo.Commit(ctx, message); err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		err := repo.Push(ctx)
		if err == nil {
			c.logger.Info("push succeeded", "attempt", attempt)
			return nil
		}
		lastErr = err

		if attempt == c.maxAttempts {
			return fmt.Errorf("pushing after %d attempts: %w", c.maxAttempts, lastErr)
		}

		c.logger.Warn("push rejected", "attempt", attempt, "error", lastErr)
		c.clock.Sleep(time.Duration(attempt) * c.backoff)

		// Best-effort conflict reducer: the next push decides whether
		// recovery worked.
		if err := repo.PullRebase(ctx); err != nil {
			c.logger.Warn("pull between push attempts failed", "attempt", attempt, "error", err)
		}
	}
}

// CommitMessage renders the deterministic commit subject for an
// invocation, e.g. "LINE 2025-06-25 14:30".
func CommitMessage(prefix, date, clockTime string) string {
	return prefix + " " + date + " " + clockTime
}
