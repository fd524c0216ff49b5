// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest runs the append-and-sync pipeline for one inbound
// message: stamp the event time, render entry lines, materialize a
// working copy of the vault, merge into the routed target file, and
// commit and push the change.
//
// Each Process call is fully isolated from every other: it clones its
// own working copy, reads duplicate state fresh from that copy, and
// removes the copy when done. Correctness under concurrent invocations
// comes from that isolation plus the coordinator's jitter and push
// retry, not from in-process locking.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/vaultline/vaultline/lib/checkout"
	"github.com/vaultline/vaultline/lib/entry"
	"github.com/vaultline/vaultline/lib/routes"
	"github.com/vaultline/vaultline/lib/stamp"
	"github.com/vaultline/vaultline/lib/syncer"
	"github.com/vaultline/vaultline/lib/vault"
)

// remoteName is the name CloneShallow gives the vault remote.
const remoteName = "origin"

// Message is one inbound text message, extracted from the validated
// webhook event (or built by the CLI for manual entries).
type Message struct {
	// Text is the message content. Must be non-blank; the dispatcher
	// filters empty messages before the pipeline runs.
	Text string

	// TimestampMS is the platform's event timestamp in epoch
	// milliseconds.
	TimestampMS int64

	// ID is the platform message identifier. Optional; when present and
	// the route has marker dedup enabled, entries carry a hidden marker
	// bound to it.
	ID string

	// Destination is the bot user ID the message was sent to. Selects
	// the route; empty falls through to the default route.
	Destination string

	// Route names the target route directly, bypassing destination
	// selection. Set by manual appends; unknown names are an error.
	Route string
}

// Outcome reports what one invocation did. A duplicate no-op is a
// successful outcome with Applied false.
type Outcome struct {
	// Route is the name of the route that handled the message.
	Route string

	// Path is the vault-relative path of the target file.
	Path string

	// State is the merge probe result for the target.
	State vault.State

	// Applied is true when the vault changed and the change was pushed.
	Applied bool

	// Commit is the commit message, empty when nothing was pushed.
	Commit string
}

// Options configure a Pipeline. All fields except MessagePrefix are
// required.
type Options struct {
	// Stamper renders event timestamps in the vault's time zone.
	Stamper *stamp.Formatter

	// Routes maps destinations to vault write targets.
	Routes *routes.Table

	// Materializer produces a fresh working copy per invocation.
	Materializer *checkout.Materializer

	// Coordinator owns the jitter and commit-push-retry policy.
	Coordinator *syncer.Coordinator

	// MessagePrefix opens every commit message, e.g. "LINE".
	MessagePrefix string

	Logger *slog.Logger
}

// Pipeline is the append-and-sync pipeline for one vault. Stateless
// between invocations; a single Pipeline serves concurrent Process
// calls.
type Pipeline struct {
	stamper       *stamp.Formatter
	routes        *routes.Table
	materializer  *checkout.Materializer
	coordinator   *syncer.Coordinator
	messagePrefix string
	logger        *slog.Logger
}

// NewPipeline validates options and returns a Pipeline. Panics on
// missing collaborators: wiring happens once at startup and a nil
// collaborator is a programmer error.
func NewPipeline(options Options) *Pipeline {
	if options.Stamper == nil {
		panic("ingest: Stamper is required")
	}
	if options.Routes == nil {
		panic("ingest: Routes is required")
	}
	if options.Materializer == nil {
		panic("ingest: Materializer is required")
	}
	if options.Coordinator == nil {
		panic("ingest: Coordinator is required")
	}
	if options.Logger == nil {
		panic("ingest: Logger is required")
	}
	return &Pipeline{
		stamper:       options.Stamper,
		routes:        options.Routes,
		materializer:  options.Materializer,
		coordinator:   options.Coordinator,
		messagePrefix: options.MessagePrefix,
		logger:        options.Logger,
	}
}

// Process runs the pipeline for one message. On success the entry is
// durably present in the pushed remote exactly once, or a detected
// duplicate left the vault untouched; on error nothing durable
// changed (a local write may have happened, but the working copy is
// discarded with it).
func (p *Pipeline) Process(ctx context.Context, message Message) (Outcome, error) {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return Outcome{}, errors.New("message text is empty")
	}

	moment := p.stamper.At(message.TimestampMS)

	var route routes.Route
	if message.Route != "" {
		var ok bool
		route, ok = p.routes.Named(message.Route)
		if !ok {
			return Outcome{}, fmt.Errorf("no route named %q", message.Route)
		}
	} else {
		route = p.routes.Select(message.Destination)
	}

	lines := entry.Render(text, moment.Time)
	batch := vault.Batch{Lines: lines}
	if route.MarkerDedup && message.ID != "" {
		batch.Marker = entry.MarkerFor(message.ID)
		for i, line := range lines {
			lines[i] = entry.Mark(line, message.ID)
		}
	}

	logger := p.logger.With("invocation", uuid.NewString())
	logger.Info("processing message",
		"route", route.Name,
		"destination", message.Destination,
		"date", moment.Date,
		"time", moment.Time,
		"lines", len(lines),
	)

	// Spread concurrent invocations in time before the first git
	// interaction; the remote enforces linear history.
	p.coordinator.Jitter()

	workingCopy, err := p.materializer.Materialize(ctx)
	if err != nil {
		return Outcome{}, err
	}
	defer workingCopy.Remove()

	relPath := route.RelativePath(moment)
	target := route.Target(workingCopy.Dir(), moment)

	result, err := vault.Merge(target, batch)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{
		Route: route.Name,
		Path:  relPath,
		State: result.State,
	}

	if !result.Applied {
		logger.Info("duplicate entry, vault unchanged", "path", relPath)
		return outcome, nil
	}

	commitMessage := syncer.CommitMessage(p.messagePrefix, moment.Date, moment.Time)
	repo := syncer.Bind(workingCopy.Repo(), remoteName, workingCopy.Branch())
	if err := p.coordinator.Sync(ctx, repo, target.Path, commitMessage); err != nil {
		return Outcome{}, err
	}

	outcome.Applied = true
	outcome.Commit = commitMessage
	logger.Info("entry appended",
		"path", relPath,
		"state", result.State.String(),
		"commit", commitMessage,
	)
	return outcome, nil
}
