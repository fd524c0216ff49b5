// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Package vault locates, creates, and mutates the markdown files a
// working copy holds. The merge engine is idempotent under message
// redelivery: before any write it probes the target for the batch's
// content (and marker, when one exists), and a hit suppresses the
// whole write. Two layout policies are supported, selected per target:
// timeline files append at the end, topic files keep date-grouped
// blocks with the newest date first.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vaultline/vaultline/lib/entry"
	"github.com/vaultline/vaultline/lib/stamp"
)

// Kind selects the layout policy for a target file.
type Kind string

const (
	// KindTimeline is a per-date file; new entries append at the end.
	KindTimeline Kind = "timeline"

	// KindTopic is a long-lived running log; each day's entries sit
	// under a bare date line, newest date block first.
	KindTopic Kind = "topic"
)

// ParseKind validates a kind string from configuration.
func ParseKind(name string) (Kind, error) {
	switch Kind(name) {
	case KindTimeline:
		return KindTimeline, nil
	case KindTopic:
		return KindTopic, nil
	default:
		return "", fmt.Errorf("unknown target kind: %q", name)
	}
}

// State is the tri-state result of probing a target for a batch.
type State int

const (
	// StateAbsent means the target file does not exist yet.
	StateAbsent State = iota

	// StateDuplicate means the target already holds the batch's
	// content or marker; the merge must not write.
	StateDuplicate

	// StateMergeable means the target exists and holds none of the
	// batch.
	StateMergeable
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateDuplicate:
		return "duplicate"
	case StateMergeable:
		return "mergeable"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Target describes one file the merge engine may write.
type Target struct {
	// Path is the absolute file path inside the working copy.
	Path string

	// Kind selects the layout policy.
	Kind Kind

	// Header is written as the first line when the file is created,
	// e.g. "## Timeline". Empty means no header.
	Header string

	// Date is the invocation's date string ("2025-06-25"). Topic
	// insertion keys on it; new topic files open their first block
	// with it.
	Date string
}

// Batch is one message's rendered entries. All lines share a single
// source message, so any duplicate hit suppresses the whole batch.
type Batch struct {
	// Lines are the rendered entry lines in emit order.
	Lines []entry.Line

	// Marker is the message-ID marker embedded in the lines, or empty
	// when identifier dedup is off for this target. Probing matches
	// the marker even after a user rewords the visible entry text.
	Marker string
}

// Result reports what a merge did.
type Result struct {
	// Applied is true when the target file changed.
	Applied bool

	// State is the probe outcome that led to the decision.
	State State
}

// DiaryPath returns the timeline file path for a stamp:
// <root>/<dir>/<year>/<date>.md.
func DiaryPath(root, dir string, s stamp.Stamp) string {
	return filepath.Join(root, dir, s.Year, s.Date+".md")
}

// Probe classifies a target file against a batch without writing.
func Probe(path string, batch Batch) (State, error) {
	state, _, err := probe(path, batch)
	return state, err
}

// Merge applies a batch to a target per its layout policy. The
// contract, in order: an absent target is created with the header and
// every line; a duplicate probe suppresses the write for the whole
// batch; otherwise the lines are inserted and the full content is
// persisted. Panics on an empty batch: rendering always yields at
// least one line, so an empty batch is a caller bug.
func Merge(target Target, batch Batch) (Result, error) {
	if len(batch.Lines) == 0 {
		panic("vault: empty batch")
	}

	state, content, err := probe(target.Path, batch)
	if err != nil {
		return Result{}, err
	}

	switch state {
	case StateDuplicate:
		return Result{Applied: false, State: StateDuplicate}, nil

	case StateAbsent:
		if err := os.MkdirAll(filepath.Dir(target.Path), 0o755); err != nil {
			return Result{}, fmt.Errorf("creating parent directory for %s: %w", target.Path, err)
		}
		if err := os.WriteFile(target.Path, []byte(renderNew(target, batch)), 0o644); err != nil {
			return Result{}, fmt.Errorf("creating %s: %w", target.Path, err)
		}
		return Result{Applied: true, State: StateAbsent}, nil

	default:
		if err := os.WriteFile(target.Path, []byte(insert(target, content, batch)), 0o644); err != nil {
			return Result{}, fmt.Errorf("updating %s: %w", target.Path, err)
		}
		return Result{Applied: true, State: StateMergeable}, nil
	}
}

// probe reads the target and classifies it, returning the content so
// Merge reads the file exactly once.
func probe(path string, batch Batch) (State, string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return StateAbsent, "", nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("reading %s: %w", path, err)
	}

	content := string(raw)
	if batch.Marker != "" && strings.Contains(content, batch.Marker) {
		return StateDuplicate, content, nil
	}
	for _, line := range batch.Lines {
		if strings.Contains(content, strings.TrimSpace(string(line))) {
			return StateDuplicate, content, nil
		}
	}
	return StateMergeable, content, nil
}

// renderNew produces the full content of a freshly created target.
func renderNew(target Target, batch Batch) string {
	var builder strings.Builder
	if target.Header != "" {
		builder.WriteString(target.Header)
		builder.WriteString("\n")
	}
	if target.Kind == KindTopic {
		builder.WriteString(target.Date)
		builder.WriteString("\n")
		writeLines(&builder, batch.Lines)
		builder.WriteString("\n")
		return builder.String()
	}
	writeLines(&builder, batch.Lines)
	return builder.String()
}

// insert produces the updated content of an existing target.
func insert(target Target, content string, batch Batch) string {
	if target.Kind == KindTopic {
		return insertTopic(target, content, batch)
	}
	var builder strings.Builder
	builder.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		builder.WriteString("\n")
	}
	writeLines(&builder, batch.Lines)
	return builder.String()
}

// insertTopic places the batch inside a running-log file. When the
// file already has a block for the batch's date, the lines go directly
// under the date line. Otherwise a new date block goes on top: after
// the header line when the file opens with the configured header, else
// before the full previous content.
func insertTopic(target Target, content string, batch Batch) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if line == target.Date {
			out := make([]string, 0, len(lines)+len(batch.Lines))
			out = append(out, lines[:i+1]...)
			for _, entryLine := range batch.Lines {
				out = append(out, strings.TrimSuffix(string(entryLine), "\n"))
			}
			out = append(out, lines[i+1:]...)
			return strings.Join(out, "\n")
		}
	}

	var block strings.Builder
	block.WriteString(target.Date)
	block.WriteString("\n")
	writeLines(&block, batch.Lines)
	block.WriteString("\n")

	if target.Header != "" {
		headerLine := target.Header + "\n"
		if rest, found := strings.CutPrefix(content, headerLine); found {
			rest = strings.TrimPrefix(rest, "\n")
			return headerLine + block.String() + rest
		}
	}
	return block.String() + content
}

func writeLines(builder *strings.Builder, lines []entry.Line) {
	for _, line := range lines {
		builder.WriteString(string(line))
	}
}
