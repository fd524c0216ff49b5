// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vaultline/vaultline/lib/checkout"
	"github.com/vaultline/vaultline/lib/clock"
	"github.com/vaultline/vaultline/lib/entry"
	"github.com/vaultline/vaultline/lib/routes"
	"github.com/vaultline/vaultline/lib/stamp"
	"github.com/vaultline/vaultline/lib/syncer"
	"github.com/vaultline/vaultline/lib/testutil"
	"github.com/vaultline/vaultline/lib/vault"
)

// testEpochMS is 2025-06-25 14:30 JST.
const testEpochMS = int64(1750829400000)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fixture wires a Pipeline against a local bare remote so Process runs
// the full clone, merge, commit, and push cycle.
type fixture struct {
	bareDir  string
	pipeline *Pipeline
	clock    *clock.FakeClock
}

func newFixture(t *testing.T, table *routes.Table) *fixture {
	t.Helper()

	bareDir := testutil.InitVaultRemote(t)
	formatter, err := stamp.NewFormatter("Asia/Tokyo")
	if err != nil {
		t.Fatalf("NewFormatter: %v", err)
	}
	fakeClock := clock.Fake(time.Date(2025, 6, 25, 14, 30, 0, 0, time.UTC))
	logger := testLogger()

	pipeline := NewPipeline(Options{
		Stamper: formatter,
		Routes:  table,
		Materializer: checkout.NewMaterializer(checkout.Options{
			RemoteURL: "file://" + bareDir,
			Branch:    "main",
			WorkRoot:  t.TempDir(),
			Identity:  checkout.Identity{Name: "LINE Bot", Email: "line-bot@localhost"},
			Logger:    logger,
		}),
		Coordinator: syncer.NewCoordinator(syncer.Options{
			Clock:  fakeClock,
			Logger: logger,
		}),
		MessagePrefix: "LINE",
		Logger:        logger,
	})

	return &fixture{bareDir: bareDir, pipeline: pipeline, clock: fakeClock}
}

func TestProcessCreatesTimelineFile(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, routes.DefaultTable())

	outcome, err := fx.pipeline.Process(context.Background(), Message{
		Text:        "Hello World",
		TimestampMS: testEpochMS,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !outcome.Applied {
		t.Error("outcome not applied")
	}
	if outcome.State != vault.StateAbsent {
		t.Errorf("State = %v, want absent (file was created)", outcome.State)
	}
	if outcome.Route != "diary" {
		t.Errorf("Route = %q, want %q", outcome.Route, "diary")
	}
	if want := filepath.Join("01_diary", "2025", "2025-06-25.md"); outcome.Path != want {
		t.Errorf("Path = %q, want %q", outcome.Path, want)
	}
	if outcome.Commit != "LINE 2025-06-25 14:30" {
		t.Errorf("Commit = %q, want %q", outcome.Commit, "LINE 2025-06-25 14:30")
	}

	content, ok := testutil.RemoteFile(t, fx.bareDir, "01_diary/2025/2025-06-25.md")
	if !ok {
		t.Fatal("diary file missing from remote")
	}
	if content != "## Timeline\n- 14:30 Hello World\n" {
		t.Errorf("remote content = %q", content)
	}

	subjects := testutil.RemoteSubjects(t, fx.bareDir)
	if len(subjects) == 0 || subjects[0] != "LINE 2025-06-25 14:30" {
		t.Errorf("remote subjects = %v, want the diary commit first", subjects)
	}

	// Exactly one sleep: the pre-clone jitter. A clean push needs no
	// backoff.
	if got := fx.clock.SleepCount(); got != 1 {
		t.Errorf("slept %d times, want 1", got)
	}
}

func TestProcessAppendsToExistingFile(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, routes.DefaultTable())
	testutil.SeedRemoteFile(t, fx.bareDir, "01_diary/2025/2025-06-25.md",
		"## Timeline\n- 09:00 Morning coffee\n")

	outcome, err := fx.pipeline.Process(context.Background(), Message{
		Text:        "Hello World",
		TimestampMS: testEpochMS,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome.State != vault.StateMergeable {
		t.Errorf("State = %v, want mergeable", outcome.State)
	}

	content, _ := testutil.RemoteFile(t, fx.bareDir, "01_diary/2025/2025-06-25.md")
	want := "## Timeline\n- 09:00 Morning coffee\n- 14:30 Hello World\n"
	if content != want {
		t.Errorf("remote content = %q, want %q", content, want)
	}
}

func TestProcessSecondDeliveryIsNoOp(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, routes.DefaultTable())
	message := Message{Text: "Hello World", TimestampMS: testEpochMS}

	first, err := fx.pipeline.Process(context.Background(), message)
	if err != nil {
		t.Fatalf("first Process: %v", err)
	}
	if !first.Applied {
		t.Fatal("first Process did not apply")
	}
	afterFirst, _ := testutil.RemoteFile(t, fx.bareDir, "01_diary/2025/2025-06-25.md")
	subjectsAfterFirst := len(testutil.RemoteSubjects(t, fx.bareDir))

	second, err := fx.pipeline.Process(context.Background(), message)
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if second.Applied {
		t.Error("second Process applied a duplicate")
	}
	if second.State != vault.StateDuplicate {
		t.Errorf("second State = %v, want duplicate", second.State)
	}
	if second.Commit != "" {
		t.Errorf("second Commit = %q, want empty (nothing pushed)", second.Commit)
	}

	afterSecond, _ := testutil.RemoteFile(t, fx.bareDir, "01_diary/2025/2025-06-25.md")
	if afterSecond != afterFirst {
		t.Errorf("remote content changed on duplicate: %q -> %q", afterFirst, afterSecond)
	}
	if got := len(testutil.RemoteSubjects(t, fx.bareDir)); got != subjectsAfterFirst {
		t.Errorf("remote gained commits on duplicate: %d -> %d", subjectsAfterFirst, got)
	}
}

func TestProcessSplitsBatchMessage(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, routes.DefaultTable())

	if _, err := fx.pipeline.Process(context.Background(), Message{
		Text:        "13:13 notebook - 13:46 test",
		TimestampMS: testEpochMS,
	}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	content, _ := testutil.RemoteFile(t, fx.bareDir, "01_diary/2025/2025-06-25.md")
	want := "## Timeline\n- 13:13 notebook\n- 13:46 test\n"
	if content != want {
		t.Errorf("remote content = %q, want %q (segment times, not invocation time)", content, want)
	}
}

func notebookTable(t *testing.T) *routes.Table {
	t.Helper()
	table, err := routes.Parse([]byte(`{
  "routes": [
    {"name": "diary", "kind": "timeline", "dir": "01_diary", "header": "## Timeline"},
    {
      "name": "notebook",
      "kind": "topic",
      "dir": "02_notes",
      "file": "notebook.md",
      "header": "## Log",
      "marker_dedup": true,
      "destinations": ["U-notebook"]
    }
  ]
}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return table
}

func TestProcessTopicRouteWithMarker(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, notebookTable(t))
	testutil.SeedRemoteFile(t, fx.bareDir, "02_notes/notebook.md",
		"## Log\n2025-06-24\n- 10:00 earlier note\n\n")

	outcome, err := fx.pipeline.Process(context.Background(), Message{
		Text:        "new idea",
		TimestampMS: testEpochMS,
		ID:          "msg-777",
		Destination: "U-notebook",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome.Route != "notebook" {
		t.Errorf("Route = %q, want %q", outcome.Route, "notebook")
	}

	marker := entry.MarkerFor("msg-777")
	content, _ := testutil.RemoteFile(t, fx.bareDir, "02_notes/notebook.md")
	want := "## Log\n2025-06-25\n- 14:30 new idea " + marker + "\n\n2025-06-24\n- 10:00 earlier note\n\n"
	if content != want {
		t.Errorf("remote content = %q, want %q", content, want)
	}
}

func TestProcessMarkerSurvivesRewording(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, notebookTable(t))

	message := Message{
		Text:        "new idea",
		TimestampMS: testEpochMS,
		ID:          "msg-777",
		Destination: "U-notebook",
	}
	if _, err := fx.pipeline.Process(context.Background(), message); err != nil {
		t.Fatalf("first Process: %v", err)
	}

	// The vault owner rewords the entry by hand; the marker comment
	// stays behind.
	marker := entry.MarkerFor("msg-777")
	edited := "## Log\n2025-06-25\n- 14:30 brilliant idea " + marker + "\n\n"
	testutil.SeedRemoteFile(t, fx.bareDir, "02_notes/notebook.md", edited)

	outcome, err := fx.pipeline.Process(context.Background(), message)
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if outcome.Applied {
		t.Error("redelivery applied despite the marker")
	}
	if outcome.State != vault.StateDuplicate {
		t.Errorf("State = %v, want duplicate", outcome.State)
	}

	content, _ := testutil.RemoteFile(t, fx.bareDir, "02_notes/notebook.md")
	if content != edited {
		t.Errorf("redelivery modified the hand-edited file: %q", content)
	}
}

func TestProcessNamedRoute(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, notebookTable(t))

	// A manual append names the route; there is no destination and no
	// platform message ID, so no marker is embedded.
	outcome, err := fx.pipeline.Process(context.Background(), Message{
		Text:        "manual note",
		TimestampMS: testEpochMS,
		Route:       "notebook",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome.Route != "notebook" {
		t.Errorf("Route = %q, want %q", outcome.Route, "notebook")
	}

	content, ok := testutil.RemoteFile(t, fx.bareDir, "02_notes/notebook.md")
	if !ok {
		t.Fatal("notebook file missing from remote")
	}
	want := "## Log\n2025-06-25\n- 14:30 manual note\n\n"
	if content != want {
		t.Errorf("remote content = %q, want %q", content, want)
	}
}

func TestProcessUnknownNamedRoute(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, notebookTable(t))

	_, err := fx.pipeline.Process(context.Background(), Message{
		Text:        "lost",
		TimestampMS: testEpochMS,
		Route:       "no-such-route",
	})
	if err == nil {
		t.Fatal("Process accepted an unknown route name")
	}
	if !strings.Contains(err.Error(), "no-such-route") {
		t.Errorf("error %q should name the missing route", err)
	}
}

func TestProcessEmptyTextRejected(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, routes.DefaultTable())

	if _, err := fx.pipeline.Process(context.Background(), Message{
		Text:        "   \n",
		TimestampMS: testEpochMS,
	}); err == nil {
		t.Fatal("Process accepted a blank message")
	}
}

func TestProcessMaterializeFailureIsFatal(t *testing.T) {
	t.Parallel()

	formatter, err := stamp.NewFormatter("Asia/Tokyo")
	if err != nil {
		t.Fatalf("NewFormatter: %v", err)
	}
	logger := testLogger()
	pipeline := NewPipeline(Options{
		Stamper: formatter,
		Routes:  routes.DefaultTable(),
		Materializer: checkout.NewMaterializer(checkout.Options{
			RemoteURL: "file:///nonexistent/vault.git",
			Branch:    "main",
			WorkRoot:  t.TempDir(),
			Identity:  checkout.Identity{Name: "LINE Bot", Email: "line-bot@localhost"},
			Logger:    logger,
		}),
		Coordinator: syncer.NewCoordinator(syncer.Options{
			Clock:  clock.Fake(time.Date(2025, 6, 25, 14, 30, 0, 0, time.UTC)),
			Logger: logger,
		}),
		MessagePrefix: "LINE",
		Logger:        logger,
	})

	if _, err := pipeline.Process(context.Background(), Message{
		Text:        "Hello World",
		TimestampMS: testEpochMS,
	}); err == nil {
		t.Fatal("Process succeeded with an unreachable remote")
	}
}

func TestNewPipelinePanics(t *testing.T) {
	t.Parallel()

	formatter, err := stamp.NewFormatter("Asia/Tokyo")
	if err != nil {
		t.Fatalf("NewFormatter: %v", err)
	}
	logger := testLogger()
	materializer := checkout.NewMaterializer(checkout.Options{
		RemoteURL: "file:///vault.git",
		Identity:  checkout.Identity{Name: "Bot", Email: "bot@vault.local"},
		Logger:    logger,
	})
	coordinator := syncer.NewCoordinator(syncer.Options{Logger: logger})
	table := routes.DefaultTable()

	tests := []struct {
		name    string
		options Options
	}{
		{
			name:    "missing stamper",
			options: Options{Routes: table, Materializer: materializer, Coordinator: coordinator, Logger: logger},
		},
		{
			name:    "missing routes",
			options: Options{Stamper: formatter, Materializer: materializer, Coordinator: coordinator, Logger: logger},
		},
		{
			name:    "missing materializer",
			options: Options{Stamper: formatter, Routes: table, Coordinator: coordinator, Logger: logger},
		},
		{
			name:    "missing coordinator",
			options: Options{Stamper: formatter, Routes: table, Materializer: materializer, Logger: logger},
		},
		{
			name:    "missing logger",
			options: Options{Stamper: formatter, Routes: table, Materializer: materializer, Coordinator: coordinator},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("NewPipeline did not panic")
				}
			}()
			NewPipeline(test.options)
		})
	}
}
