// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package replay

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vaultline/vaultline/lib/clock"
)

var testEpoch = time.Date(2025, 6, 25, 14, 30, 0, 0, time.UTC)

func TestDuplicateDetectsRedelivery(t *testing.T) {
	t.Parallel()
	guard := NewGuard(time.Hour, clock.Fake(testEpoch))

	if guard.Duplicate("delivery-1") {
		t.Error("first sighting reported as duplicate")
	}
	if !guard.Duplicate("delivery-1") {
		t.Error("redelivery not reported as duplicate")
	}
}

func TestDuplicateDistinctIDs(t *testing.T) {
	t.Parallel()
	guard := NewGuard(time.Hour, clock.Fake(testEpoch))

	if guard.Duplicate("delivery-1") {
		t.Error("delivery-1 reported as duplicate")
	}
	if guard.Duplicate("delivery-2") {
		t.Error("delivery-2 reported as duplicate")
	}
}

func TestDuplicateEmptyIDNeverRecorded(t *testing.T) {
	t.Parallel()
	guard := NewGuard(time.Hour, clock.Fake(testEpoch))

	if guard.Duplicate("") {
		t.Error("empty ID reported as duplicate")
	}
	if guard.Duplicate("") {
		t.Error("empty ID reported as duplicate on second call")
	}
	if len(guard.seen) != 0 {
		t.Errorf("empty ID was recorded: %d entries", len(guard.seen))
	}
}

func TestDuplicateForgetsAfterWindow(t *testing.T) {
	t.Parallel()
	fake := clock.Fake(testEpoch)
	guard := NewGuard(time.Hour, fake)

	guard.Duplicate("delivery-1")
	fake.Advance(2 * time.Hour)

	if guard.Duplicate("delivery-1") {
		t.Error("delivery older than the window still reported as duplicate")
	}
}

func TestDuplicatePrunesExpiredOnCheck(t *testing.T) {
	t.Parallel()
	fake := clock.Fake(testEpoch)
	guard := NewGuard(time.Hour, fake)

	guard.Duplicate("old")
	fake.Advance(2 * time.Hour)
	guard.Duplicate("fresh")

	if len(guard.seen) != 1 {
		t.Errorf("expected 1 tracked delivery after prune, got %d", len(guard.seen))
	}
	if _, ok := guard.seen["old"]; ok {
		t.Error("expired delivery survived the prune")
	}
}

func TestForgetAllowsRedelivery(t *testing.T) {
	t.Parallel()
	guard := NewGuard(time.Hour, clock.Fake(testEpoch))

	guard.Duplicate("delivery-1")
	guard.Forget("delivery-1")

	if guard.Duplicate("delivery-1") {
		t.Error("forgotten delivery still reported as duplicate")
	}
}

func TestDefaultsApplied(t *testing.T) {
	t.Parallel()
	guard := NewGuard(0, nil)

	if guard.window != DefaultWindow {
		t.Errorf("window = %v, want %v", guard.window, DefaultWindow)
	}
	if guard.clock == nil {
		t.Error("clock not defaulted")
	}
}

func TestSnapshotRoundtrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "replay.snapshot")
	fake := clock.Fake(testEpoch)

	source := NewGuard(time.Hour, fake)
	source.Duplicate("delivery-1")
	source.Duplicate("delivery-2")
	if err := source.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored := NewGuard(time.Hour, fake)
	count, err := restored.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if count != 2 {
		t.Errorf("restored %d deliveries, want 2", count)
	}
	if !restored.Duplicate("delivery-1") {
		t.Error("restored guard does not remember delivery-1")
	}
	if !restored.Duplicate("delivery-2") {
		t.Error("restored guard does not remember delivery-2")
	}
}

func TestLoadDropsExpiredEntries(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "replay.snapshot")

	writeClock := clock.Fake(testEpoch)
	source := NewGuard(time.Hour, writeClock)
	source.Duplicate("old")
	writeClock.Advance(59 * time.Minute)
	source.Duplicate("fresh")
	if err := source.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// An hour and a half after the epoch, "old" has aged out of the
	// window but "fresh" has not.
	readClock := clock.Fake(testEpoch.Add(90 * time.Minute))
	restored := NewGuard(time.Hour, readClock)
	count, err := restored.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if count != 1 {
		t.Errorf("restored %d deliveries, want 1", count)
	}
	if !restored.Duplicate("fresh") {
		t.Error("fresh delivery not restored")
	}
	if restored.Duplicate("old-redelivery-probe") {
		t.Error("unexpected duplicate for never-seen ID")
	}
	if _, ok := restored.seen["old"]; ok {
		t.Error("expired delivery restored from snapshot")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	guard := NewGuard(time.Hour, clock.Fake(testEpoch))

	count, err := guard.Load(filepath.Join(t.TempDir(), "absent.snapshot"))
	if err != nil {
		t.Fatalf("Load of missing file: %v", err)
	}
	if count != 0 {
		t.Errorf("restored %d deliveries from missing file", count)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "replay.snapshot")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	guard := NewGuard(time.Hour, clock.Fake(testEpoch))
	count, err := guard.Load(path)
	if err != nil {
		t.Fatalf("Load of empty file: %v", err)
	}
	if count != 0 {
		t.Errorf("restored %d deliveries from empty file", count)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "replay.snapshot")
	if err := os.WriteFile(path, []byte("not a snapshot"), 0o600); err != nil {
		t.Fatal(err)
	}

	guard := NewGuard(time.Hour, clock.Fake(testEpoch))
	if _, err := guard.Load(path); err == nil {
		t.Error("Load of corrupt file should fail")
	}
}

func TestSaveOverwritesPreviousSnapshot(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "replay.snapshot")
	fake := clock.Fake(testEpoch)

	big := NewGuard(time.Hour, fake)
	big.Duplicate("delivery-1")
	big.Duplicate("delivery-2")
	big.Duplicate("delivery-3")
	if err := big.Save(path); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	small := NewGuard(time.Hour, fake)
	small.Duplicate("delivery-9")
	if err := small.Save(path); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	restored := NewGuard(time.Hour, fake)
	count, err := restored.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if count != 1 {
		t.Errorf("restored %d deliveries, want 1 (stale snapshot not truncated)", count)
	}
	if !restored.Duplicate("delivery-9") {
		t.Error("latest snapshot content missing")
	}
}
