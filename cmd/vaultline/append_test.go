// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vaultline/vaultline/lib/testutil"
)

// testEpochMS is 2025-06-25 14:30 JST.
const testEpochMS = int64(1750829400000)

// writeAppendConfig writes a minimal vaultline.yaml pointing at the
// bare remote, with sync timings shrunk so tests run fast.
func writeAppendConfig(t *testing.T, bareDir string) string {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "vaultline.yaml")
	content := fmt.Sprintf(`
vault:
  remote_url: file://%s
checkout:
  work_root: %s
sync:
  jitter_min: 1ms
  jitter_max: 2ms
  backoff: 1ms
`, bareDir, filepath.Join(dir, "checkouts"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return configPath
}

func TestRunAppend(t *testing.T) {
	t.Parallel()
	bareDir := testutil.InitVaultRemote(t)
	configPath := writeAppendConfig(t, bareDir)

	var out bytes.Buffer
	err := runAppend(context.Background(), appendParams{
		configPath: configPath,
		text:       "Hello World",
		at:         testEpochMS,
	}, &out, testLogger())
	if err != nil {
		t.Fatalf("runAppend: %v", err)
	}

	content, ok := testutil.RemoteFile(t, bareDir, "01_diary/2025/2025-06-25.md")
	if !ok {
		t.Fatal("diary file missing from remote")
	}
	if content != "## Timeline\n- 14:30 Hello World\n" {
		t.Errorf("remote content = %q", content)
	}

	output := out.String()
	if !strings.Contains(output, "appended to "+filepath.Join("01_diary", "2025", "2025-06-25.md")) {
		t.Errorf("output = %q, want the appended path", output)
	}
	if !strings.Contains(output, "LINE 2025-06-25 14:30") {
		t.Errorf("output = %q, want the commit message", output)
	}
}

func TestRunAppendDuplicate(t *testing.T) {
	t.Parallel()
	bareDir := testutil.InitVaultRemote(t)
	configPath := writeAppendConfig(t, bareDir)

	params := appendParams{configPath: configPath, text: "Hello World", at: testEpochMS}

	var first bytes.Buffer
	if err := runAppend(context.Background(), params, &first, testLogger()); err != nil {
		t.Fatalf("first runAppend: %v", err)
	}

	var second bytes.Buffer
	if err := runAppend(context.Background(), params, &second, testLogger()); err != nil {
		t.Fatalf("second runAppend: %v", err)
	}
	if !strings.Contains(second.String(), "duplicate") {
		t.Errorf("second output = %q, want a duplicate notice", second.String())
	}

	// Initial commit plus exactly one append.
	if subjects := testutil.RemoteSubjects(t, bareDir); len(subjects) != 2 {
		t.Errorf("remote subjects = %v, want initial commit plus one append", subjects)
	}
}

func TestRunAppendRequiresText(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := runAppend(context.Background(), appendParams{text: "   "}, &out, testLogger())
	if err == nil || !strings.Contains(err.Error(), "--text") {
		t.Fatalf("error = %v, want a --text requirement", err)
	}
}
