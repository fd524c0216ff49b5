// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package replay

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sys/unix"

	"github.com/vaultline/vaultline/lib/codec"
)

// snapshot is the on-disk form of the guard's delivery map. Timestamps
// round to whole seconds on disk, which is far below the window's
// resolution.
type snapshot struct {
	SavedAt    time.Time            `cbor:"saved_at"`
	Deliveries map[string]time.Time `cbor:"deliveries"`
}

// zstdEncoder and zstdDecoder are reused across calls to avoid
// repeated initialization overhead. zstd.Encoder and zstd.Decoder
// are safe for concurrent EncodeAll/DecodeAll use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("replay: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("replay: zstd decoder initialization failed: " + err.Error())
	}
}

// Save writes the guard's current delivery map to path as
// zstd-compressed CBOR, holding an exclusive flock for the duration of
// the write. The file is created with mode 0600 if absent. A crash
// mid-write leaves a corrupt snapshot, which Load treats as a cold
// start.
func (g *Guard) Save(path string) error {
	g.mu.Lock()
	deliveries := make(map[string]time.Time, len(g.seen))
	for id, seen := range g.seen {
		deliveries[id] = seen
	}
	savedAt := g.clock.Now()
	g.mu.Unlock()

	encoded, err := codec.Marshal(snapshot{SavedAt: savedAt, Deliveries: deliveries})
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	compressed := zstdEncoder.EncodeAll(encoded, nil)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	defer file.Close()

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("locking snapshot %s: %w", path, err)
	}
	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("truncating snapshot %s: %w", path, err)
	}
	if _, err := file.Write(compressed); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("syncing snapshot %s: %w", path, err)
	}
	return nil
}

// Load merges a snapshot written by Save into the guard, dropping
// entries that have aged out of the window. It returns the number of
// delivery IDs restored. A missing or empty file is not an error; it
// is what a fresh deployment or a crash during the first save leaves
// behind, and the guard simply starts cold.
func (g *Guard) Load(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	defer file.Close()

	if err := unix.Flock(int(file.Fd()), unix.LOCK_SH); err != nil {
		return 0, fmt.Errorf("locking snapshot %s: %w", path, err)
	}
	compressed, err := io.ReadAll(file)
	if err != nil {
		return 0, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	if len(compressed) == 0 {
		return 0, nil
	}

	encoded, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return 0, fmt.Errorf("decompressing snapshot %s: %w", path, err)
	}
	var snap snapshot
	if err := codec.Unmarshal(encoded, &snap); err != nil {
		return 0, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.clock.Now()
	restored := 0
	for id, seen := range snap.Deliveries {
		if now.Sub(seen) > g.window {
			continue
		}
		g.seen[id] = seen
		restored++
	}
	return restored, nil
}
