// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Package replay tracks recently seen webhook delivery IDs so that
// platform redeliveries of an already-applied event do not produce
// duplicate vault entries or duplicate commits.
//
// The messaging platform retries webhook deliveries that time out or
// return 5xx, and it may deliver the same event more than once even on
// success. The vault merge layer already suppresses duplicate content;
// the replay guard sits in front of it and skips the whole
// clone/merge/push cycle for deliveries it has seen within the
// deduplication window.
//
// The guard is an in-memory map. A snapshot of it can be persisted as
// a zstd-compressed CBOR file so that the window survives a process
// restart; see Save and Load.
package replay

import (
	"sync"
	"time"

	"github.com/vaultline/vaultline/lib/clock"
)

// DefaultWindow is how long a delivery ID is remembered. Platform
// redeliveries happen within minutes; an hour covers extended outages
// on the receiving side without growing the map unboundedly.
const DefaultWindow = time.Hour

// Guard remembers webhook delivery IDs seen within a sliding window.
// All methods are safe for concurrent use.
type Guard struct {
	mu     sync.Mutex
	window time.Duration
	clock  clock.Clock
	seen   map[string]time.Time
}

// NewGuard returns a guard with the given deduplication window. A
// non-positive window selects DefaultWindow. A nil clock selects the
// real clock.
func NewGuard(window time.Duration, clk clock.Clock) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Guard{
		window: window,
		clock:  clk,
		seen:   make(map[string]time.Time),
	}
}

// Duplicate reports whether deliveryID was already seen within the
// window, recording it as seen if not. Entries older than the window
// are pruned on each call, so the map size is bounded by the delivery
// rate times the window. An empty ID identifies nothing and is never
// recorded.
func (g *Guard) Duplicate(deliveryID string) bool {
	if deliveryID == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	for id, seen := range g.seen {
		if now.Sub(seen) > g.window {
			delete(g.seen, id)
		}
	}

	if _, ok := g.seen[deliveryID]; ok {
		return true
	}
	g.seen[deliveryID] = now
	return false
}

// Forget drops a delivery ID from the guard. Called when processing
// an event fails after Duplicate recorded it, so that the platform's
// redelivery of that event is processed instead of skipped.
func (g *Guard) Forget(deliveryID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, deliveryID)
}
