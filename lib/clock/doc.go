// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface parameter instead of calling
// time.Now or time.Sleep directly. In production, Real() provides the
// standard library behavior. In tests, Fake() provides a deterministic
// clock whose Sleep returns immediately while recording the requested
// duration and advancing the fake's notion of now.
//
// # Wiring Pattern
//
// Add a Clock field to structs that use time:
//
//	type Coordinator struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In production:
//
//	c := &Coordinator{clock: clock.Real()}
//
// In tests:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	c := &Coordinator{clock: fake}
//	// ... exercise code that sleeps ...
//	got := fake.Sleeps() // assert jitter/backoff durations
package clock
