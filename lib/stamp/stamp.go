// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Package stamp derives calendar strings from event timestamps in a
// fixed IANA time zone. Vault file paths and entry lines are keyed by
// the zone the vault's owner lives in, never by the host zone, so the
// zone is resolved once at construction and applied to every event.
package stamp

import (
	"fmt"
	"time"
)

// Stamp holds the calendar strings for one event timestamp, all
// rendered in the formatter's zone.
type Stamp struct {
	// Year is the four-digit year, e.g. "2025".
	Year string

	// Date is the ISO date, e.g. "2025-06-25".
	Date string

	// Time is the 24-hour wall clock, e.g. "14:30".
	Time string
}

// Formatter converts epoch timestamps into Stamps in one fixed zone.
type Formatter struct {
	location *time.Location
}

// NewFormatter resolves the given IANA zone name (e.g. "Asia/Tokyo").
// It panics on an empty name: callers obtain the zone from validated
// configuration, which supplies a default.
func NewFormatter(zone string) (*Formatter, error) {
	if zone == "" {
		panic("stamp: zone is required")
	}
	location, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", zone, err)
	}
	return &Formatter{location: location}, nil
}

// At converts epoch milliseconds into a Stamp.
func (f *Formatter) At(epochMS int64) Stamp {
	moment := time.UnixMilli(epochMS).In(f.location)
	return Stamp{
		Year: moment.Format("2006"),
		Date: moment.Format("2006-01-02"),
		Time: moment.Format("15:04"),
	}
}
