// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package stamp

import (
	"testing"
	"time"
)

func TestAt(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("loading Asia/Tokyo: %v", err)
	}

	tests := []struct {
		name    string
		zone    string
		epochMS int64
		want    Stamp
	}{
		{
			name:    "afternoon in tokyo",
			zone:    "Asia/Tokyo",
			epochMS: time.Date(2025, 6, 25, 14, 30, 0, 0, tokyo).UnixMilli(),
			want:    Stamp{Year: "2025", Date: "2025-06-25", Time: "14:30"},
		},
		{
			name: "utc date differs across midnight",
			zone: "UTC",
			// 00:10 on the 25th in Tokyo is still the 24th in UTC.
			epochMS: time.Date(2025, 6, 25, 0, 10, 0, 0, tokyo).UnixMilli(),
			want:    Stamp{Year: "2025", Date: "2025-06-24", Time: "15:10"},
		},
		{
			name:    "single digit hour keeps leading zero",
			zone:    "Asia/Tokyo",
			epochMS: time.Date(2025, 1, 2, 3, 4, 0, 0, tokyo).UnixMilli(),
			want:    Stamp{Year: "2025", Date: "2025-01-02", Time: "03:04"},
		},
		{
			name:    "year boundary",
			zone:    "Asia/Tokyo",
			epochMS: time.Date(2026, 1, 1, 0, 0, 0, 0, tokyo).UnixMilli(),
			want:    Stamp{Year: "2026", Date: "2026-01-01", Time: "00:00"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			formatter, err := NewFormatter(test.zone)
			if err != nil {
				t.Fatalf("NewFormatter(%q): %v", test.zone, err)
			}
			got := formatter.At(test.epochMS)
			if got != test.want {
				t.Fatalf("At(%d) = %+v, want %+v", test.epochMS, got, test.want)
			}
		})
	}
}

func TestNewFormatterUnknownZone(t *testing.T) {
	if _, err := NewFormatter("Nowhere/At-All"); err == nil {
		t.Fatal("NewFormatter with unknown zone did not error")
	}
}

func TestNewFormatterEmptyZonePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewFormatter(\"\") did not panic")
		}
	}()
	NewFormatter("")
}
