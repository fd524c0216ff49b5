// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Package entry renders markdown list-item lines from inbound message
// text. A message normally becomes one line stamped with the
// invocation's clock time; a message written as a batch of
// "<HH:MM> content - <HH:MM> content" segments becomes one line per
// segment, each keeping its own embedded time. That lets a user log
// several retroactive timeline entries with a single message.
package entry

import (
	"regexp"
	"strings"
)

// Line is one rendered markdown list item, trailing newline included.
type Line string

// timeLead matches a segment that opens with a clock time: "13:46 test".
var timeLead = regexp.MustCompile(`^(\d{1,2}:\d{2})\s+(.+)$`)

// segment is one timed portion of a batch message.
type segment struct {
	clockTime string
	content   string
}

// Render produces the entry lines for a message. clockTime is the
// invocation's wall clock ("14:30"); it is used only when the text does
// not split into two or more timed segments.
func Render(text, clockTime string) []Line {
	trimmed := strings.TrimSpace(text)
	if segments := splitSegments(trimmed); len(segments) >= 2 {
		lines := make([]Line, 0, len(segments))
		for _, s := range segments {
			lines = append(lines, formatLine(s.clockTime, s.content))
		}
		return lines
	}
	return []Line{formatLine(clockTime, trimmed)}
}

// splitSegments scans for the repeating "<HH:MM> content" pattern with
// segments separated by " - ". It returns nil unless the text opens
// with a timed segment and contains at least two of them; callers then
// fall back to a single verbatim entry. A " - " separator followed by
// text that does not open with a clock time is literal content and is
// rejoined to the preceding segment.
func splitSegments(text string) []segment {
	parts := strings.Split(text, " - ")
	if len(parts) < 2 {
		return nil
	}

	var segments []segment
	for i, part := range parts {
		match := timeLead.FindStringSubmatch(part)
		if match == nil {
			if i == 0 {
				return nil
			}
			last := &segments[len(segments)-1]
			last.content = last.content + " - " + part
			continue
		}
		segments = append(segments, segment{
			clockTime: match[1],
			content:   strings.TrimSpace(match[2]),
		})
	}

	if len(segments) < 2 {
		return nil
	}
	return segments
}

func formatLine(clockTime, content string) Line {
	return Line("- " + clockTime + " " + content + "\n")
}
