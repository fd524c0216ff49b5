// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package entry

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// markerDomainKey is the BLAKE3 key for message-ID markers. The bytes
// are the ASCII encoding of the domain name, zero-padded to 32 bytes,
// so the key is inspectable in hex dumps without losing any keyed-mode
// property. Changing it invalidates every marker already written into
// vault files.
var markerDomainKey = [32]byte{
	'v', 'a', 'u', 'l', 't', 'l', 'i', 'n', 'e', '.', 'e', 'n', 't', 'r', 'y', '.',
	'm', 'a', 'r', 'k', 'e', 'r', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// MarkerFor returns the hidden duplicate-detection marker bound to a
// message ID: an HTML comment carrying the first 6 bytes of the keyed
// BLAKE3 hash of the ID in hex. Markers survive manual edits to the
// visible entry text, so redelivered messages are still detected after
// a user rewords an entry.
func MarkerFor(messageID string) string {
	hasher, err := blake3.NewKeyed(markerDomainKey[:])
	if err != nil {
		panic("entry: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(messageID))
	sum := hasher.Sum(nil)
	return "<!-- vl:" + hex.EncodeToString(sum[:6]) + " -->"
}

// Mark appends the marker for messageID to a rendered line, keeping
// the trailing newline last.
func Mark(line Line, messageID string) Line {
	content := strings.TrimSuffix(string(line), "\n")
	return Line(content + " " + MarkerFor(messageID) + "\n")
}
