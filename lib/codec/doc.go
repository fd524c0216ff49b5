// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Vaultline's standard CBOR encoding configuration.
//
// Vaultline uses text formats at its edges and CBOR for internal state:
//
//   - JSON for external interfaces: the messaging-platform webhook
//     envelope and CLI --json output.
//   - JSONC for the operator-edited route table, YAML for the service
//     configuration file.
//   - CBOR for on-disk state files, currently the webhook replay
//     snapshot that survives process restarts.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes, which keeps state files comparable across writes.
//
// Usage:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types that are only ever serialized as CBOR carry `cbor` struct tags.
// Types that also serve JSON carry `json` tags alone; fxamacker/cbor v2
// falls back to `json` tags, so a single tag controls field naming for
// both formats. Never use both tags on the same field.
package codec
