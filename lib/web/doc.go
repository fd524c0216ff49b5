// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Package web receives messaging-platform webhooks over HTTP.
//
// The platform delivers events as POST requests whose body is a JSON
// envelope: a destination (the bot user ID) and a batch of events.
// Authenticity is proven by the X-Line-Signature header, the base64
// HMAC-SHA256 of the raw body keyed with the channel secret.
//
// Response codes drive the platform's retry behavior: 200 acknowledges
// an event whether it produced a vault entry or was ignored, while 500
// asks the platform to redeliver. The handler therefore returns 500
// only for failures that a retry can fix (clone, merge, push), and 200
// for everything it chose to skip.
//
// Key exports:
//
//   - [HTTPServer] -- TCP listener lifecycle with graceful shutdown
//   - [WebhookHandler] -- signature check, replay suppression, event
//     filtering, and dispatch into the processing callback
//   - [VerifySignature] -- constant-time webhook signature check
//   - [NewMux] -- routing: the webhook handler plus GET /healthz
package web
