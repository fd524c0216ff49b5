// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
)

// VerifySignature verifies the X-Line-Signature header on a webhook
// payload. The signature is the base64-encoded HMAC-SHA256 digest of
// the raw request body, keyed with the channel secret.
//
// Returns nil if the signature is valid, or an error describing the
// verification failure. The error message is safe to log but does not
// include the expected signature (to avoid leaking the secret via
// error messages).
func VerifySignature(secret, body []byte, signature string) error {
	if len(secret) == 0 {
		return errors.New("webhook signature: secret is empty")
	}
	if len(body) == 0 {
		return errors.New("webhook signature: body is empty")
	}
	if signature == "" {
		return errors.New("webhook signature: signature is empty")
	}

	signatureBytes, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("webhook signature: invalid base64 signature: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	if subtle.ConstantTimeCompare(expected, signatureBytes) != 1 {
		return errors.New("webhook signature: signature mismatch")
	}
	return nil
}
