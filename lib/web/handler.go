// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vaultline/vaultline/lib/replay"
	"github.com/vaultline/vaultline/lib/version"
)

// maxWebhookBodySize is the maximum size of a webhook payload we will
// accept. Message events are a few hundred bytes each and batches are
// short; 1 MB gives comfortable headroom.
const maxWebhookBodySize = 1 * 1024 * 1024

// Envelope is the webhook request body: the destination bot user ID
// and a batch of events delivered together.
type Envelope struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event is a single webhook event. Only message events carrying text
// produce vault entries; every other shape is acknowledged and
// ignored.
type Event struct {
	Type            string          `json:"type"`
	Timestamp       int64           `json:"timestamp"`
	WebhookEventID  string          `json:"webhookEventId"`
	DeliveryContext DeliveryContext `json:"deliveryContext"`
	Source          Source          `json:"source"`
	Message         Message         `json:"message"`
}

// DeliveryContext marks platform-initiated redeliveries.
type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

// Source identifies the chat the event came from.
type Source struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	GroupID string `json:"groupId"`
}

// Message is the message body of a message event.
type Message struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// ProcessFunc turns one verified text-message event into a vault
// entry. A non-nil error means the event was not applied and the
// platform should redeliver it.
type ProcessFunc func(ctx context.Context, destination string, event Event) error

// WebhookHandler processes incoming webhooks. It verifies signatures,
// suppresses redeliveries via the replay guard, filters out non-text
// events, and dispatches the rest to the process callback.
//
// The handler is an http.Handler suitable for use with HTTPServer or
// any standard Go HTTP server/mux.
type WebhookHandler struct {
	secret  []byte
	guard   *replay.Guard
	logger  *slog.Logger
	process ProcessFunc
}

// NewWebhookHandler creates a handler that verifies webhooks using
// the given channel secret. Panics if secret is empty, guard or
// logger is nil, or process is nil — a nil callback would silently
// discard events.
func NewWebhookHandler(secret []byte, guard *replay.Guard, logger *slog.Logger, process ProcessFunc) *WebhookHandler {
	if len(secret) == 0 {
		panic("WebhookHandler: secret is required")
	}
	if guard == nil {
		panic("WebhookHandler: replay guard is required")
	}
	if logger == nil {
		panic("WebhookHandler: logger is required")
	}
	if process == nil {
		panic("WebhookHandler: process callback is required")
	}
	return &WebhookHandler{
		secret:  secret,
		guard:   guard,
		logger:  logger,
		process: process,
	}
}

// ServeHTTP handles a single webhook request.
func (h *WebhookHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(writer, "", http.StatusMethodNotAllowed)
		return
	}

	// Read the body first — signature verification requires the raw bytes.
	body, err := io.ReadAll(io.LimitReader(request.Body, maxWebhookBodySize))
	if err != nil {
		h.logger.Error("webhook: failed to read body", "error", err)
		http.Error(writer, "", http.StatusInternalServerError)
		return
	}
	if len(body) == 0 {
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	signature := request.Header.Get("X-Line-Signature")
	if err := VerifySignature(h.secret, body, signature); err != nil {
		h.logger.Warn("webhook: signature verification failed",
			"error", err,
			"remote_addr", request.RemoteAddr,
		)
		// 403 with no information disclosure.
		http.Error(writer, "", http.StatusForbidden)
		return
	}

	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		h.logger.Warn("webhook: malformed envelope", "error", err)
		// Retrying won't fix a parse error.
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	h.logger.Info("webhook received",
		"destination", envelope.Destination,
		"events", len(envelope.Events),
	)

	for _, event := range envelope.Events {
		if event.Type != "message" || event.Message.Type != "text" {
			h.logger.Debug("webhook: unhandled event type, ignoring",
				"event_type", event.Type,
				"message_type", event.Message.Type,
				"delivery_id", event.WebhookEventID,
			)
			continue
		}

		if strings.TrimSpace(event.Message.Text) == "" {
			h.logger.Debug("webhook: empty message text, ignoring",
				"delivery_id", event.WebhookEventID,
			)
			continue
		}

		// Replay protection: skip deliveries we already applied.
		if h.guard.Duplicate(event.WebhookEventID) {
			h.logger.Debug("webhook: duplicate delivery, ignoring",
				"delivery_id", event.WebhookEventID,
				"redelivery", event.DeliveryContext.IsRedelivery,
			)
			continue
		}

		if err := h.process(request.Context(), envelope.Destination, event); err != nil {
			h.logger.Error("webhook: event processing failed",
				"delivery_id", event.WebhookEventID,
				"redelivery", event.DeliveryContext.IsRedelivery,
				"error", err,
			)
			// The guard recorded this ID before processing; drop it
			// so the platform's redelivery is honored. Earlier events
			// in the batch stay recorded and will be skipped when the
			// whole batch comes back.
			h.guard.Forget(event.WebhookEventID)
			http.Error(writer, "", http.StatusInternalServerError)
			return
		}
	}

	writer.WriteHeader(http.StatusOK)
}

// NewMux routes the webhook handler and the health endpoint. The
// webhook handler answers every path except /healthz, since the
// webhook URL path is whatever the operator registered with the
// platform.
func NewMux(webhook http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	// Equivalent of the Go 1.22+ "GET /healthz" method pattern,
	// spelled out for toolchains whose ServeMux predates it: only
	// GET (and HEAD) reach the handler, other methods get 405 with
	// an Allow header, matching the method-pattern behavior.
	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodGet && request.Method != http.MethodHead {
			writer.Header().Set("Allow", "GET, HEAD")
			http.Error(writer, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(writer, "{\"status\":\"ok\",\"version\":%q}\n", version.Info())
	})
	mux.Handle("/", webhook)
	return mux
}
