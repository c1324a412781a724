package effects

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/openhire/hire/internal/engine"
	"github.com/openhire/hire/internal/engine/model"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the request body.
const SignatureHeader = "X-Hire-Signature"

// EventHeader carries the event name of the delivery.
const EventHeader = "X-Hire-Event"

const defaultWebhookRetries = 3

// WebhookPayload is the JSON body POSTed to webhook receivers.
type WebhookPayload struct {
	Event      string         `json:"event"`
	InstanceID string         `json:"instanceId"`
	WorkflowID string         `json:"workflowId"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	State      string         `json:"state"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// WebhookHandler delivers signed webhook calls for "webhook" actions.
// Action config: "url" (required), "event" (defaults to
// "workflow.transition"). Delivery retries transient failures with
// exponential backoff; receivers should be idempotent since delivery is
// at-least-once.
type WebhookHandler struct {
	client     *http.Client
	secret     string
	maxRetries int
	backoff    time.Duration
}

// NewWebhookHandler creates a handler signing deliveries with the given
// shared secret.
func NewWebhookHandler(client *http.Client, secret string) *WebhookHandler {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookHandler{
		client:     client,
		secret:     secret,
		maxRetries: defaultWebhookRetries,
		backoff:    500 * time.Millisecond,
	}
}

// Execute implements engine.ActionHandler.
func (h *WebhookHandler) Execute(ctx context.Context, action model.WorkflowAction, instance engine.InstanceView) error {
	url := configString(action.Config, "url")
	if url == "" {
		return fmt.Errorf("webhook action %s has no url", action.ID)
	}

	event := configString(action.Config, "event")
	if event == "" {
		event = "workflow.transition"
	}

	payload := WebhookPayload{
		Event:      event,
		InstanceID: instance.InstanceID(),
		WorkflowID: instance.WorkflowID(),
		EntityType: instance.EntityType(),
		EntityID:   instance.EntityID(),
		State:      instance.CurrentState(),
		Metadata:   instance.MetadataCopy(),
		Timestamp:  time.Now().UTC(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	var lastErr error
	delay := h.backoff
	for attempt := 1; attempt <= h.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("webhook delivery cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		lastErr = h.deliver(ctx, url, event, body)
		if lastErr == nil {
			slog.Info("webhook delivered",
				"url", url,
				"event", event,
				"instance_id", instance.InstanceID(),
				"attempt", attempt,
			)
			return nil
		}
		if permanent, ok := lastErr.(*permanentDeliveryError); ok {
			return fmt.Errorf("webhook delivery to %s rejected: %w", url, permanent)
		}

		slog.Warn("webhook delivery attempt failed",
			"url", url,
			"attempt", attempt,
			"error", lastErr,
		)
	}

	return fmt.Errorf("webhook delivery to %s failed after %d attempts: %w", url, h.maxRetries, lastErr)
}

// permanentDeliveryError marks a 4xx response; retrying will not help.
type permanentDeliveryError struct {
	status int
}

func (e *permanentDeliveryError) Error() string {
	return fmt.Sprintf("receiver returned status %d", e.status)
}

func (h *WebhookHandler) deliver(ctx context.Context, url, event string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, event)
	if h.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(h.secret, body))
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &permanentDeliveryError{status: resp.StatusCode}
	default:
		return fmt.Errorf("receiver returned status %d", resp.StatusCode)
	}
}

// Sign computes the hex-encoded HMAC-SHA256 of body under the shared secret.
// Receivers recompute this over the raw request body to verify authenticity.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
