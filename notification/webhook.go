package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Webhook posts notifications to configured HTTP endpoints.
// It is synchronous; every endpoint is tried and failures are joined.
type Webhook struct {
	client    *http.Client
	endpoints []string
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) WebhookOption {
	return func(w *Webhook) {
		if c != nil {
			w.client = c
		}
	}
}

// NewWebhook creates a Notifier that POSTs to every endpoint.
func NewWebhook(endpoints []string, opts ...WebhookOption) *Webhook {
	w := &Webhook{client: &http.Client{Timeout: 2 * time.Second}}
	for _, opt := range opts {
		opt(w)
	}
	w.endpoints = append([]string{}, endpoints...)
	return w
}

type webhookEnvelope struct {
	Event        string        `json:"event"`
	Time         time.Time     `json:"time"`
	Notification *Notification `json:"notification,omitempty"`
	ID           int64         `json:"id,omitempty"`
}

func (w *Webhook) Push(ctx context.Context, n Notification) error {
	return w.post(ctx, webhookEnvelope{Event: "push", Time: time.Now().UTC(), Notification: &n})
}

func (w *Webhook) Dismiss(ctx context.Context, id int64) error {
	return w.post(ctx, webhookEnvelope{Event: "dismiss", Time: time.Now().UTC(), ID: id})
}

func (w *Webhook) post(ctx context.Context, env webhookEnvelope) error {
	if len(w.endpoints) == 0 {
		return nil
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	var errs []error
	for _, ep := range w.endpoints {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep, bytes.NewReader(body))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := w.client.Do(req)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode >= 300 {
			errs = append(errs, fmt.Errorf("webhook %s: unexpected status %d", ep, resp.StatusCode))
		}
	}
	return errors.Join(errs...)
}
