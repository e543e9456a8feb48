package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// NotificationTokenHeader carries PushNotificationConfig.Token on webhook calls.
const NotificationTokenHeader = "X-A2A-Notification-Token"

// Notifier posts final JSON-RPC responses to push-notification webhooks.
type Notifier struct {
	http *http.Client
}

// NewNotifier uses a client with the default timeout when hc is nil.
func NewNotifier(hc *http.Client) *Notifier {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Notifier{http: hc}
}

// Notify fails on any non-2xx answer from the webhook.
func (n *Notifier) Notify(ctx context.Context, cfg PushNotificationConfig, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	var extra http.Header
	if cfg.Token != "" {
		extra = http.Header{NotificationTokenHeader: {cfg.Token}}
	}

	status, _, err := exchange(ctx, n.http, http.MethodPost, cfg.URL, body, extra)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	if status/100 != 2 {
		return fmt.Errorf("webhook %s responded with status %d", cfg.URL, status)
	}
	return nil
}
