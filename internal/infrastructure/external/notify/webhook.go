package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/config"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/signature"
)

// Locker deduplicates notifications across processes. Implemented on
// redis; a nil Locker disables the cross-process check.
type Locker interface {
	AcquireNotifyLock(ctx context.Context, meetingID string) (bool, error)
}

// Webhook posts a signed review-ready event to the configured endpoint
type Webhook struct {
	url    string
	secret string
	locker Locker
	client *http.Client
	logger *zap.Logger
}

// NewWebhook creates a webhook notifier
func NewWebhook(cfg config.NotifyConfig, locker Locker, logger *zap.Logger) *Webhook {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    cfg.WebhookURL,
		secret: cfg.WebhookSecret,
		locker: locker,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type reviewReadyEvent struct {
	Event        string `json:"event"`
	MeetingID    string `json:"meeting_id"`
	Title        string `json:"title"`
	Revision     int    `json:"revision"`
	PendingItems int    `json:"pending_items"`
	OccurredAt   string `json:"occurred_at"`
}

// ReviewReady notifies reviewers that a meeting awaits them. Exactly one
// notification goes out per meeting even when several processes race on it.
func (w *Webhook) ReviewReady(ctx context.Context, meeting *entities.Meeting, pendingItems int) error {
	if w.url == "" {
		return nil
	}

	if w.locker != nil {
		acquired, err := w.locker.AcquireNotifyLock(ctx, meeting.ID.String())
		if err != nil {
			return err
		}
		if !acquired {
			w.logger.Debug("notification already sent elsewhere",
				zap.String("meeting_id", meeting.ID.String()))
			return nil
		}
	}

	body, err := json.Marshal(reviewReadyEvent{
		Event:        "review_ready",
		MeetingID:    meeting.ID.String(),
		Title:        meeting.Title,
		Revision:     meeting.Revision,
		PendingItems: pendingItems,
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set("X-Signature", signature.Sign(w.secret, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
