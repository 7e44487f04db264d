package targets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/export"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/config"
)

// Calendar creates deadline reminders for action items that carry a
// resolved due date. Items without one are acknowledged without any call.
type Calendar struct {
	baseURL string
	client  *http.Client
}

// NewCalendar creates a calendar target
func NewCalendar(cfg config.ExportConfig) *Calendar {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Calendar{
		baseURL: cfg.CalendarURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name implements export.Target
func (c *Calendar) Name() string {
	return "calendar"
}

// Accepts implements export.Target
func (c *Calendar) Accepts(kind entities.ReviewItemKind) bool {
	return kind == entities.ReviewItemKindActionItem
}

type eventRequest struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	AttendeeID  string `json:"attendee_id,omitempty"`
	Attendee    string `json:"attendee,omitempty"`
	ExternalRef string `json:"external_ref"`
}

type eventResponse struct {
	ID string `json:"id"`
}

// Write implements export.Target
func (c *Calendar) Write(ctx context.Context, item *export.Item) (string, error) {
	var actionItem entities.ActionItem
	if err := json.Unmarshal(item.Review.Payload, &actionItem); err != nil {
		return "", export.Permanent(fmt.Errorf("action item payload unreadable: %w", err))
	}

	if actionItem.Deadline == nil {
		return "", nil
	}

	body, err := json.Marshal(eventRequest{
		Title:       fmt.Sprintf("Due: %s", actionItem.Description),
		Date:        actionItem.Deadline.Format("2006-01-02"),
		AttendeeID:  actionItem.Assignee.ContactID,
		Attendee:    actionItem.Assignee.Raw,
		ExternalRef: item.Record.IdempotencyKey,
	})
	if err != nil {
		return "", export.Permanent(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return "", export.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", item.Record.IdempotencyKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var created eventResponse
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return "", fmt.Errorf("calendar response unreadable: %w", err)
		}
		return created.ID, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return "", export.Permanent(fmt.Errorf("calendar rejected the event, status %d", resp.StatusCode))
	default:
		return "", fmt.Errorf("calendar error, status %d", resp.StatusCode)
	}
}
