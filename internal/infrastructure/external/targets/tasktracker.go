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

// TaskTracker delivers approved action items to the external task tracker
type TaskTracker struct {
	baseURL string
	client  *http.Client
}

// NewTaskTracker creates a task tracker target
func NewTaskTracker(cfg config.ExportConfig) *TaskTracker {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TaskTracker{
		baseURL: cfg.TaskTrackerURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name implements export.Target
func (t *TaskTracker) Name() string {
	return "tasktracker"
}

// Accepts implements export.Target
func (t *TaskTracker) Accepts(kind entities.ReviewItemKind) bool {
	return kind == entities.ReviewItemKindActionItem
}

// taskRequest is the tracker's create-task shape
type taskRequest struct {
	Title       string   `json:"title"`
	AssigneeID  string   `json:"assignee_id,omitempty"`
	Assignee    string   `json:"assignee,omitempty"`
	DueDate     string   `json:"due_date,omitempty"`
	Priority    string   `json:"priority"`
	Description string   `json:"description,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	ExternalRef string   `json:"external_ref"`
}

type taskResponse struct {
	ID string `json:"id"`
}

// Write implements export.Target
func (t *TaskTracker) Write(ctx context.Context, item *export.Item) (string, error) {
	var actionItem entities.ActionItem
	if err := json.Unmarshal(item.Review.Payload, &actionItem); err != nil {
		return "", export.Permanent(fmt.Errorf("action item payload unreadable: %w", err))
	}

	req := taskRequest{
		Title:       actionItem.Description,
		AssigneeID:  actionItem.Assignee.ContactID,
		Assignee:    actionItem.Assignee.Raw,
		Priority:    string(actionItem.Priority),
		Description: actionItem.Context,
		Labels:      []string{"meeting", item.Meeting.Title},
		ExternalRef: item.Record.IdempotencyKey,
	}
	if actionItem.Deadline != nil {
		req.DueDate = actionItem.Deadline.Format("2006-01-02")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", export.Permanent(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", t.baseURL+"/tasks", bytes.NewReader(body))
	if err != nil {
		return "", export.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", item.Record.IdempotencyKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("task tracker request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var created taskResponse
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return "", fmt.Errorf("task tracker response unreadable: %w", err)
		}
		return created.ID, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("task tracker rate limit, status %d", resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", export.Permanent(fmt.Errorf("task tracker rejected the task, status %d", resp.StatusCode))
	default:
		return "", fmt.Errorf("task tracker error, status %d", resp.StatusCode)
	}
}
