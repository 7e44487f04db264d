package entities

import "time"

// ActionItemPriority constants
type ActionItemPriority string

const (
	ActionItemPriorityLow    ActionItemPriority = "low"
	ActionItemPriorityMedium ActionItemPriority = "medium"
	ActionItemPriorityHigh   ActionItemPriority = "high"
)

// ActionItemStatus constants
type ActionItemStatus string

const (
	ActionItemStatusOpen       ActionItemStatus = "open"
	ActionItemStatusInProgress ActionItemStatus = "in_progress"
	ActionItemStatusDone       ActionItemStatus = "done"
	ActionItemStatusCancelled  ActionItemStatus = "cancelled"
)

// statusRank orders the forward-only status progression
var statusRank = map[ActionItemStatus]int{
	ActionItemStatusOpen:       0,
	ActionItemStatusInProgress: 1,
	ActionItemStatusDone:       2,
}

// CanTransitionTo enforces monotonic forward transitions; cancellation is
// the only allowed sideways move and is itself terminal.
func (s ActionItemStatus) CanTransitionTo(next ActionItemStatus) bool {
	if s == ActionItemStatusCancelled || s == ActionItemStatusDone {
		return false
	}
	if next == ActionItemStatusCancelled {
		return true
	}
	cur, ok := statusRank[s]
	if !ok {
		return false
	}
	n, ok := statusRank[next]
	if !ok {
		return false
	}
	return n > cur
}

// ActionItem is a task extracted from the meeting
type ActionItem struct {
	Description      string             `json:"description"`
	Assignee         PartyRef           `json:"assignee"`
	Deadline         *time.Time         `json:"deadline,omitempty"`
	DeadlineRaw      string             `json:"deadline_raw,omitempty"` // kept when the phrase could not be resolved
	DeadlineUnparsed bool               `json:"deadline_unparsed,omitempty"`
	Priority         ActionItemPriority `json:"priority"`
	Status           ActionItemStatus   `json:"status"`
	Context          string             `json:"context,omitempty"` // quote from the transcript
}

// NewActionItem creates an open, medium-priority action item
func NewActionItem(description string, assignee PartyRef) *ActionItem {
	return &ActionItem{
		Description: description,
		Assignee:    assignee,
		Priority:    ActionItemPriorityMedium,
		Status:      ActionItemStatusOpen,
	}
}

// SetStatus applies a status change or returns ErrInvalidTransition
func (a *ActionItem) SetStatus(next ActionItemStatus) error {
	if !a.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	a.Status = next
	return nil
}
