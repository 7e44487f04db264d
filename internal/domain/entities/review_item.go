package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ReviewItemKind identifies what a ReviewItem wraps
type ReviewItemKind string

const (
	ReviewItemKindDecision     ReviewItemKind = "decision"
	ReviewItemKindActionItem   ReviewItemKind = "action_item"
	ReviewItemKindOpenQuestion ReviewItemKind = "open_question"
	ReviewItemKindTopicSummary ReviewItemKind = "topic_summary"
)

// ReviewStatus is the per-item approval state. Edited is transient: an edit
// appends the prior version to the history and returns the item to pending,
// because every edit requires re-approval.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusEdited   ReviewStatus = "edited"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// ItemRevision is one superseded version of a review item's content.
// Revisions are append-only; content is never mutated in place.
type ItemRevision struct {
	Version  int             `json:"version"`
	Payload  json.RawMessage `json:"payload"`
	EditedBy string          `json:"edited_by,omitempty"`
	EditedAt time.Time       `json:"edited_at"`
}

// ReviewItem is the uniform wrapper over any extractable meeting artifact.
// It carries its own approval lifecycle and an optimistic version counter:
// approve/edit/reject must present the version they were read at, and a
// mismatch fails with ErrStaleReview.
type ReviewItem struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	MeetingID    uuid.UUID      `json:"meeting_id" gorm:"type:uuid;not null;index"`
	Kind         ReviewItemKind `json:"kind" gorm:"type:varchar(30);not null"`
	Status       ReviewStatus   `json:"status" gorm:"type:varchar(20);not null;index;default:'pending'"`
	Version      int            `json:"version" gorm:"not null;default:1"`
	Payload      datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"` // current content, kind-shaped
	History      []ItemRevision `json:"history,omitempty" gorm:"type:jsonb;serializer:json"`
	ReviewedBy   string         `json:"reviewed_by,omitempty" gorm:"type:varchar(255)"`
	ReviewedAt   *time.Time     `json:"reviewed_at,omitempty"`
	RejectReason string         `json:"reject_reason,omitempty" gorm:"type:text"`
	Superseded   bool           `json:"superseded" gorm:"default:false;index"` // prior draft replaced by reprocessing
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for ReviewItem
func (ReviewItem) TableName() string {
	return "review_items"
}

// NewReviewItem wraps extracted content into a pending review item
func NewReviewItem(meetingID uuid.UUID, kind ReviewItemKind, payload interface{}) (*ReviewItem, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &ReviewItem{
		ID:        uuid.New(),
		MeetingID: meetingID,
		Kind:      kind,
		Status:    ReviewStatusPending,
		Version:   1,
		Payload:   datatypes.JSON(raw),
	}, nil
}

// Terminal reports whether the item has reached a final per-item state
func (i *ReviewItem) Terminal() bool {
	return i.Status == ReviewStatusApproved || i.Status == ReviewStatusRejected
}

// WasEdited reports whether any human edit happened
func (i *ReviewItem) WasEdited() bool {
	return len(i.History) > 0
}
