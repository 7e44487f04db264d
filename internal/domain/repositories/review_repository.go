package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
)

// ReviewRepository defines persistence operations for review items
type ReviewRepository interface {
	CreateItems(ctx context.Context, items []*entities.ReviewItem) error
	FindItemByID(ctx context.Context, id uuid.UUID) (*entities.ReviewItem, error)

	// ListByMeeting returns all non-superseded items of a meeting in
	// creation order.
	ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]*entities.ReviewItem, error)

	// UpdateItemVersioned persists the item only if the stored version still
	// equals expectedVersion; otherwise it returns ErrStaleReview and leaves
	// the stored state unchanged. This is the single concurrency-control
	// point visible to reviewers.
	UpdateItemVersioned(ctx context.Context, item *entities.ReviewItem, expectedVersion int) error

	// SupersedeByMeeting marks all items of a meeting as superseded when a
	// reprocessing pass replaces the draft. Items are never deleted.
	SupersedeByMeeting(ctx context.Context, meetingID uuid.UUID) error
}
