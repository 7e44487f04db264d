package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
	repo "github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/repositories"
)

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a review repository backed by GORM
func NewReviewRepository(db *gorm.DB) repo.ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) CreateItems(ctx context.Context, items []*entities.ReviewItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(items).Error
}

func (r *reviewRepository) FindItemByID(ctx context.Context, id uuid.UUID) (*entities.ReviewItem, error) {
	var item entities.ReviewItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *reviewRepository) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]*entities.ReviewItem, error) {
	var items []*entities.ReviewItem
	if err := r.db.WithContext(ctx).
		Where("meeting_id = ? AND superseded = false", meetingID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateItemVersioned is the optimistic-versioning write: the UPDATE is
// guarded by the version the caller read, so a concurrent writer that got
// there first makes this one fail with ErrStaleReview instead of silently
// overwriting.
func (r *reviewRepository) UpdateItemVersioned(ctx context.Context, item *entities.ReviewItem, expectedVersion int) error {
	if item == nil {
		return errors.New("item cannot be nil")
	}
	res := r.db.WithContext(ctx).
		Model(&entities.ReviewItem{}).
		Where("id = ? AND version = ?", item.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":        item.Status,
			"version":       item.Version,
			"payload":       item.Payload,
			"history":       item.History,
			"reviewed_by":   item.ReviewedBy,
			"reviewed_at":   item.ReviewedAt,
			"reject_reason": item.RejectReason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entities.ErrStaleReview
	}
	return nil
}

func (r *reviewRepository) SupersedeByMeeting(ctx context.Context, meetingID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entities.ReviewItem{}).
		Where("meeting_id = ? AND superseded = false", meetingID).
		Update("superseded", true).Error
}
