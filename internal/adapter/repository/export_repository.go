package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
	repo "github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/repositories"
)

type exportRepository struct {
	db *gorm.DB
}

// NewExportRepository creates an export ledger repository backed by GORM
func NewExportRepository(db *gorm.DB) repo.ExportRepository {
	return &exportRepository{db: db}
}

func (r *exportRepository) Create(ctx context.Context, rec *entities.ExportRecord) error {
	if rec == nil {
		return errors.New("record cannot be nil")
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *exportRepository) Update(ctx context.Context, rec *entities.ExportRecord) error {
	if rec == nil {
		return errors.New("record cannot be nil")
	}
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *exportRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.ExportRecord, error) {
	var rec entities.ExportRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *exportRepository) FindByKey(ctx context.Context, key string) (*entities.ExportRecord, error) {
	var rec entities.ExportRecord
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *exportRepository) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]*entities.ExportRecord, error) {
	var recs []*entities.ExportRecord
	if err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("created_at ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *exportRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*entities.ExportRecord, error) {
	if limit == 0 {
		limit = 100
	}
	var recs []*entities.ExportRecord
	if err := r.db.WithContext(ctx).
		Where("state = ? AND next_attempt_at <= ?", entities.DeliveryStatePending, now).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *exportRepository) ListFailed(ctx context.Context, limit int) ([]*entities.ExportRecord, error) {
	if limit == 0 {
		limit = 100
	}
	var recs []*entities.ExportRecord
	if err := r.db.WithContext(ctx).
		Where("state = ?", entities.DeliveryStateFailedPermanent).
		Order("updated_at ASC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
