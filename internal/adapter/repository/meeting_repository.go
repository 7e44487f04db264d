package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
	repo "github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/repositories"
)

type meetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates a meeting repository backed by GORM
func NewMeetingRepository(db *gorm.DB) repo.MeetingRepository {
	return &meetingRepository{db: db}
}

func (r *meetingRepository) Create(ctx context.Context, m *entities.Meeting) error {
	if m == nil {
		return errors.New("meeting cannot be nil")
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *meetingRepository) Update(ctx context.Context, m *entities.Meeting) error {
	if m == nil {
		return errors.New("meeting cannot be nil")
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *meetingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Meeting, error) {
	var m entities.Meeting
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *meetingRepository) FindLatestBySourceRef(ctx context.Context, sourceAudioRef string) (*entities.Meeting, error) {
	var m entities.Meeting
	if err := r.db.WithContext(ctx).
		Where("source_audio_ref = ?", sourceAudioRef).
		Order("revision DESC").
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *meetingRepository) ListByState(ctx context.Context, state entities.MeetingState, limit int) ([]*entities.Meeting, error) {
	if limit == 0 {
		limit = 100
	}
	var meetings []*entities.Meeting
	if err := r.db.WithContext(ctx).
		Where("state = ?", state).
		Order("created_at ASC").
		Limit(limit).
		Find(&meetings).Error; err != nil {
		return nil, err
	}
	return meetings, nil
}
