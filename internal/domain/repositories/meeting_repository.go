package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
)

// MeetingRepository defines persistence operations for canonical meeting
// records. The persisted store is the single source of truth for all state
// machines; processes must be able to restart and resume from it.
type MeetingRepository interface {
	Create(ctx context.Context, m *entities.Meeting) error
	Update(ctx context.Context, m *entities.Meeting) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Meeting, error)

	// FindLatestBySourceRef returns the highest-revision meeting for a source
	// audio reference, or nil when none exists. Used for reprocessing dedup.
	FindLatestBySourceRef(ctx context.Context, sourceAudioRef string) (*entities.Meeting, error)

	// ListByState returns meetings in a given lifecycle state, oldest first.
	// Used on startup to resume suspended pipelines.
	ListByState(ctx context.Context, state entities.MeetingState, limit int) ([]*entities.Meeting, error)
}
