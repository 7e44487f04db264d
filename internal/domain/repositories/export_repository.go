package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
)

// ExportRepository defines persistence operations for the delivery ledger
type ExportRepository interface {
	Create(ctx context.Context, rec *entities.ExportRecord) error
	Update(ctx context.Context, rec *entities.ExportRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.ExportRecord, error)

	// FindByKey looks up a record by idempotency key, nil when absent
	FindByKey(ctx context.Context, key string) (*entities.ExportRecord, error)

	ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]*entities.ExportRecord, error)

	// ListDue returns pending records whose NextAttemptAt is at or before
	// now, oldest first. Drives the restart-safe retry loop.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*entities.ExportRecord, error)

	// ListFailed returns failed-permanent records for the operator queue
	ListFailed(ctx context.Context, limit int) ([]*entities.ExportRecord, error)
}
