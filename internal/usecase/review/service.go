package review

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/repositories"
)

// Exporter enqueues approved items for delivery once a meeting's review is
// complete. Implemented by the export dispatcher; the indirection keeps
// this package free of delivery concerns.
type Exporter interface {
	Enqueue(ctx context.Context, meeting *entities.Meeting, items []*entities.ReviewItem) error
}

// Service implements the review workflow. Every mutation is guarded by the
// item version the caller read, so two reviewers racing on one item cannot
// silently overwrite each other.
type Service struct {
	meetings   repositories.MeetingRepository
	items      repositories.ReviewRepository
	exporter   Exporter
	staleAfter time.Duration
	logger     *zap.Logger
}

// NewService creates a new review Service
func NewService(
	meetings repositories.MeetingRepository,
	items repositories.ReviewRepository,
	exporter Exporter,
	staleAfter time.Duration,
	logger *zap.Logger,
) *Service {
	return &Service{
		meetings:   meetings,
		items:      items,
		exporter:   exporter,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// Progress summarizes the review state of one meeting. Edited counts
// items that carry at least one human edit, whatever their current status.
type Progress struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Edited   int `json:"edited"`
}

// Approve marks a pending item approved at the given version
func (s *Service) Approve(ctx context.Context, meetingID, itemID uuid.UUID, version int, reviewer string) (*entities.ReviewItem, error) {
	item, err := s.loadReviewable(ctx, meetingID, itemID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item.Status = entities.ReviewStatusApproved
	item.ReviewedBy = reviewer
	item.ReviewedAt = &now
	item.Version = version + 1

	if err := s.items.UpdateItemVersioned(ctx, item, version); err != nil {
		return nil, err
	}

	s.logger.Info("review item approved",
		zap.String("meeting_id", meetingID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("reviewer", reviewer))

	if err := s.finalizeIfComplete(ctx, meetingID); err != nil {
		return nil, err
	}
	return item, nil
}

// Edit replaces a pending item's content. The previous content goes into
// the append-only history and the item returns to pending, because edited
// content needs its own approval.
func (s *Service) Edit(ctx context.Context, meetingID, itemID uuid.UUID, version int, reviewer string, content json.RawMessage) (*entities.ReviewItem, error) {
	if !json.Valid(content) {
		return nil, fmt.Errorf("edit content is not valid JSON")
	}

	item, err := s.loadReviewable(ctx, meetingID, itemID)
	if err != nil {
		return nil, err
	}

	item.History = append(item.History, entities.ItemRevision{
		Version:  item.Version,
		Payload:  json.RawMessage(item.Payload),
		EditedBy: reviewer,
		EditedAt: time.Now().UTC(),
	})
	item.Payload = datatypes.JSON(content)
	item.Status = entities.ReviewStatusPending
	item.Version = version + 1

	if err := s.items.UpdateItemVersioned(ctx, item, version); err != nil {
		return nil, err
	}

	s.logger.Info("review item edited",
		zap.String("meeting_id", meetingID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("reviewer", reviewer),
		zap.Int("revisions", len(item.History)))

	return item, nil
}

// Reject marks a pending item rejected. Rejection is terminal for the
// item; the content stays stored but is excluded from every export.
func (s *Service) Reject(ctx context.Context, meetingID, itemID uuid.UUID, version int, reviewer, reason string) (*entities.ReviewItem, error) {
	item, err := s.loadReviewable(ctx, meetingID, itemID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item.Status = entities.ReviewStatusRejected
	item.ReviewedBy = reviewer
	item.ReviewedAt = &now
	item.RejectReason = reason
	item.Version = version + 1

	if err := s.items.UpdateItemVersioned(ctx, item, version); err != nil {
		return nil, err
	}

	s.logger.Info("review item rejected",
		zap.String("meeting_id", meetingID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("reviewer", reviewer))

	if err := s.finalizeIfComplete(ctx, meetingID); err != nil {
		return nil, err
	}
	return item, nil
}

// ApproveAll approves every listed pending item at the version the caller
// read it. Items already approved or rejected are skipped; a version
// mismatch aborts with ErrStaleReview, leaving earlier approvals applied.
func (s *Service) ApproveAll(ctx context.Context, meetingID uuid.UUID, reviewer string, versions map[uuid.UUID]int) error {
	if _, err := s.loadPendingMeeting(ctx, meetingID); err != nil {
		return err
	}

	items, err := s.items.ListByMeeting(ctx, meetingID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, item := range items {
		if item.Status != entities.ReviewStatusPending {
			continue
		}
		version, ok := versions[item.ID]
		if !ok {
			return fmt.Errorf("%w: item %s not listed in batch", entities.ErrStaleReview, item.ID)
		}

		item.Status = entities.ReviewStatusApproved
		item.ReviewedBy = reviewer
		item.ReviewedAt = &now
		item.Version = version + 1

		if err := s.items.UpdateItemVersioned(ctx, item, version); err != nil {
			return err
		}
	}

	return s.finalizeIfComplete(ctx, meetingID)
}

// GetProgress returns the review progress counts for a meeting
func (s *Service) GetProgress(ctx context.Context, meetingID uuid.UUID) (*Progress, error) {
	items, err := s.items.ListByMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	p := &Progress{Total: len(items)}
	for _, item := range items {
		if item.WasEdited() {
			p.Edited++
		}
		switch item.Status {
		case entities.ReviewStatusApproved:
			p.Approved++
		case entities.ReviewStatusRejected:
			p.Rejected++
		default:
			p.Pending++
		}
	}
	return p, nil
}

// WatchStale periodically flags meetings that have sat in review longer
// than the configured threshold. It only logs; stale reviews are a signal
// for humans, never an automatic transition.
func (s *Service) WatchStale(ctx context.Context, interval time.Duration) {
	if s.staleAfter <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flagStale(ctx)
		}
	}
}

func (s *Service) flagStale(ctx context.Context) {
	meetings, err := s.meetings.ListByState(ctx, entities.MeetingStatePendingReview, 100)
	if err != nil {
		s.logger.Error("stale review scan failed", zap.Error(err))
		return
	}

	cutoff := time.Now().Add(-s.staleAfter)
	for _, m := range meetings {
		if m.UpdatedAt.Before(cutoff) {
			s.logger.Warn("meeting review overdue",
				zap.String("meeting_id", m.ID.String()),
				zap.Time("pending_since", m.UpdatedAt))
		}
	}
}

// loadReviewable fetches an item and checks it can still be acted on
func (s *Service) loadReviewable(ctx context.Context, meetingID, itemID uuid.UUID) (*entities.ReviewItem, error) {
	if _, err := s.loadPendingMeeting(ctx, meetingID); err != nil {
		return nil, err
	}

	item, err := s.items.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.MeetingID != meetingID || item.Superseded {
		return nil, entities.ErrItemNotFound
	}
	if item.Terminal() {
		return nil, entities.ErrItemNotReviewable
	}
	return item, nil
}

func (s *Service) loadPendingMeeting(ctx context.Context, meetingID uuid.UUID) (*entities.Meeting, error) {
	meeting, err := s.meetings.FindByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, entities.ErrMeetingNotFound
	}
	if meeting.State != entities.MeetingStatePendingReview {
		return nil, fmt.Errorf("%w: meeting is %s", entities.ErrInvalidTransition, meeting.State)
	}
	return meeting, nil
}

// finalizeIfComplete checks whether every item reached a terminal status
// and, if so, moves the meeting on. Approved items go to the exporter; a
// meeting where everything was rejected has nothing to deliver and jumps
// straight to exported.
func (s *Service) finalizeIfComplete(ctx context.Context, meetingID uuid.UUID) error {
	items, err := s.items.ListByMeeting(ctx, meetingID)
	if err != nil {
		return err
	}

	approved := make([]*entities.ReviewItem, 0, len(items))
	for _, item := range items {
		if !item.Terminal() {
			return nil
		}
		if item.Status == entities.ReviewStatusApproved {
			approved = append(approved, item)
		}
	}

	meeting, err := s.meetings.FindByID(ctx, meetingID)
	if err != nil {
		return err
	}
	if meeting == nil {
		return entities.ErrMeetingNotFound
	}

	if err := meeting.TransitionTo(entities.MeetingStateExportedPending); err != nil {
		return err
	}

	if len(approved) == 0 {
		if err := meeting.TransitionTo(entities.MeetingStateExported); err != nil {
			return err
		}
		if err := s.meetings.Update(ctx, meeting); err != nil {
			return err
		}
		s.logger.Info("review complete with nothing to export",
			zap.String("meeting_id", meetingID.String()))
		return nil
	}

	if err := s.meetings.Update(ctx, meeting); err != nil {
		return err
	}

	s.logger.Info("review complete, exports enqueued",
		zap.String("meeting_id", meetingID.String()),
		zap.Int("approved", len(approved)))

	return s.exporter.Enqueue(ctx, meeting, approved)
}
