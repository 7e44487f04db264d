package pipeline

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
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/identity"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/normalize"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/config"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/jobcontext"
)

// Notifier tells reviewers that a meeting is ready. Delivery is best
// effort; a notification failure never blocks the pipeline.
type Notifier interface {
	ReviewReady(ctx context.Context, meeting *entities.Meeting, pendingItems int) error
}

// IngestRequest carries one analyzed meeting into the pipeline
type IngestRequest struct {
	Title          string
	SourceAudioRef string
	TranscriptRef  string
	MeetingDate    time.Time
	Location       string
	StartsAt       *time.Time
	EndsAt         *time.Time
	Analysis       json.RawMessage
}

// Orchestrator drives a meeting from raw analysis to pending review. It is
// the only writer of meeting state transitions; review completion and
// export delivery advance the meeting through their own services.
type Orchestrator struct {
	meetings   repositories.MeetingRepository
	items      repositories.ReviewRepository
	normalizer *normalize.Normalizer
	resolver   *identity.Resolver
	notifier   Notifier
	sem        chan struct{}
	logger     *zap.Logger
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(
	meetings repositories.MeetingRepository,
	items repositories.ReviewRepository,
	normalizer *normalize.Normalizer,
	resolver *identity.Resolver,
	notifier Notifier,
	cfg config.PipelineConfig,
	logger *zap.Logger,
) *Orchestrator {
	limit := cfg.MaxConcurrentMeetings
	if limit < 1 {
		limit = 1
	}
	return &Orchestrator{
		meetings:   meetings,
		items:      items,
		normalizer: normalizer,
		resolver:   resolver,
		notifier:   notifier,
		sem:        make(chan struct{}, limit),
		logger:     logger,
	}
}

// Ingest runs the full pipeline for one analysis payload. A payload that
// fails normalization is rejected without creating any record. Re-ingesting
// a source that already has a live draft or review supersedes it; an
// already exported source gets a fresh revision and the exported record
// stays untouched.
func (o *Orchestrator) Ingest(ctx context.Context, req IngestRequest) (*entities.Meeting, error) {
	if req.SourceAudioRef == "" {
		return nil, fmt.Errorf("source audio reference is required")
	}

	o.sem <- struct{}{}
	defer func() { <-o.sem }()

	suggestion, err := o.normalizer.Parse(req.Analysis)
	if err != nil {
		return nil, err
	}
	result, err := o.normalizer.Normalize(suggestion, req.MeetingDate)
	if err != nil {
		return nil, err
	}

	revision := 1
	prior, err := o.meetings.FindLatestBySourceRef(ctx, req.SourceAudioRef)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		revision = prior.Revision + 1
		if err := o.supersede(ctx, prior); err != nil {
			return nil, err
		}
	}

	title := req.Title
	if title == "" {
		title = result.Summary
	}
	meeting := entities.NewMeeting(title, req.SourceAudioRef, req.MeetingDate)
	meeting.Revision = revision
	meeting.TranscriptRef = req.TranscriptRef
	meeting.Location = req.Location
	meeting.StartsAt = req.StartsAt
	meeting.EndsAt = req.EndsAt
	meeting.RawPayload = datatypes.JSON(req.Analysis)
	if err := o.meetings.Create(ctx, meeting); err != nil {
		return nil, err
	}

	if err := o.process(ctx, meeting, result); err != nil {
		return nil, err
	}
	return meeting, nil
}

// supersede retires a prior handling of the same source. Exported and
// archived meetings are history and stay as they are; a draft or an open
// review is replaced.
func (o *Orchestrator) supersede(ctx context.Context, prior *entities.Meeting) error {
	if prior.IsTerminal() || prior.State == entities.MeetingStateExportedPending {
		return nil
	}

	if err := o.items.SupersedeByMeeting(ctx, prior.ID); err != nil {
		return err
	}
	if err := prior.TransitionTo(entities.MeetingStateDiscarded); err != nil {
		return err
	}
	if err := o.meetings.Update(ctx, prior); err != nil {
		return err
	}

	o.logger.Info("prior meeting superseded",
		zap.String("meeting_id", prior.ID.String()),
		zap.Int("revision", prior.Revision))
	return nil
}

// process takes a draft meeting through resolution, review item creation
// and the hand-off to reviewers
func (o *Orchestrator) process(ctx context.Context, meeting *entities.Meeting, result *normalize.Result) error {
	stageCtx, cancel := jobcontext.StageBegin(ctx, meeting.ID, "resolve", 0)
	defer cancel()

	participants, err := o.resolver.ResolveParticipants(stageCtx, result.Participants)
	if err != nil {
		return fmt.Errorf("resolving participants: %w", err)
	}
	meeting.Participants = participants

	if err := o.resolveContent(stageCtx, result, participants); err != nil {
		return err
	}
	meeting.Topics = result.Topics
	meeting.DroppedEntries = result.Dropped

	meta := jobcontext.GetStageMetadata(stageCtx)
	o.logger.Debug("resolution stage complete",
		zap.String("meeting_id", meta.MeetingID.String()),
		zap.String("stage", meta.Stage),
		zap.Duration("took", time.Since(meta.StartTime)))

	if err := o.meetings.Update(ctx, meeting); err != nil {
		return err
	}

	items, err := o.buildReviewItems(meeting, result)
	if err != nil {
		return err
	}
	if err := o.items.CreateItems(ctx, items); err != nil {
		return err
	}

	if err := meeting.TransitionTo(entities.MeetingStatePendingReview); err != nil {
		return err
	}
	if err := o.meetings.Update(ctx, meeting); err != nil {
		return err
	}

	o.logger.Info("meeting ready for review",
		zap.String("meeting_id", meeting.ID.String()),
		zap.Int("revision", meeting.Revision),
		zap.Int("items", len(items)))

	o.notify(ctx, meeting, len(items))
	return nil
}

// resolveContent links every person reference in the extracted content to
// the resolved participants or the directory
func (o *Orchestrator) resolveContent(ctx context.Context, result *normalize.Result, participants []entities.Participant) error {
	for ti := range result.Topics {
		for di := range result.Topics[ti].Decisions {
			refs := result.Topics[ti].Decisions[di].DecidedBy
			for ri := range refs {
				resolved, err := o.resolver.ResolveParty(ctx, refs[ri], participants)
				if err != nil {
					return err
				}
				refs[ri] = resolved
			}
		}
	}

	for i := range result.ActionItems {
		resolved, err := o.resolver.ResolveParty(ctx, result.ActionItems[i].Assignee, participants)
		if err != nil {
			return err
		}
		result.ActionItems[i].Assignee = resolved
	}

	for i := range result.OpenQuestions {
		resolved, err := o.resolver.ResolveParty(ctx, result.OpenQuestions[i].RaisedBy, participants)
		if err != nil {
			return err
		}
		result.OpenQuestions[i].RaisedBy = resolved

		if result.OpenQuestions[i].AssignedTo != nil {
			resolved, err := o.resolver.ResolveParty(ctx, *result.OpenQuestions[i].AssignedTo, participants)
			if err != nil {
				return err
			}
			result.OpenQuestions[i].AssignedTo = &resolved
		}
	}

	return nil
}

// buildReviewItems wraps every extracted artifact into its own review item.
// Topic summaries are reviewed separately from the decisions made under
// them.
func (o *Orchestrator) buildReviewItems(meeting *entities.Meeting, result *normalize.Result) ([]*entities.ReviewItem, error) {
	var items []*entities.ReviewItem

	for _, topic := range result.Topics {
		if topic.Content != "" {
			item, err := entities.NewReviewItem(meeting.ID, entities.ReviewItemKindTopicSummary,
				entities.Topic{Title: topic.Title, Content: topic.Content})
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		for _, decision := range topic.Decisions {
			item, err := entities.NewReviewItem(meeting.ID, entities.ReviewItemKindDecision, decision)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}

	for _, actionItem := range result.ActionItems {
		item, err := entities.NewReviewItem(meeting.ID, entities.ReviewItemKindActionItem, actionItem)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	for _, question := range result.OpenQuestions {
		item, err := entities.NewReviewItem(meeting.ID, entities.ReviewItemKindOpenQuestion, question)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, nil
}

// notify is best effort with restart-safe dedup through NotifiedAt
func (o *Orchestrator) notify(ctx context.Context, meeting *entities.Meeting, itemCount int) {
	if o.notifier == nil || meeting.NotifiedAt != nil {
		return
	}

	if err := o.notifier.ReviewReady(ctx, meeting, itemCount); err != nil {
		o.logger.Warn("reviewer notification failed",
			zap.String("meeting_id", meeting.ID.String()),
			zap.Error(err))
		return
	}

	now := time.Now().UTC()
	meeting.NotifiedAt = &now
	if err := o.meetings.Update(ctx, meeting); err != nil {
		o.logger.Error("failed to persist notification time", zap.Error(err))
	}
}

// Get returns a meeting with its live review items
func (o *Orchestrator) Get(ctx context.Context, meetingID uuid.UUID) (*entities.Meeting, []*entities.ReviewItem, error) {
	meeting, err := o.meetings.FindByID(ctx, meetingID)
	if err != nil {
		return nil, nil, err
	}
	if meeting == nil {
		return nil, nil, entities.ErrMeetingNotFound
	}
	items, err := o.items.ListByMeeting(ctx, meetingID)
	if err != nil {
		return nil, nil, err
	}
	return meeting, items, nil
}

// Archive closes a meeting without exporting it. Allowed from any
// non-terminal state; in-flight exports are released by the dispatcher.
func (o *Orchestrator) Archive(ctx context.Context, meetingID uuid.UUID) (*entities.Meeting, error) {
	meeting, err := o.meetings.FindByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, entities.ErrMeetingNotFound
	}
	if err := meeting.TransitionTo(entities.MeetingStateArchived); err != nil {
		return nil, err
	}
	if err := o.meetings.Update(ctx, meeting); err != nil {
		return nil, err
	}

	o.logger.Info("meeting archived", zap.String("meeting_id", meetingID.String()))
	return meeting, nil
}

// Resume picks up meetings that a previous process left mid-pipeline.
// Drafts are re-processed from the stored raw payload; meetings awaiting
// review get their notification resent if it never went out.
func (o *Orchestrator) Resume(ctx context.Context) error {
	drafts, err := o.meetings.ListByState(ctx, entities.MeetingStateDraft, 100)
	if err != nil {
		return err
	}
	for _, meeting := range drafts {
		if err := o.resumeDraft(ctx, meeting); err != nil {
			o.logger.Error("failed to resume draft",
				zap.String("meeting_id", meeting.ID.String()),
				zap.Error(err))
		}
	}

	pending, err := o.meetings.ListByState(ctx, entities.MeetingStatePendingReview, 100)
	if err != nil {
		return err
	}
	for _, meeting := range pending {
		if meeting.NotifiedAt == nil {
			items, err := o.items.ListByMeeting(ctx, meeting.ID)
			if err != nil {
				return err
			}
			o.notify(ctx, meeting, len(items))
		}
	}

	return nil
}

func (o *Orchestrator) resumeDraft(ctx context.Context, meeting *entities.Meeting) error {
	o.sem <- struct{}{}
	defer func() { <-o.sem }()

	// stale review items from the interrupted run are replaced wholesale
	if err := o.items.SupersedeByMeeting(ctx, meeting.ID); err != nil {
		return err
	}

	suggestion, err := o.normalizer.Parse([]byte(meeting.RawPayload))
	if err != nil {
		return err
	}
	result, err := o.normalizer.Normalize(suggestion, meeting.MeetingDate)
	if err != nil {
		return err
	}
	return o.process(ctx, meeting, result)
}
