package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sruppelQPS/openclaw-meeting-assistant/errors"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/adapter/dto"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/pipeline"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/review"
)

// Pipeline handles meeting ingestion and lifecycle endpoints
type Pipeline struct {
	orchestrator *pipeline.Orchestrator
	review       *review.Service
	logger       *zap.Logger
}

// NewPipeline creates a new Pipeline handler
func NewPipeline(orchestrator *pipeline.Orchestrator, reviewService *review.Service, logger *zap.Logger) *Pipeline {
	return &Pipeline{orchestrator: orchestrator, review: reviewService, logger: logger}
}

// Ingest accepts an analyzed meeting and runs it through the pipeline
func (h *Pipeline) Ingest(c echo.Context) error {
	var req dto.IngestRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	meetingDate, err := req.ParseMeetingDate()
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("meeting_date must be YYYY-MM-DD"))
	}

	meeting, err := h.orchestrator.Ingest(c.Request().Context(), pipeline.IngestRequest{
		Title:          req.Title,
		SourceAudioRef: req.SourceAudioRef,
		TranscriptRef:  req.TranscriptRef,
		MeetingDate:    meetingDate,
		Location:       req.Location,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		Analysis:       req.Analysis,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, meeting)
}

// Get returns a meeting with its review items and progress
func (h *Pipeline) Get(c echo.Context) error {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid meeting id"))
	}

	meeting, items, err := h.orchestrator.Get(c.Request().Context(), meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	progress, err := h.review.GetProgress(c.Request().Context(), meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, map[string]interface{}{
		"meeting":  meeting,
		"items":    items,
		"progress": progress,
	})
}

// Archive closes a meeting without exporting it
func (h *Pipeline) Archive(c echo.Context) error {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid meeting id"))
	}

	meeting, err := h.orchestrator.Archive(c.Request().Context(), meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, meeting)
}
