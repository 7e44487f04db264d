package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sruppelQPS/openclaw-meeting-assistant/errors"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/adapter/dto"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/review"
)

// Review handles the per-item review endpoints
type Review struct {
	service *review.Service
	logger  *zap.Logger
}

// NewReview creates a new Review handler
func NewReview(service *review.Service, logger *zap.Logger) *Review {
	return &Review{service: service, logger: logger}
}

func (h *Review) ids(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.ErrInvalidArgument("invalid meeting id")
	}
	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.ErrInvalidArgument("invalid item id")
	}
	return meetingID, itemID, nil
}

// Approve marks one item approved
func (h *Review) Approve(c echo.Context) error {
	meetingID, itemID, err := h.ids(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req dto.ApproveRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	item, err := h.service.Approve(c.Request().Context(), meetingID, itemID, req.Version, req.Reviewer)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, item)
}

// Edit replaces one item's content and returns it to pending
func (h *Review) Edit(c echo.Context) error {
	meetingID, itemID, err := h.ids(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req dto.EditRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	item, err := h.service.Edit(c.Request().Context(), meetingID, itemID, req.Version, req.Reviewer, req.Content)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, item)
}

// Reject marks one item rejected
func (h *Review) Reject(c echo.Context) error {
	meetingID, itemID, err := h.ids(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req dto.RejectRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	item, err := h.service.Reject(c.Request().Context(), meetingID, itemID, req.Version, req.Reviewer, req.Reason)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, item)
}

// ApproveAll approves every remaining pending item of a meeting
func (h *Review) ApproveAll(c echo.Context) error {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid meeting id"))
	}

	var req dto.ApproveAllRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	versions := make(map[uuid.UUID]int, len(req.Versions))
	for rawID, version := range req.Versions {
		itemID, err := uuid.Parse(rawID)
		if err != nil {
			return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid item id in versions map"))
		}
		versions[itemID] = version
	}

	if err := h.service.ApproveAll(c.Request().Context(), meetingID, req.Reviewer, versions); err != nil {
		return HandleError(h.logger, c, err)
	}

	progress, err := h.service.GetProgress(c.Request().Context(), meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, progress)
}
