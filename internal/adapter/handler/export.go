package handler

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sruppelQPS/openclaw-meeting-assistant/errors"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/export"
)

// Export handles the operator endpoints for the delivery ledger
type Export struct {
	dispatcher *export.Dispatcher
	logger     *zap.Logger
}

// NewExport creates a new Export handler
func NewExport(dispatcher *export.Dispatcher, logger *zap.Logger) *Export {
	return &Export{dispatcher: dispatcher, logger: logger}
}

// ListFailed returns permanently failed export records
func (h *Export) ListFailed(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return HandleError(h.logger, c, errors.ErrInvalidArgument("limit must be a positive integer"))
		}
		limit = parsed
	}

	records, err := h.dispatcher.ListFailed(c.Request().Context(), limit)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, records)
}

// Retry puts a permanently failed record back on the pending queue
func (h *Export) Retry(c echo.Context) error {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid record id"))
	}

	record, err := h.dispatcher.Retry(c.Request().Context(), recordID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, record)
}
