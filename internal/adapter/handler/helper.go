package handler

import (
	stdErrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sruppelQPS/openclaw-meeting-assistant/errors"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
)

// Response shapes
type success struct {
	Code    interface{} `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type errs struct {
	Code    interface{} `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Info    string      `json:"info,omitempty"`
}

// getRequestID tries to read X-Request-ID from the request
func getRequestID(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return c.Request().Header.Get("X-Request-ID")
}

// HandleSuccess writes a standardized success response using provided logger
func HandleSuccess(logger *zap.Logger, c echo.Context, data interface{}) error {
	resp := success{
		Code:    errors.ErrorCode_OK,
		Message: "success",
		Data:    data,
	}

	if logger != nil {
		logger.Info("http.response.success",
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
		)
	}

	return c.JSON(http.StatusOK, resp)
}

// HandleError centralizes error handling and logging using provided logger
func HandleError(logger *zap.Logger, c echo.Context, err error) error {
	err = mapDomainError(err)
	reqID := getRequestID(c)

	var appErr errors.AppError
	if stdErrors.As(err, &appErr) {
		if logger != nil {
			logger.Error("http.response.error",
				zap.String("request_id", reqID),
				zap.String("path", c.Path()),
				zap.Any("app_code", appErr.Code),
				zap.Error(err),
			)
		}

		info := ""
		if appErr.Raw != nil {
			info = appErr.Raw.Error()
		}

		body := errs{
			Code:    appErr.Code,
			Message: appErr.Message,
			Info:    info,
		}

		return c.JSON(appErr.HTTPCode, body)
	}

	if logger != nil {
		logger.Error("http.response.error",
			zap.String("request_id", reqID),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	body := errs{
		Code:    errors.ErrorCode_INTERNAL,
		Message: "Internal server error",
		Info:    err.Error(),
	}

	return c.JSON(http.StatusInternalServerError, body)
}

// mapDomainError translates domain sentinels into API errors. Errors that
// are already AppError or unknown pass through unchanged.
func mapDomainError(err error) error {
	switch {
	case stdErrors.Is(err, entities.ErrMalformedAnalysis):
		return errors.ErrMalformedAnalysis(err)
	case stdErrors.Is(err, entities.ErrStaleReview):
		return errors.ErrStaleReview(err)
	case stdErrors.Is(err, entities.ErrItemNotReviewable):
		return errors.ErrNotReviewable(err)
	case stdErrors.Is(err, entities.ErrItemNotFound):
		return errors.ErrNotFound("Review item")
	case stdErrors.Is(err, entities.ErrMeetingNotFound):
		return errors.ErrNotFound("Meeting")
	case stdErrors.Is(err, entities.ErrExportRecordNotFound):
		return errors.ErrNotFound("Export record")
	case stdErrors.Is(err, entities.ErrMeetingTerminal),
		stdErrors.Is(err, entities.ErrInvalidTransition):
		return errors.ErrInvalidState(err.Error())
	case stdErrors.Is(err, entities.ErrExportNotRetryable):
		return errors.ErrNotRetryable(err)
	}
	return err
}
