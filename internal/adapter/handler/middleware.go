package handler

import (
	"bytes"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/sruppelQPS/openclaw-meeting-assistant/errors"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/signature"
)

const signatureHeader = "X-Signature"

// RequireSignature verifies the HMAC-SHA256 signature that review clients
// send over the request body. An empty secret disables the check so local
// setups work without one.
func RequireSignature(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return next(c)
			}

			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return HandleError(nil, c, errors.ErrInvalidArgument("unreadable request body"))
			}
			c.Request().Body = io.NopCloser(bytes.NewReader(body))

			if !signature.Verify(secret, body, c.Request().Header.Get(signatureHeader)) {
				return HandleError(nil, c, errors.ErrUnauthenticated("invalid or missing request signature"))
			}
			return next(c)
		}
	}
}
