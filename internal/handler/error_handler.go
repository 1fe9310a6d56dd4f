package handler

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"formini/internal/errors"
)

// NewHTTPErrorHandler renders every handler error as an errors.ErrorResponse.
// Domain errors keep their status and code; anything unclassified becomes a
// 500 and is logged with its cause.
func NewHTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var status int
		var body errors.ErrorResponse

		var domainErr *errors.Error
		var echoErr *echo.HTTPError
		switch {
		case stderrors.As(err, &domainErr) && domainErr.Kind != errors.KindInternal:
			httpErr := errors.MapErrorToHTTP(domainErr)
			status, body = httpErr.StatusCode, httpErr.ToErrorResponse()
		case stderrors.As(err, &echoErr):
			status = echoErr.Code
			body = errors.ErrorResponse{Error: http.StatusText(status), Code: codeForStatus(status)}
			if msg, ok := echoErr.Message.(string); ok {
				body.Error = msg
			}
		default:
			httpErr := errors.MapErrorToHTTP(err)
			status, body = httpErr.StatusCode, httpErr.ToErrorResponse()
		}

		if status >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"error", err,
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.ErrorContext(c.Request().Context(), "error response not written", "error", err)
		}
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusRequestEntityTooLarge:
		return "REQUEST_TOO_LARGE"
	default:
		return "INTERNAL_ERROR"
	}
}

// invalidRequest is returned when the body cannot be bound or fails validation.
func invalidRequest(err error) error {
	return errors.Validation("INVALID_REQUEST", "invalid request body").Wrap(err)
}
