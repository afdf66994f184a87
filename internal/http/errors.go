package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	dto "task-manager.com/task-manager/internal/data_models"
	apperrors "task-manager.com/task-manager/internal/errors"
)

// ErrorHandler renders every error in the response envelope. Only the
// public message reaches the client; causes of 5xx responses are logged.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, message := resolve(err)
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", status,
				"error", err)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, dto.Response{Success: false, Message: message})
		}
		if writeErr != nil {
			logger.Error("failed to write error response", "error", writeErr)
		}
	}
}

func resolve(err error) (int, string) {
	var appErr *apperrors.Exception
	var he *echo.HTTPError
	if !errors.As(err, &appErr) && errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok && he.Code < http.StatusInternalServerError {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	}

	return apperrors.StatusCode(err), apperrors.PublicMessage(err, apperrors.ErrInternal.Message)
}
