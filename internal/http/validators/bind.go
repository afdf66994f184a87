package validators

import (
	"errors"

	"github.com/labstack/echo/v4"

	dto "task-manager.com/task-manager/internal/data_models"
	apperrors "task-manager.com/task-manager/internal/errors"
)

// BindJSON decodes the request body into dst and turns decoder failures
// into validation errors.
func BindJSON(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		if errors.Is(err, dto.ErrInvalidInstant) {
			return apperrors.InvalidDate("dueDate")
		}
		return apperrors.ErrInvalidJSON
	}
	return nil
}
