package validators

import (
	"time"

	"github.com/labstack/echo/v4"

	dto "task-manager.com/task-manager/internal/data_models"
	apperrors "task-manager.com/task-manager/internal/errors"
)

// ParseTaskFilter reads status, dueBefore and dueAfter from the query string.
// An unknown status is passed through and ignored by the service; a date that
// cannot be parsed is rejected.
func ParseTaskFilter(c echo.Context) (dto.TaskFilter, error) {
	filter := dto.TaskFilter{Status: c.QueryParam("status")}

	var err error
	if filter.DueBefore, err = parseBound(c.QueryParam("dueBefore")); err != nil {
		return dto.TaskFilter{}, apperrors.InvalidDate("dueBefore")
	}
	if filter.DueAfter, err = parseBound(c.QueryParam("dueAfter")); err != nil {
		return dto.TaskFilter{}, apperrors.InvalidDate("dueAfter")
	}

	return filter, nil
}

func parseBound(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := dto.ParseInstant(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
