package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	dto "task-manager.com/task-manager/internal/data_models"
	apperrors "task-manager.com/task-manager/internal/errors"
	middleware "task-manager.com/task-manager/internal/http/middlewares"
	"task-manager.com/task-manager/internal/http/validators"
	"task-manager.com/task-manager/internal/services"
)

type Handler struct {
	taskService *services.TaskService
	authService *services.AuthService
}

func NewHandler(taskService *services.TaskService, authService *services.AuthService) *Handler {
	return &Handler{
		taskService: taskService,
		authService: authService,
	}
}

func (h *Handler) Health(c echo.Context) error {
	stats, enabled := h.taskService.CacheStats()
	return c.JSON(http.StatusOK, dto.Response{
		Success: true,
		Message: "Server is running",
		Data: map[string]any{
			"cache": map[string]any{
				"enabled": enabled,
				"stats":   stats,
			},
		},
	})
}

func (h *Handler) ListTasks(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}

	filter, err := validators.ParseTaskFilter(c)
	if err != nil {
		return err
	}

	tasks, err := h.taskService.List(c.Request().Context(), identity, filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.RawListResponse{Success: true, Data: tasks})
}

func (h *Handler) CreateTask(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}

	var req dto.CreateTaskRequest
	if err := validators.BindJSON(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.Create(c.Request().Context(), identity, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, dto.Response{Success: true, Data: task})
}

func (h *Handler) UpdateTask(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}

	var req dto.UpdateTaskRequest
	if err := validators.BindJSON(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.Update(c.Request().Context(), identity, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.Response{Success: true, Data: task})
}

func (h *Handler) DeleteTask(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}

	if err := h.taskService.Delete(c.Request().Context(), identity, c.Param("id")); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.Response{Success: true, Message: "Task deleted"})
}
