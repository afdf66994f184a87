package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	dto "task-manager.com/task-manager/internal/data_models"
	"task-manager.com/task-manager/internal/http/validators"
)

func (h *Handler) Signup(c echo.Context) error {
	var req dto.CredentialsRequest
	if err := validators.BindJSON(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, dto.Response{
		Success: true,
		Message: "User registered successfully",
		Token:   res.Token,
		User:    &res.User,
	})
}

func (h *Handler) Login(c echo.Context) error {
	var req dto.CredentialsRequest
	if err := validators.BindJSON(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.Response{
		Success: true,
		Message: "Login successful",
		Token:   res.Token,
		User:    &res.User,
	})
}
