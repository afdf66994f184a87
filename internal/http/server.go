package http

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"task-manager.com/task-manager/internal/auth"
	middleware "task-manager.com/task-manager/internal/http/middlewares"
	"task-manager.com/task-manager/internal/logging"
)

func NewServer(h *Handler, verifier auth.TokenVerifier, rateLimitPerMinute int, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(logger)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(logging.RequestLogger(logger))

	Register(e, h, middleware.AuthGate(verifier), rateLimitPerMinute)
	return e
}
