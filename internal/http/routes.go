package http

import (
	"time"

	"github.com/labstack/echo/v4"

	middleware "task-manager.com/task-manager/internal/http/middlewares"
)

const APIPrefix = "/api"

// Register mounts the API on e. authGate guards every task route.
func Register(e *echo.Echo, h *Handler, authGate echo.MiddlewareFunc, rateLimitPerMinute int) {
	e.GET("/", h.Health)

	api := e.Group(APIPrefix, middleware.RateLimiter(rateLimitPerMinute, time.Minute))

	authRoutes := api.Group("/auth")
	authRoutes.POST("/signup", h.Signup)
	authRoutes.POST("/register", h.Signup)
	authRoutes.POST("/login", h.Login)

	tasks := api.Group("/tasks", authGate)
	tasks.GET("", h.ListTasks)
	tasks.POST("", h.CreateTask)
	tasks.PUT("/:id", h.UpdateTask)
	tasks.DELETE("/:id", h.DeleteTask)
}
