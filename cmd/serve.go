package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"task-manager.com/task-manager/internal/auth"
	"task-manager.com/task-manager/internal/cache"
	config "task-manager.com/task-manager/internal/configs"
	httpapi "task-manager.com/task-manager/internal/http"
	"task-manager.com/task-manager/internal/logging"
	repository "task-manager.com/task-manager/internal/repositories"
	"task-manager.com/task-manager/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the task management HTTP API backed by sqlite and an optional Redis list cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger := logging.Setup(cfg.LogLevel)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		database, err := config.NewDatabase(cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		if sqlDB, err := database.DB(); err == nil {
			defer sqlDB.Close()
		}

		backend, closeCache := config.NewCacheBackend(ctx, cfg, logger)
		defer closeCache()

		tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)
		if err != nil {
			return err
		}
		hasher, err := auth.NewBcryptHasher(cfg.BcryptCost)
		if err != nil {
			return err
		}

		taskService := services.NewTaskService(
			repository.NewTaskRepository(database),
			cache.NewTaskListCache(backend, cfg.CacheTTL, logger),
			logger,
		)
		authService := services.NewAuthService(repository.NewUserRepository(database), hasher, tokens, logger)

		e := httpapi.NewServer(httpapi.NewHandler(taskService, authService), tokens, cfg.RateLimit, logger)

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.AppURL())
			if err := e.Start(cfg.AppURL()); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server stopped", "error", err)
				stop()
			}
		}()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", "error", err)
		}

		logger.Info("HTTP server shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
