package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"task-manager.com/task-manager/internal/auth"
	"task-manager.com/task-manager/internal/cache"
	"task-manager.com/task-manager/internal/constants"
	dto "task-manager.com/task-manager/internal/data_models"
	apperrors "task-manager.com/task-manager/internal/errors"
	model "task-manager.com/task-manager/internal/models"
	repository "task-manager.com/task-manager/internal/repositories"
)

type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) error
	List(ctx context.Context, q repository.TaskQuery) ([]model.Task, error)
	UpdateOwned(ctx context.Context, id, owner string, fields map[string]interface{}) (*model.Task, error)
	DeleteOwned(ctx context.Context, id, owner string) error
}

// TaskService serves the owner-scoped task operations. Every mutation drops
// the owner's cached lists before returning, so a list issued after the
// mutation completes never sees the previous snapshot.
type TaskService struct {
	repo   TaskStore
	cache  *cache.TaskListCache
	logger *slog.Logger
}

func NewTaskService(repo TaskStore, listCache *cache.TaskListCache, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	if listCache == nil {
		listCache = cache.NewTaskListCache(nil, 0, logger)
	}

	return &TaskService{
		repo:   repo,
		cache:  listCache,
		logger: logger.With("component", "task_service"),
	}
}

// List returns the JSON array of the owner's matching tasks, newest first.
// A cache hit is returned verbatim; a miss is serialized once and the same
// bytes are both cached and returned.
func (s *TaskService) List(ctx context.Context, id auth.Identity, filter dto.TaskFilter) (json.RawMessage, error) {
	if !id.Valid() {
		return nil, apperrors.ErrUnauthorized
	}

	status, _ := constants.ParseTaskStatus(filter.Status)
	key := cache.ListKey{
		Owner:     id.OwnerID,
		Status:    string(status),
		DueBefore: filter.DueBefore,
		DueAfter:  filter.DueAfter,
	}

	cached, fill, ok := s.cache.Get(ctx, key)
	if ok {
		return cached, nil
	}

	tasks, err := s.repo.List(ctx, repository.TaskQuery{
		Owner:     id.OwnerID,
		Status:    status,
		DueBefore: filter.DueBefore,
		DueAfter:  filter.DueAfter,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to list tasks", err)
	}

	body, err := json.Marshal(dto.NewTaskResponses(tasks))
	if err != nil {
		return nil, apperrors.Internal("Failed to list tasks", err)
	}

	s.cache.Put(ctx, fill, body)
	return body, nil
}

// CacheStats reports the list cache counters and whether caching is active.
func (s *TaskService) CacheStats() (cache.Stats, bool) {
	return s.cache.Stats(), s.cache.Enabled()
}

func (s *TaskService) Create(ctx context.Context, id auth.Identity, req dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	if !id.Valid() {
		return nil, apperrors.ErrUnauthorized
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.ErrTitleRequired
	}

	task := &model.Task{
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      constants.StatusPending,
		DueDate:     req.DueDate.Value,
		Owner:       id.OwnerID,
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, apperrors.Internal("Failed to create task", err)
	}

	s.cache.InvalidateOwner(ctx, id.OwnerID)

	resp := dto.NewTaskResponse(*task)
	return &resp, nil
}

// Update applies only the fields present in req. A task that belongs to
// another owner is reported as not found.
func (s *TaskService) Update(ctx context.Context, id auth.Identity, taskID string, req dto.UpdateTaskRequest) (*dto.TaskResponse, error) {
	if !id.Valid() {
		return nil, apperrors.ErrUnauthorized
	}

	fields, err := patchFields(req)
	if err != nil {
		return nil, err
	}

	task, err := s.repo.UpdateOwned(ctx, taskID, id.OwnerID, fields)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, apperrors.Internal("Failed to update task", err)
	}

	s.cache.InvalidateOwner(ctx, id.OwnerID)

	resp := dto.NewTaskResponse(*task)
	return &resp, nil
}

func (s *TaskService) Delete(ctx context.Context, id auth.Identity, taskID string) error {
	if !id.Valid() {
		return apperrors.ErrUnauthorized
	}

	if err := s.repo.DeleteOwned(ctx, taskID, id.OwnerID); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return apperrors.ErrTaskNotFound
		}
		return apperrors.Internal("Failed to delete task", err)
	}

	s.cache.InvalidateOwner(ctx, id.OwnerID)
	return nil
}

func patchFields(req dto.UpdateTaskRequest) (map[string]interface{}, error) {
	fields := make(map[string]interface{})

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperrors.ErrTitleRequired
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		status, ok := constants.ParseTaskStatus(*req.Status)
		if !ok {
			return nil, apperrors.ErrInvalidStatus
		}
		fields["status"] = status
	}
	if req.DueDate.Set {
		if req.DueDate.Value == nil {
			fields["due_date"] = nil
		} else {
			fields["due_date"] = req.DueDate.Value.UTC()
		}
	}

	return fields, nil
}
