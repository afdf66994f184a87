package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"task-manager.com/task-manager/internal/constants"
	model "task-manager.com/task-manager/internal/models"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskQuery is the store-level view of a list request. Empty fields are not applied.
type TaskQuery struct {
	Owner     string
	Status    constants.TaskStatus
	DueBefore *time.Time
	DueAfter  *time.Time
}

type TaskRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the timestamp source. Used by tests that need a stable ordering.
func (r *TaskRepository) WithClock(now func() time.Time) *TaskRepository {
	r.now = now
	return r
}

func (r *TaskRepository) CreateTask(ctx context.Context, task *model.Task) error {
	now := r.now()

	task.ID = uuid.NewString()
	if task.Status == "" {
		task.Status = constants.StatusPending
	}
	task.CreatedAt = now
	task.UpdatedAt = now

	return r.db.WithContext(ctx).Create(task).Error
}

// List returns the owner's tasks matching q, newest first.
func (r *TaskRepository) List(ctx context.Context, q TaskQuery) ([]model.Task, error) {
	query := r.db.WithContext(ctx).Where("owner = ?", q.Owner)

	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.DueBefore != nil {
		query = query.Where("due_date <= ?", q.DueBefore.UTC())
	}
	if q.DueAfter != nil {
		query = query.Where("due_date >= ?", q.DueAfter.UTC())
	}

	tasks := make([]model.Task, 0)
	if err := query.Order("created_at desc").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateOwned applies fields to the task only when it belongs to owner, and
// returns the stored row after the write. A task owned by someone else is
// reported exactly like a missing one.
func (r *TaskRepository) UpdateOwned(ctx context.Context, id, owner string, fields map[string]interface{}) (*model.Task, error) {
	var updated model.Task

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := make(map[string]interface{}, len(fields)+1)
		for k, v := range fields {
			values[k] = v
		}
		values["updated_at"] = r.now()

		res := tx.Model(&model.Task{}).
			Where("id = ? AND owner = ?", id, owner).
			Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTaskNotFound
		}

		return tx.Where("id = ? AND owner = ?", id, owner).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

func (r *TaskRepository) DeleteOwned(ctx context.Context, id, owner string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND owner = ?", id, owner).
		Delete(&model.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
