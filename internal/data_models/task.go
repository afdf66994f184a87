package datamodels

import (
	"time"

	"task-manager.com/task-manager/internal/constants"
	model "task-manager.com/task-manager/internal/models"
)

type CreateTaskRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	DueDate     NullableTime `json:"dueDate"`
}

// UpdateTaskRequest is a partial update: nil pointers and an unset DueDate
// leave the stored value untouched.
type UpdateTaskRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Status      *string      `json:"status"`
	DueDate     NullableTime `json:"dueDate"`
}

// TaskFilter holds the optional list filters. A zero value lists everything.
type TaskFilter struct {
	Status    string
	DueBefore *time.Time
	DueAfter  *time.Time
}

type TaskResponse struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Status      constants.TaskStatus `json:"status"`
	DueDate     *time.Time           `json:"dueDate"`
	Owner       string               `json:"owner"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

func NewTaskResponse(t model.Task) TaskResponse {
	var due *time.Time
	if t.DueDate != nil {
		d := t.DueDate.UTC()
		due = &d
	}

	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		DueDate:     due,
		Owner:       t.Owner,
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
}

func NewTaskResponses(tasks []model.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, NewTaskResponse(t))
	}
	return out
}
