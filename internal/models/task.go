package model

import (
	"time"

	"task-manager.com/task-manager/internal/constants"
)

type Task struct {
	ID          string               `gorm:"primaryKey;size:36"`
	Title       string               `gorm:"not null"`
	Description string               `gorm:"not null;default:''"`
	Status      constants.TaskStatus `gorm:"type:varchar(20);not null;default:pending;index:idx_tasks_owner_status,priority:2"`
	DueDate     *time.Time           `gorm:"index:idx_tasks_owner_due,priority:2"`
	Owner       string               `gorm:"size:36;not null;index:idx_tasks_owner_created,priority:1;index:idx_tasks_owner_status,priority:1;index:idx_tasks_owner_due,priority:1"`
	CreatedAt   time.Time            `gorm:"not null;index:idx_tasks_owner_created,priority:2,sort:desc"`
	UpdatedAt   time.Time            `gorm:"not null"`
}
