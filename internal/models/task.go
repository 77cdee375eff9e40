package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	return s == TaskStatusTodo || s == TaskStatusInProgress || s == TaskStatusDone
}

// TaskCategory groups tasks.
type TaskCategory string

const (
	TaskCategoryWork     TaskCategory = "work"
	TaskCategoryPersonal TaskCategory = "personal"
	TaskCategoryUrgent   TaskCategory = "urgent"
)

// Valid reports whether c is a known category.
func (c TaskCategory) Valid() bool {
	return c == TaskCategoryWork || c == TaskCategoryPersonal || c == TaskCategoryUrgent
}

// Task is owned by one organization, taken from the assignee when the task is created.
type Task struct {
	ID             uuid.UUID    `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Status         TaskStatus   `json:"status"`
	Category       TaskCategory `json:"category"`
	Priority       int          `json:"priority"` // 1 (lowest) to 5
	DueDate        *time.Time   `json:"due_date,omitempty"`
	AssignedToID   uuid.UUID    `json:"assigned_to_id"`
	CreatedByID    uuid.UUID    `json:"created_by_id"`
	OrganizationID uuid.UUID    `json:"organization_id"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
