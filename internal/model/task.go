package model

import (
	"time"

	"gorm.io/gorm"
)

// TaskStatus is the lifecycle state of a task. Transitions are
// pending ⇄ in_progress ⇄ completed, plus the automatic edge to
// completed when every subtask is done.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// TaskPriority orders tasks high → medium → low.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// MaxTagsPerTask bounds the tag set on a single task.
const MaxTagsPerTask = 10

// Task is a single item in the planner. CompletedAt is set exactly when
// Status is completed. DeletedAt drives the soft-delete lifecycle: rows
// with it set are invisible to default queries.
type Task struct {
	ID          string `gorm:"primaryKey"`
	UserID      uint   `gorm:"index"`
	Title       string
	Description string
	Notes       string
	Status      TaskStatus   `gorm:"index;default:pending"`
	Priority    TaskPriority `gorm:"index;default:medium"`
	DueDate     *time.Time
	ManualOrder *int
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`

	Subtasks []Subtask `gorm:"foreignKey:TaskID"`
	Tags     []Tag     `gorm:"many2many:task_tags"`
}

// Completed reports whether the task is in the completed state.
func (t *Task) Completed() bool {
	return t.Status == StatusCompleted
}

// Trashed reports whether the task is soft-deleted.
func (t *Task) Trashed() bool {
	return t.DeletedAt.Valid
}

// ValidStatus reports whether s is one of the three known states.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ValidPriority reports whether p is one of the three known priorities.
func ValidPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
