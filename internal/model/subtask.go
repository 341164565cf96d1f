package model

import "time"

// Subtask is a checklist entry under a task. OrderIndex values form a
// contiguous 0-based sequence within the parent; the services maintain
// that invariant on every insert, reorder and removal.
type Subtask struct {
	ID          string `gorm:"primaryKey"`
	TaskID      string `gorm:"index"`
	Description string
	IsCompleted bool `gorm:"default:false"`
	OrderIndex  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
