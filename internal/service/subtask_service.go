package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/tarbeev/taskengine/internal/apperr"
	"github.com/tarbeev/taskengine/internal/model"
	"github.com/tarbeev/taskengine/internal/repository"
)

// SubtaskService maintains a task's checklist. Every mutation keeps
// OrderIndex values unique and contiguous from zero.
type SubtaskService struct {
	tasks *repository.TaskRepository
}

func NewSubtaskService(tasks *repository.TaskRepository) *SubtaskService {
	return &SubtaskService{tasks: tasks}
}

// Add appends a subtask at the end of the parent's checklist.
func (s *SubtaskService) Add(ctx context.Context, userID uint, taskID, description string) (*model.Subtask, error) {
	if description == "" {
		return nil, apperr.New(apperr.Validation, "description is required")
	}
	var sub *model.Subtask
	err := s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		task, err := tx.Get(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if err := verifyContiguous(task.Subtasks); err != nil {
			return err
		}
		sub = &model.Subtask{
			ID:          uuid.NewString(),
			TaskID:      task.ID,
			Description: description,
			OrderIndex:  len(task.Subtasks),
		}
		return tx.InsertSubtask(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Reorder moves a subtask to newIndex, shifting its siblings to keep the
// sequence contiguous.
func (s *SubtaskService) Reorder(ctx context.Context, userID uint, taskID, subtaskID string, newIndex int) error {
	return s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		task, err := tx.Get(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if newIndex < 0 || newIndex >= len(task.Subtasks) {
			return apperr.New(apperr.Validation, "index %d out of range [0,%d)", newIndex, len(task.Subtasks))
		}
		if err := verifyContiguous(task.Subtasks); err != nil {
			return err
		}

		from := -1
		for i, sub := range task.Subtasks {
			if sub.ID == subtaskID {
				from = i
				break
			}
		}
		if from == -1 {
			return apperr.New(apperr.NotFound, "subtask %s", subtaskID)
		}
		if from == newIndex {
			return nil
		}

		// Subtasks arrive ordered by OrderIndex; splice and renumber.
		reordered := make([]model.Subtask, 0, len(task.Subtasks))
		reordered = append(reordered, task.Subtasks[:from]...)
		reordered = append(reordered, task.Subtasks[from+1:]...)
		reordered = append(reordered[:newIndex], append([]model.Subtask{task.Subtasks[from]}, reordered[newIndex:]...)...)
		for i := range reordered {
			if reordered[i].OrderIndex == i {
				continue
			}
			reordered[i].OrderIndex = i
			if err := tx.SaveSubtask(ctx, &reordered[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Remove deletes a subtask and closes the gap it leaves.
func (s *SubtaskService) Remove(ctx context.Context, userID uint, taskID, subtaskID string) error {
	return s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		task, err := tx.Get(ctx, userID, taskID)
		if err != nil {
			return err
		}
		found := false
		for _, sub := range task.Subtasks {
			if sub.ID == subtaskID {
				found = true
				break
			}
		}
		if !found {
			return apperr.New(apperr.NotFound, "subtask %s", subtaskID)
		}
		if err := tx.DeleteSubtask(ctx, subtaskID); err != nil {
			return err
		}
		idx := 0
		for i := range task.Subtasks {
			if task.Subtasks[i].ID == subtaskID {
				continue
			}
			if task.Subtasks[i].OrderIndex != idx {
				task.Subtasks[i].OrderIndex = idx
				if err := tx.SaveSubtask(ctx, &task.Subtasks[i]); err != nil {
					return err
				}
			}
			idx++
		}
		return nil
	})
}

// verifyContiguous guards the order invariant before relying on it; stored
// duplicates or gaps surface as a conflict instead of silent corruption.
func verifyContiguous(subs []model.Subtask) error {
	for i, sub := range subs {
		if sub.OrderIndex != i {
			return apperr.New(apperr.Conflict, "subtask order broken at position %d (index %d)", i, sub.OrderIndex)
		}
	}
	return nil
}
