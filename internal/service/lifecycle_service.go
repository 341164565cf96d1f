package service

import (
	"context"
	"time"

	"github.com/tarbeev/taskengine/internal/apperr"
	"github.com/tarbeev/taskengine/internal/model"
	"github.com/tarbeev/taskengine/internal/repository"
)

// LifecycleService manages the soft-delete lifecycle: trash, restore,
// permanent removal and expiry purge. Tasks are physically removed only
// here, never implicitly.
type LifecycleService struct {
	tasks *repository.TaskRepository
}

func NewLifecycleService(tasks *repository.TaskRepository) *LifecycleService {
	return &LifecycleService{tasks: tasks}
}

// SoftDelete moves a task to the trash. It disappears from default queries
// but stays retrievable via the trash view until restored or purged.
func (s *LifecycleService) SoftDelete(ctx context.Context, userID uint, taskID string) error {
	return s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		task, err := tx.Get(ctx, userID, taskID)
		if err != nil {
			return err
		}
		return tx.SoftDelete(ctx, task)
	})
}

// BulkSoftDelete trashes up to MaxBatchSize tasks in one transaction.
func (s *LifecycleService) BulkSoftDelete(ctx context.Context, userID uint, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	if len(taskIDs) > MaxBatchSize {
		return apperr.New(apperr.Validation, "batch of %d exceeds the limit of %d", len(taskIDs), MaxBatchSize)
	}
	return s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		for _, id := range taskIDs {
			task, err := tx.Get(ctx, userID, id)
			if err != nil {
				return err
			}
			if err := tx.SoftDelete(ctx, task); err != nil {
				return err
			}
		}
		return nil
	})
}

// Restore brings a trashed task back. Restoring a task that is not in the
// trash is a state error.
func (s *LifecycleService) Restore(ctx context.Context, userID uint, taskID string) (*model.Task, error) {
	var task *model.Task
	err := s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		var err error
		task, err = tx.GetAny(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if !task.Trashed() {
			return apperr.New(apperr.State, "task %s is not deleted", taskID)
		}
		if err := tx.Restore(ctx, taskID); err != nil {
			return err
		}
		task.DeletedAt.Valid = false
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// PermanentDelete physically removes a trashed task and cascades to its
// subtasks, tag links and pattern in one transaction. A task must be
// soft-deleted first; the guard protects against accidental hard deletes.
func (s *LifecycleService) PermanentDelete(ctx context.Context, userID uint, taskID string) error {
	return s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		task, err := tx.GetAny(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if !task.Trashed() {
			return apperr.New(apperr.State, "task %s is not soft-deleted", taskID)
		}
		return tx.HardDelete(ctx, task.ID)
	})
}

// PurgeExpired permanently deletes every task trashed before cutoff, for
// all users, and returns how many were removed. The cutoff comes from the
// scheduler collaborator; the engine keeps no clock of its own.
func (s *LifecycleService) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	purged := 0
	err := s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		expired, err := tx.TrashedBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		for _, task := range expired {
			if err := tx.HardDelete(ctx, task.ID); err != nil {
				return err
			}
			purged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}
