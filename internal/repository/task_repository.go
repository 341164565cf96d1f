package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tarbeev/taskengine/internal/apperr"
	"github.com/tarbeev/taskengine/internal/model"
	"github.com/tarbeev/taskengine/internal/query"
)

// TaskRepository is the persistence collaborator for tasks, subtasks and
// recurrence patterns. Mutating engine operations run inside Transaction so
// a failure mid-operation leaves no partial state.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Transaction runs fn against a repository bound to one database
// transaction, committing on nil and rolling back on error or panic.
func (r *TaskRepository) Transaction(ctx context.Context, fn func(tx *TaskRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&TaskRepository{db: tx})
	})
}

// Find applies the predicate list, counts the full result, then fetches one
// page in the given order. The count is taken before pagination so Total is
// independent of page and limit.
func (r *TaskRepository) Find(ctx context.Context, preds []query.Predicate, order string, page, limit int) ([]model.Task, int64, error) {
	scoped := func(db *gorm.DB) *gorm.DB {
		db = db.Model(&model.Task{})
		for _, p := range preds {
			db = p(db)
		}
		return db
	}

	var total int64
	if err := scoped(r.db.WithContext(ctx)).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	var tasks []model.Task
	err := scoped(r.db.WithContext(ctx)).
		Preload("Subtasks", func(db *gorm.DB) *gorm.DB { return db.Order("order_index ASC") }).
		Preload("Tags").
		Order(order).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("find tasks: %w", err)
	}
	return tasks, total, nil
}

// Get loads a task owned by the given user, excluding trashed tasks.
func (r *TaskRepository) Get(ctx context.Context, userID uint, taskID string) (*model.Task, error) {
	return r.get(ctx, userID, taskID, false)
}

// GetAny loads a task owned by the given user, trashed or not.
func (r *TaskRepository) GetAny(ctx context.Context, userID uint, taskID string) (*model.Task, error) {
	return r.get(ctx, userID, taskID, true)
}

func (r *TaskRepository) get(ctx context.Context, userID uint, taskID string, includeDeleted bool) (*model.Task, error) {
	db := r.db.WithContext(ctx)
	if includeDeleted {
		db = db.Unscoped()
	}
	var task model.Task
	err := db.
		Preload("Subtasks", func(db *gorm.DB) *gorm.DB { return db.Order("order_index ASC") }).
		Preload("Tags").
		Where("user_id = ? AND id = ?", userID, taskID).
		First(&task).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.New(apperr.NotFound, "task %s", taskID)
	default:
		return nil, fmt.Errorf("find task: %w", err)
	}
}

// Insert persists a new task with its subtasks and tag links. Tag rows
// themselves are never touched here, only the join rows.
func (r *TaskRepository) Insert(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit("Tags.*").Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Save writes back a mutated task row. Associations are not touched.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit("Subtasks", "Tags").Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// GetSubtask loads a subtask together with its parent task, checking
// ownership through the parent.
func (r *TaskRepository) GetSubtask(ctx context.Context, userID uint, subtaskID string) (*model.Subtask, *model.Task, error) {
	var sub model.Subtask
	err := r.db.WithContext(ctx).Where("id = ?", subtaskID).First(&sub).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil, apperr.New(apperr.NotFound, "subtask %s", subtaskID)
	case err != nil:
		return nil, nil, fmt.Errorf("find subtask: %w", err)
	}
	task, err := r.Get(ctx, userID, sub.TaskID)
	if err != nil {
		return nil, nil, err
	}
	return &sub, task, nil
}

// SaveSubtask writes back a mutated subtask row.
func (r *TaskRepository) SaveSubtask(ctx context.Context, sub *model.Subtask) error {
	if err := r.db.WithContext(ctx).Save(sub).Error; err != nil {
		return fmt.Errorf("save subtask: %w", err)
	}
	return nil
}

// InsertSubtask persists a new subtask row.
func (r *TaskRepository) InsertSubtask(ctx context.Context, sub *model.Subtask) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("create subtask: %w", err)
	}
	return nil
}

// DeleteSubtask removes a subtask row permanently.
func (r *TaskRepository) DeleteSubtask(ctx context.Context, subtaskID string) error {
	if err := r.db.WithContext(ctx).Delete(&model.Subtask{}, "id = ?", subtaskID).Error; err != nil {
		return fmt.Errorf("delete subtask: %w", err)
	}
	return nil
}

// SubtaskCounts returns completed and total subtask counts for a task.
func (r *TaskRepository) SubtaskCounts(ctx context.Context, taskID string) (completed, total int64, err error) {
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.Subtask{}).Where("task_id = ?", taskID).Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("count subtasks: %w", err)
	}
	if err := db.Model(&model.Subtask{}).Where("task_id = ? AND is_completed = ?", taskID, true).Count(&completed).Error; err != nil {
		return 0, 0, fmt.Errorf("count completed subtasks: %w", err)
	}
	return completed, total, nil
}

// PatternByTaskID loads the recurrence pattern currently owned by a task.
func (r *TaskRepository) PatternByTaskID(ctx context.Context, taskID string) (*model.RecurrencePattern, error) {
	var p model.RecurrencePattern
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).First(&p).Error
	switch {
	case err == nil:
		return &p, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.New(apperr.NotFound, "pattern for task %s", taskID)
	default:
		return nil, fmt.Errorf("find pattern: %w", err)
	}
}

// GetPattern loads a recurrence pattern by id.
func (r *TaskRepository) GetPattern(ctx context.Context, patternID string) (*model.RecurrencePattern, error) {
	var p model.RecurrencePattern
	err := r.db.WithContext(ctx).Where("id = ?", patternID).First(&p).Error
	switch {
	case err == nil:
		return &p, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.New(apperr.NotFound, "pattern %s", patternID)
	default:
		return nil, fmt.Errorf("find pattern: %w", err)
	}
}

// SavePattern writes a recurrence pattern, inserting or replacing the row.
func (r *TaskRepository) SavePattern(ctx context.Context, p *model.RecurrencePattern) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("save pattern: %w", err)
	}
	return nil
}

// DeletePattern removes a pattern row.
func (r *TaskRepository) DeletePattern(ctx context.Context, patternID string) error {
	if err := r.db.WithContext(ctx).Delete(&model.RecurrencePattern{}, "id = ?", patternID).Error; err != nil {
		return fmt.Errorf("delete pattern: %w", err)
	}
	return nil
}

// ReassignPattern moves a pattern to a new head task with a conditional
// write: the update applies only while the pattern still points at
// fromTaskID with the expected next occurrence. It reports whether this
// caller won the write; a false return means another request already moved
// the pattern.
func (r *TaskRepository) ReassignPattern(ctx context.Context, patternID, fromTaskID string, expectedNext time.Time, toTaskID string, newNext *time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.RecurrencePattern{}).
		Where("id = ? AND task_id = ? AND next_occurrence = ?", patternID, fromTaskID, expectedNext).
		Updates(map[string]any{"task_id": toTaskID, "next_occurrence": newNext})
	if res.Error != nil {
		return false, fmt.Errorf("reassign pattern: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// TerminatePattern clears the pattern's next occurrence under the same
// conditional guard as ReassignPattern, ending the lineage.
func (r *TaskRepository) TerminatePattern(ctx context.Context, patternID, ownerTaskID string, expectedNext time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.RecurrencePattern{}).
		Where("id = ? AND task_id = ? AND next_occurrence = ?", patternID, ownerTaskID, expectedNext).
		Update("next_occurrence", nil)
	if res.Error != nil {
		return false, fmt.Errorf("terminate pattern: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// SoftDelete marks a task trashed. GORM's DeletedAt handles the timestamp.
func (r *TaskRepository) SoftDelete(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Delete(task).Error; err != nil {
		return fmt.Errorf("soft delete task: %w", err)
	}
	return nil
}

// Restore clears the trash marker on a task.
func (r *TaskRepository) Restore(ctx context.Context, taskID string) error {
	err := r.db.WithContext(ctx).Unscoped().
		Model(&model.Task{}).
		Where("id = ?", taskID).
		Update("deleted_at", nil).Error
	if err != nil {
		return fmt.Errorf("restore task: %w", err)
	}
	return nil
}

// HardDelete physically removes a task together with its subtasks, tag
// links and any pattern it still owns. Call inside Transaction.
func (r *TaskRepository) HardDelete(ctx context.Context, taskID string) error {
	db := r.db.WithContext(ctx)
	if err := db.Delete(&model.Subtask{}, "task_id = ?", taskID).Error; err != nil {
		return fmt.Errorf("delete subtasks: %w", err)
	}
	if err := db.Exec("DELETE FROM task_tags WHERE task_id = ?", taskID).Error; err != nil {
		return fmt.Errorf("delete tag links: %w", err)
	}
	if err := db.Delete(&model.RecurrencePattern{}, "task_id = ?", taskID).Error; err != nil {
		return fmt.Errorf("delete pattern: %w", err)
	}
	if err := db.Unscoped().Delete(&model.Task{}, "id = ?", taskID).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// TrashedBefore lists soft-deleted tasks whose deletion precedes cutoff,
// across all users. Used by the purge job.
func (r *TaskRepository) TrashedBefore(ctx context.Context, cutoff time.Time) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list trashed tasks: %w", err)
	}
	return tasks, nil
}
