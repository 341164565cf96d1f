package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tarbeev/taskengine/internal/apperr"
	"github.com/tarbeev/taskengine/internal/model"
	"github.com/tarbeev/taskengine/internal/query"
	"github.com/tarbeev/taskengine/internal/recurrence"
	"github.com/tarbeev/taskengine/internal/repository"
)

// MaxBatchSize bounds bulk operations; larger batches fail outright so a
// batch either applies completely or not at all.
const MaxBatchSize = 50

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title       string
	Description string
	Notes       string
	Priority    model.TaskPriority
	DueDate     *time.Time
	TagNames    []string
	Subtasks    []string
}

// TaskUpdate carries field changes for an existing task. Nil pointers leave
// the field untouched; ClearDueDate removes the due date.
type TaskUpdate struct {
	Title        *string
	Description  *string
	Notes        *string
	Priority     *model.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
	ManualOrder  *int
}

// ToggleResult reports everything a completion toggle changed: the entity
// toggled, the parent it cascaded into (subtask toggles only) and the new
// instance generated for a recurring task, when any.
type ToggleResult struct {
	Task              *model.Task
	Subtask           *model.Subtask
	CascadedParent    *model.Task
	GeneratedInstance *model.Task
}

// TaskService wraps task listing, creation and completion business logic.
type TaskService struct {
	tasks *repository.TaskRepository
	tags  *repository.TagRepository
}

func NewTaskService(tasks *repository.TaskRepository, tags *repository.TagRepository) *TaskService {
	return &TaskService{tasks: tasks, tags: tags}
}

// List runs a query spec for one user and returns a page of results. Total
// is counted before pagination, so it never depends on page or limit.
func (s *TaskService) List(ctx context.Context, userID uint, spec query.Spec) (query.Page, error) {
	preds, err := spec.Predicates()
	if err != nil {
		return query.Page{}, err
	}
	preds = append([]query.Predicate{query.ByUser(userID)}, preds...)

	order, err := query.OrderClause(spec.Sort)
	if err != nil {
		return query.Page{}, err
	}
	page, limit, err := query.NormalizePage(spec.Page, spec.Limit)
	if err != nil {
		return query.Page{}, err
	}

	tasks, total, err := s.tasks.Find(ctx, preds, order, page, limit)
	if err != nil {
		return query.Page{}, err
	}

	items := make([]query.Item, len(tasks))
	for i, t := range tasks {
		items[i] = query.Item{Task: t}
		if spec.Text != "" {
			items[i].Matches = query.Matches(t, spec.Text)
		}
	}
	return query.NewPage(items, total, page, limit), nil
}

// Trash lists the user's soft-deleted tasks, newest deletion first.
func (s *TaskService) Trash(ctx context.Context, userID uint, page, limit int) (query.Page, error) {
	page, limit, err := query.NormalizePage(page, limit)
	if err != nil {
		return query.Page{}, err
	}
	preds := []query.Predicate{query.ByUser(userID), query.OnlyDeleted()}
	tasks, total, err := s.tasks.Find(ctx, preds, "tasks.deleted_at DESC, tasks.id ASC", page, limit)
	if err != nil {
		return query.Page{}, err
	}
	items := make([]query.Item, len(tasks))
	for i, t := range tasks {
		items[i] = query.Item{Task: t}
	}
	return query.NewPage(items, total, page, limit), nil
}

// Create validates input and persists a new task with its tags and seeded
// subtasks in one transaction.
func (s *TaskService) Create(ctx context.Context, userID uint, input TaskInput) (*model.Task, error) {
	if input.Title == "" {
		return nil, apperr.New(apperr.Validation, "title is required")
	}
	if len(input.TagNames) > model.MaxTagsPerTask {
		return nil, apperr.New(apperr.Validation, "at most %d tags per task", model.MaxTagsPerTask)
	}
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return nil, apperr.New(apperr.Validation, "unknown priority %q", priority)
	}

	var tags []model.Tag
	for _, name := range input.TagNames {
		tag, err := s.tags.GetOrCreate(ctx, userID, name)
		if err != nil {
			return nil, err
		}
		if tag != nil {
			tags = append(tags, *tag)
		}
	}

	task := &model.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       input.Title,
		Description: input.Description,
		Notes:       input.Notes,
		Status:      model.StatusPending,
		Priority:    priority,
		DueDate:     input.DueDate,
		Tags:        tags,
	}
	for i, desc := range input.Subtasks {
		task.Subtasks = append(task.Subtasks, model.Subtask{
			ID:          uuid.NewString(),
			TaskID:      task.ID,
			Description: desc,
			OrderIndex:  i,
		})
	}

	err := s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		return tx.Insert(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Update applies field-level changes to an existing task.
func (s *TaskService) Update(ctx context.Context, userID uint, taskID string, update TaskUpdate) (*model.Task, error) {
	if update.Title != nil && *update.Title == "" {
		return nil, apperr.New(apperr.Validation, "title cannot be empty")
	}
	if update.Priority != nil && !model.ValidPriority(*update.Priority) {
		return nil, apperr.New(apperr.Validation, "unknown priority %q", *update.Priority)
	}
	if update.DueDate != nil && update.ClearDueDate {
		return nil, apperr.New(apperr.Validation, "cannot set and clear the due date at once")
	}

	var task *model.Task
	err := s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		var err error
		task, err = tx.Get(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if update.Title != nil {
			task.Title = *update.Title
		}
		if update.Description != nil {
			task.Description = *update.Description
		}
		if update.Notes != nil {
			task.Notes = *update.Notes
		}
		if update.Priority != nil {
			task.Priority = *update.Priority
		}
		if update.DueDate != nil {
			task.DueDate = update.DueDate
		}
		if update.ClearDueDate {
			task.DueDate = nil
		}
		if update.ManualOrder != nil {
			task.ManualOrder = update.ManualOrder
		}
		return tx.Save(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// SetStatus applies a manual status change. Reopening a completed task
// never resets its subtasks: subtask state is ground truth for granular
// progress, the parent status is only a summary on top of it.
func (s *TaskService) SetStatus(ctx context.Context, userID uint, taskID string, status model.TaskStatus, now time.Time) (*model.Task, error) {
	if !model.ValidStatus(status) {
		return nil, apperr.New(apperr.Validation, "unknown status %q", status)
	}
	var task *model.Task
	err := s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		var err error
		task, err = tx.Get(ctx, userID, taskID)
		if err != nil {
			return err
		}
		applyStatus(task, status, now)
		return tx.Save(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ToggleCompletion flips a task between completed and pending. Completing
// the head of a recurrence lineage also generates the next instance inside
// the same transaction.
func (s *TaskService) ToggleCompletion(ctx context.Context, userID uint, taskID string, now time.Time) (ToggleResult, error) {
	var result ToggleResult
	err := s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		var err error
		result, err = toggleTask(ctx, tx, userID, taskID, now)
		return err
	})
	return result, err
}

// BulkToggle toggles up to MaxBatchSize tasks in one transaction: either
// every task in the batch moves, or none does.
func (s *TaskService) BulkToggle(ctx context.Context, userID uint, taskIDs []string, now time.Time) ([]ToggleResult, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	if len(taskIDs) > MaxBatchSize {
		return nil, apperr.New(apperr.Validation, "batch of %d exceeds the limit of %d", len(taskIDs), MaxBatchSize)
	}
	var results []ToggleResult
	err := s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		results = results[:0]
		for _, id := range taskIDs {
			res, err := toggleTask(ctx, tx, userID, id, now)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ToggleSubtask flips one subtask and cascades: when the flip brings the
// parent's completion ratio to 1.0 and the parent is not yet completed, the
// parent auto-completes, which in turn may generate the next recurring
// instance.
func (s *TaskService) ToggleSubtask(ctx context.Context, userID uint, subtaskID string, now time.Time) (ToggleResult, error) {
	var result ToggleResult
	err := s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		sub, parent, err := tx.GetSubtask(ctx, userID, subtaskID)
		if err != nil {
			return err
		}
		sub.IsCompleted = !sub.IsCompleted
		if err := tx.SaveSubtask(ctx, sub); err != nil {
			return err
		}
		result.Subtask = sub

		completed, total, err := tx.SubtaskCounts(ctx, parent.ID)
		if err != nil {
			return err
		}
		if total > 0 && completed == total && !parent.Completed() {
			applyStatus(parent, model.StatusCompleted, now)
			if err := tx.Save(ctx, parent); err != nil {
				return err
			}
			result.CascadedParent = parent
			generated, err := generateNextInstance(ctx, tx, parent, now)
			if err != nil {
				return err
			}
			result.GeneratedInstance = generated
		}
		result.Task = parent
		return nil
	})
	return result, err
}

// toggleTask is the transactional body shared by single and bulk toggles.
func toggleTask(ctx context.Context, tx *repository.TaskRepository, userID uint, taskID string, now time.Time) (ToggleResult, error) {
	var result ToggleResult
	task, err := tx.Get(ctx, userID, taskID)
	if err != nil {
		return result, err
	}

	if task.Completed() {
		applyStatus(task, model.StatusPending, now)
		if err := tx.Save(ctx, task); err != nil {
			return result, err
		}
		result.Task = task
		return result, nil
	}

	applyStatus(task, model.StatusCompleted, now)
	if err := tx.Save(ctx, task); err != nil {
		return result, err
	}
	result.Task = task

	generated, err := generateNextInstance(ctx, tx, task, now)
	if err != nil {
		return result, err
	}
	result.GeneratedInstance = generated
	return result, nil
}

// applyStatus keeps CompletedAt in lockstep with Status.
func applyStatus(task *model.Task, status model.TaskStatus, now time.Time) {
	task.Status = status
	if status == model.StatusCompleted {
		completedAt := now
		task.CompletedAt = &completedAt
	} else {
		task.CompletedAt = nil
	}
}

// generateNextInstance creates the next task of a recurrence lineage after
// completed finished. The pattern reassignment is a conditional write keyed
// on the pattern still pointing at the completed task with the expected
// next occurrence; losing that write means a concurrent toggle already
// generated the instance, so the loser returns the winner's task instead of
// an error.
func generateNextInstance(ctx context.Context, tx *repository.TaskRepository, completed *model.Task, now time.Time) (*model.Task, error) {
	if !completed.Completed() {
		return nil, apperr.New(apperr.State, "task %s is not completed", completed.ID)
	}

	pattern, err := tx.PatternByTaskID(ctx, completed.ID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, nil // not a recurring task
		}
		return nil, err
	}
	if pattern.NextOccurrence == nil {
		return nil, nil // lineage already terminated
	}

	reference := now
	if completed.DueDate != nil {
		reference = *completed.DueDate
	}

	next, ok := recurrence.NextOccurrence(*pattern, reference)
	if !ok {
		// Past the end date: terminate the lineage, generate nothing.
		if _, err := tx.TerminatePattern(ctx, pattern.ID, completed.ID, *pattern.NextOccurrence); err != nil {
			return nil, err
		}
		return nil, nil
	}

	instance := cloneForNextOccurrence(completed, next)
	won, err := tx.ReassignPattern(ctx, pattern.ID, completed.ID, *pattern.NextOccurrence, instance.ID, &next)
	if err != nil {
		return nil, err
	}
	if !won {
		// Another request moved the pattern first; hand back its result.
		current, err := tx.GetPattern(ctx, pattern.ID)
		if err != nil {
			return nil, err
		}
		winner, err := tx.Get(ctx, completed.UserID, current.TaskID)
		if err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return nil, nil
			}
			return nil, err
		}
		return winner, nil
	}

	if err := tx.Insert(ctx, instance); err != nil {
		return nil, err
	}
	return instance, nil
}

// cloneForNextOccurrence builds the fresh instance: same title,
// description, priority and tags, subtasks deep-copied with completion
// reset, notes deliberately dropped, due date set to the occurrence.
func cloneForNextOccurrence(src *model.Task, due time.Time) *model.Task {
	instance := &model.Task{
		ID:          uuid.NewString(),
		UserID:      src.UserID,
		Title:       src.Title,
		Description: src.Description,
		Status:      model.StatusPending,
		Priority:    src.Priority,
		DueDate:     &due,
		Tags:        append([]model.Tag(nil), src.Tags...),
	}
	for _, sub := range src.Subtasks {
		instance.Subtasks = append(instance.Subtasks, model.Subtask{
			ID:          uuid.NewString(),
			TaskID:      instance.ID,
			Description: sub.Description,
			IsCompleted: false,
			OrderIndex:  sub.OrderIndex,
		})
	}
	return instance
}
