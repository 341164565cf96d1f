package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tarbeev/taskengine/internal/apperr"
	"github.com/tarbeev/taskengine/internal/model"
	"github.com/tarbeev/taskengine/internal/recurrence"
	"github.com/tarbeev/taskengine/internal/repository"
)

// MaxPreviewCount bounds occurrence previews.
const MaxPreviewCount = 100

// PatternSpec is the caller's description of a recurrence rule.
type PatternSpec struct {
	Frequency  model.Frequency
	Interval   int
	DaysOfWeek []time.Weekday
	DayOfMonth int
	Unit       model.IntervalUnit
	EndDate    *time.Time
}

// RecurrenceService attaches recurrence rules to tasks and previews their
// schedules.
type RecurrenceService struct {
	tasks *repository.TaskRepository
}

func NewRecurrenceService(tasks *repository.TaskRepository) *RecurrenceService {
	return &RecurrenceService{tasks: tasks}
}

// Set attaches (or replaces) the recurrence pattern on a task. The initial
// next occurrence is computed from the task's due date, falling back to now
// when it has none.
func (s *RecurrenceService) Set(ctx context.Context, userID uint, taskID string, spec PatternSpec, now time.Time) (*model.RecurrencePattern, error) {
	if err := validatePatternSpec(spec); err != nil {
		return nil, err
	}

	var pattern *model.RecurrencePattern
	err := s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		task, err := tx.Get(ctx, userID, taskID)
		if err != nil {
			return err
		}

		pattern = specToPattern(spec)
		pattern.TaskID = task.ID

		reference := now
		if task.DueDate != nil {
			reference = *task.DueDate
		}
		next, ok := recurrence.NextOccurrence(*pattern, reference)
		if !ok {
			return apperr.New(apperr.Validation, "pattern never produces an occurrence after %s", reference.Format(time.RFC3339))
		}
		pattern.NextOccurrence = &next

		// One pattern per task: replace any rule already attached.
		if existing, err := tx.PatternByTaskID(ctx, task.ID); err == nil {
			pattern.ID = existing.ID
			pattern.CreatedAt = existing.CreatedAt
		} else if !apperr.Is(err, apperr.NotFound) {
			return err
		}
		return tx.SavePattern(ctx, pattern)
	})
	if err != nil {
		return nil, err
	}
	return pattern, nil
}

// Remove detaches the recurrence pattern from a task, ending the lineage.
func (s *RecurrenceService) Remove(ctx context.Context, userID uint, taskID string) error {
	return s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		if _, err := tx.Get(ctx, userID, taskID); err != nil {
			return err
		}
		pattern, err := tx.PatternByTaskID(ctx, taskID)
		if err != nil {
			return err
		}
		return tx.DeletePattern(ctx, pattern.ID)
	})
}

// Preview computes up to count occurrences after reference without touching
// storage; the UI uses it to show the schedule before saving.
func (s *RecurrenceService) Preview(spec PatternSpec, reference time.Time, count int) ([]time.Time, error) {
	if err := validatePatternSpec(spec); err != nil {
		return nil, err
	}
	if count < 1 || count > MaxPreviewCount {
		return nil, apperr.New(apperr.Validation, "count must be in [1,%d], got %d", MaxPreviewCount, count)
	}

	pattern := specToPattern(spec)
	var dates []time.Time
	cursor := reference
	for len(dates) < count {
		next, ok := recurrence.NextOccurrence(*pattern, cursor)
		if !ok {
			break
		}
		dates = append(dates, next)
		cursor = next
	}
	return dates, nil
}

func specToPattern(spec PatternSpec) *model.RecurrencePattern {
	return &model.RecurrencePattern{
		ID:         uuid.NewString(),
		Frequency:  spec.Frequency,
		Interval:   spec.Interval,
		DaysOfWeek: model.WeekdayCSV(spec.DaysOfWeek),
		DayOfMonth: spec.DayOfMonth,
		Unit:       spec.Unit,
		EndDate:    spec.EndDate,
	}
}

// validatePatternSpec checks the fields each frequency requires.
func validatePatternSpec(spec PatternSpec) error {
	if spec.Interval < 1 {
		return apperr.New(apperr.Validation, "interval must be positive, got %d", spec.Interval)
	}
	switch spec.Frequency {
	case model.FreqDaily:
	case model.FreqWeekly:
		if len(spec.DaysOfWeek) == 0 {
			return apperr.New(apperr.Validation, "weekly pattern needs days of week")
		}
		for _, d := range spec.DaysOfWeek {
			if d < time.Sunday || d > time.Saturday {
				return apperr.New(apperr.Validation, "invalid weekday %d", d)
			}
		}
	case model.FreqMonthly:
		if spec.DayOfMonth < 1 || spec.DayOfMonth > 31 {
			return apperr.New(apperr.Validation, "monthly pattern needs day of month in [1,31], got %d", spec.DayOfMonth)
		}
	case model.FreqCustom:
		switch spec.Unit {
		case model.UnitDay, model.UnitWeek:
		case model.UnitMonth:
			if spec.DayOfMonth < 0 || spec.DayOfMonth > 31 {
				return apperr.New(apperr.Validation, "day of month out of range: %d", spec.DayOfMonth)
			}
		default:
			return apperr.New(apperr.Validation, "custom pattern needs a unit (day, week or month)")
		}
	default:
		return apperr.New(apperr.Validation, "unknown frequency %q", spec.Frequency)
	}
	return nil
}
