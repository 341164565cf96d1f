package service

import (
	"context"
	"testing"
	"time"

	"github.com/tarbeev/taskengine/internal/apperr"
	"github.com/tarbeev/taskengine/internal/model"
)

func TestSetRecurrenceValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := utc(2025, time.January, 6)
	task := env.seedTask(t, nil)

	tests := []struct {
		name string
		spec PatternSpec
	}{
		{"zero interval", PatternSpec{Frequency: model.FreqDaily}},
		{"weekly without days", PatternSpec{Frequency: model.FreqWeekly, Interval: 1}},
		{"monthly without day", PatternSpec{Frequency: model.FreqMonthly, Interval: 1}},
		{"monthly day out of range", PatternSpec{Frequency: model.FreqMonthly, Interval: 1, DayOfMonth: 32}},
		{"custom without unit", PatternSpec{Frequency: model.FreqCustom, Interval: 1}},
		{"unknown frequency", PatternSpec{Frequency: "hourly", Interval: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.recurSvc.Set(ctx, testUser, task.ID, tt.spec, now); !apperr.Is(err, apperr.Validation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestSetRecurrenceComputesInitialOccurrence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := utc(2025, time.January, 1)

	// Due Monday 2025-01-06; weekly Mon/Wed/Fri → next is Wednesday.
	task := env.seedTask(t, func(task *model.Task) { task.DueDate = timePtr(utc(2025, time.January, 6)) })
	pattern, err := env.recurSvc.Set(ctx, testUser, task.ID, PatternSpec{
		Frequency:  model.FreqWeekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
	}, now)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if pattern.NextOccurrence == nil || !pattern.NextOccurrence.Equal(utc(2025, time.January, 8)) {
		t.Errorf("next occurrence = %v, want 2025-01-08", pattern.NextOccurrence)
	}
	if pattern.TaskID != task.ID {
		t.Errorf("pattern owner = %s, want %s", pattern.TaskID, task.ID)
	}

	// Setting again replaces the rule, keeping one pattern per task.
	replaced, err := env.recurSvc.Set(ctx, testUser, task.ID, PatternSpec{Frequency: model.FreqDaily, Interval: 2}, now)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if replaced.ID != pattern.ID {
		t.Errorf("replacement created a second pattern row")
	}
	if replaced.NextOccurrence == nil || !replaced.NextOccurrence.Equal(utc(2025, time.January, 8)) {
		t.Errorf("daily next = %v, want due date + 2 days", replaced.NextOccurrence)
	}
}

func TestSetRecurrenceRejectsExhaustedPattern(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task := env.seedTask(t, func(task *model.Task) { task.DueDate = timePtr(utc(2025, time.June, 1)) })

	end := utc(2025, time.June, 2)
	_, err := env.recurSvc.Set(ctx, testUser, task.ID, PatternSpec{
		Frequency: model.FreqDaily,
		Interval:  5,
		EndDate:   &end,
	}, utc(2025, time.June, 1))
	if !apperr.Is(err, apperr.Validation) {
		t.Errorf("pattern with no reachable occurrence should fail, got %v", err)
	}
}

func TestPreviewOccurrences(t *testing.T) {
	env := newTestEnv(t)

	spec := PatternSpec{
		Frequency:  model.FreqWeekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
	}
	// Reference Monday 2025-01-06.
	dates, err := env.recurSvc.Preview(spec, utc(2025, time.January, 6), 4)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	want := []time.Time{
		utc(2025, time.January, 8),
		utc(2025, time.January, 10),
		utc(2025, time.January, 13),
		utc(2025, time.January, 15),
	}
	if len(dates) != len(want) {
		t.Fatalf("got %d dates, want %d", len(dates), len(want))
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Errorf("dates[%d] = %v, want %v", i, dates[i], want[i])
		}
	}

	// An end date cuts the preview short.
	end := utc(2025, time.January, 11)
	spec.EndDate = &end
	dates, err = env.recurSvc.Preview(spec, utc(2025, time.January, 6), 10)
	if err != nil {
		t.Fatalf("preview with end: %v", err)
	}
	if len(dates) != 2 {
		t.Errorf("got %d dates before end date, want 2", len(dates))
	}

	if _, err := env.recurSvc.Preview(spec, utc(2025, time.January, 6), 0); !apperr.Is(err, apperr.Validation) {
		t.Errorf("zero count should fail validation, got %v", err)
	}
	if _, err := env.recurSvc.Preview(spec, utc(2025, time.January, 6), MaxPreviewCount+1); !apperr.Is(err, apperr.Validation) {
		t.Errorf("oversized count should fail validation, got %v", err)
	}
}

func TestCompletionGeneratesNextInstance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := utc(2025, time.January, 6) // Monday

	work := env.seedTag(t, "work")
	task := env.seedTask(t, func(task *model.Task) {
		task.Title = "weekly report"
		task.Notes = "ask finance for numbers"
		task.Priority = model.PriorityHigh
		task.DueDate = timePtr(utc(2025, time.January, 6))
		task.Tags = []model.Tag{*work}
		task.Subtasks = []model.Subtask{
			{ID: "r1", TaskID: task.ID, Description: "collect data", OrderIndex: 0, IsCompleted: true},
			{ID: "r2", TaskID: task.ID, Description: "write summary", OrderIndex: 1},
		}
	})
	if _, err := env.recurSvc.Set(ctx, testUser, task.ID, PatternSpec{
		Frequency:  model.FreqWeekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
	}, now); err != nil {
		t.Fatalf("set pattern: %v", err)
	}

	result, err := env.taskSvc.ToggleCompletion(ctx, testUser, task.ID, now)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	gen := result.GeneratedInstance
	if gen == nil {
		t.Fatal("no instance generated")
	}
	if gen.ID == task.ID {
		t.Fatal("generated instance mutated the completed task instead of creating a new one")
	}
	if gen.DueDate == nil || !gen.DueDate.Equal(utc(2025, time.January, 8)) {
		t.Errorf("instance due = %v, want Wednesday 2025-01-08", gen.DueDate)
	}

	reloaded, err := env.tasks.Get(ctx, testUser, gen.ID)
	if err != nil {
		t.Fatalf("reload instance: %v", err)
	}
	if reloaded.Title != "weekly report" || reloaded.Priority != model.PriorityHigh {
		t.Errorf("instance did not copy title/priority: %+v", reloaded)
	}
	if reloaded.Notes != "" {
		t.Errorf("notes copied to the fresh instance: %q", reloaded.Notes)
	}
	if len(reloaded.Subtasks) != 2 {
		t.Fatalf("instance has %d subtasks, want 2", len(reloaded.Subtasks))
	}
	for _, sub := range reloaded.Subtasks {
		if sub.IsCompleted {
			t.Errorf("subtask %q kept completion on the new instance", sub.Description)
		}
		if sub.ID == "r1" || sub.ID == "r2" {
			t.Errorf("subtask %s shared between generations", sub.ID)
		}
	}
	if len(reloaded.Tags) != 1 || reloaded.Tags[0].ID != work.ID {
		t.Errorf("tags not carried to the instance: %+v", reloaded.Tags)
	}

	// The pattern moved to the new head.
	pattern, err := env.tasks.PatternByTaskID(ctx, gen.ID)
	if err != nil {
		t.Fatalf("pattern by new head: %v", err)
	}
	if pattern.NextOccurrence == nil || !pattern.NextOccurrence.Equal(utc(2025, time.January, 8)) {
		t.Errorf("pattern next = %v", pattern.NextOccurrence)
	}
	if _, err := env.tasks.PatternByTaskID(ctx, task.ID); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("completed task still owns the pattern")
	}

	// Reopening and re-completing the old head must not generate again:
	// the pattern no longer points at it.
	if _, err := env.taskSvc.ToggleCompletion(ctx, testUser, task.ID, now); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	again, err := env.taskSvc.ToggleCompletion(ctx, testUser, task.ID, now)
	if err != nil {
		t.Fatalf("re-complete: %v", err)
	}
	if again.GeneratedInstance != nil {
		t.Errorf("re-completing the old head generated a second instance")
	}
}

func TestCompletionPastEndDateTerminatesLineage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := utc(2025, time.January, 6)

	task := env.seedTask(t, func(task *model.Task) { task.DueDate = timePtr(utc(2025, time.January, 6)) })
	end := utc(2025, time.January, 8)
	if _, err := env.recurSvc.Set(ctx, testUser, task.ID, PatternSpec{
		Frequency: model.FreqDaily,
		Interval:  1,
		EndDate:   &end,
	}, now); err != nil {
		t.Fatalf("set pattern: %v", err)
	}

	// First completion: Jan 7 is before the end date, so it generates.
	result, err := env.taskSvc.ToggleCompletion(ctx, testUser, task.ID, now)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	gen := result.GeneratedInstance
	if gen == nil || !gen.DueDate.Equal(utc(2025, time.January, 7)) {
		t.Fatalf("expected instance due Jan 7, got %+v", gen)
	}

	// Completing the new head computes Jan 8, which hits the end date:
	// the lineage terminates with no further instance.
	result, err = env.taskSvc.ToggleCompletion(ctx, testUser, gen.ID, now)
	if err != nil {
		t.Fatalf("toggle head: %v", err)
	}
	if result.GeneratedInstance != nil {
		t.Errorf("instance generated past the end date")
	}
	pattern, err := env.tasks.PatternByTaskID(ctx, gen.ID)
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	if pattern.NextOccurrence != nil {
		t.Errorf("terminated lineage still has next occurrence %v", pattern.NextOccurrence)
	}
}

func TestGenerationRaceProducesExactlyOneInstance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := utc(2025, time.January, 6)

	task := env.seedTask(t, func(task *model.Task) { task.DueDate = timePtr(utc(2025, time.January, 6)) })
	if _, err := env.recurSvc.Set(ctx, testUser, task.ID, PatternSpec{Frequency: model.FreqDaily, Interval: 1}, now); err != nil {
		t.Fatalf("set pattern: %v", err)
	}
	pattern, err := env.tasks.PatternByTaskID(ctx, task.ID)
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	expected := *pattern.NextOccurrence
	next := utc(2025, time.January, 7)

	// Two requests read the same pattern state and race the conditional
	// reassignment; only the first write may win.
	won, err := env.tasks.ReassignPattern(ctx, pattern.ID, task.ID, expected, "winner-task", &next)
	if err != nil {
		t.Fatalf("first reassign: %v", err)
	}
	if !won {
		t.Fatal("first conditional write should win")
	}
	won, err = env.tasks.ReassignPattern(ctx, pattern.ID, task.ID, expected, "loser-task", &next)
	if err != nil {
		t.Fatalf("second reassign: %v", err)
	}
	if won {
		t.Fatal("second conditional write must lose")
	}

	current, err := env.tasks.GetPattern(ctx, pattern.ID)
	if err != nil {
		t.Fatalf("get pattern: %v", err)
	}
	if current.TaskID != "winner-task" {
		t.Errorf("pattern owner = %s, want the winner", current.TaskID)
	}
}

func TestRemoveRecurrence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := utc(2025, time.January, 6)

	task := env.seedTask(t, nil)
	if _, err := env.recurSvc.Set(ctx, testUser, task.ID, PatternSpec{Frequency: model.FreqDaily, Interval: 1}, now); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := env.recurSvc.Remove(ctx, testUser, task.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := env.tasks.PatternByTaskID(ctx, task.ID); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("pattern survived removal")
	}
	if err := env.recurSvc.Remove(ctx, testUser, task.ID); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("second removal should be not-found, got %v", err)
	}
}
