package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tarbeev/taskengine/internal/model"
	"github.com/tarbeev/taskengine/internal/repository"
)

const testUser uint = 1

// newTestEnv opens a fresh in-memory database per test and wires the
// services the way cmd/taskengine does.
type testEnv struct {
	db        *gorm.DB
	tasks     *repository.TaskRepository
	tags      *repository.TagRepository
	taskSvc   *TaskService
	subSvc    *SubtaskService
	recurSvc  *RecurrenceService
	lifecycle *LifecycleService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := repository.NewDB(dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	taskRepo := repository.NewTaskRepository(db)
	tagRepo := repository.NewTagRepository(db)
	return &testEnv{
		db:        db,
		tasks:     taskRepo,
		tags:      tagRepo,
		taskSvc:   NewTaskService(taskRepo, tagRepo),
		subSvc:    NewSubtaskService(taskRepo),
		recurSvc:  NewRecurrenceService(taskRepo),
		lifecycle: NewLifecycleService(taskRepo),
	}
}

// seedTask inserts a task directly, bypassing service validation, so tests
// can shape exact fixtures.
func (e *testEnv) seedTask(t *testing.T, mutate func(*model.Task)) *model.Task {
	t.Helper()
	task := &model.Task{
		ID:       uuid.NewString(),
		UserID:   testUser,
		Title:    "fixture",
		Status:   model.StatusPending,
		Priority: model.PriorityMedium,
	}
	if mutate != nil {
		mutate(task)
	}
	if err := e.tasks.Insert(context.Background(), task); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task
}

func (e *testEnv) seedTag(t *testing.T, name string) *model.Tag {
	t.Helper()
	tag, err := e.tags.GetOrCreate(context.Background(), testUser, name)
	if err != nil {
		t.Fatalf("seed tag %q: %v", name, err)
	}
	return tag
}

func timePtr(v time.Time) *time.Time { return &v }

func utc(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
