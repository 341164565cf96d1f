package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/tarbeev/taskengine/internal/model"
	"github.com/tarbeev/taskengine/internal/query"
)

// SummaryService builds human-readable digests for daily notifications on
// top of the engine's own query API.
type SummaryService struct {
	taskSvc *TaskService
}

func NewSummaryService(taskSvc *TaskService) *SummaryService {
	return &SummaryService{taskSvc: taskSvc}
}

// DailySummary renders the user's overdue and due-today tasks as HTML for
// the Telegram transport.
func (s *SummaryService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	overdueDue := query.DueFilter{Kind: query.DueOverdue, Reference: now}
	overdue, err := s.taskSvc.List(ctx, user.ID, query.Spec{
		Due:   &overdueDue,
		Sort:  query.SortDueDate,
		Limit: query.MaxLimit,
	})
	if err != nil {
		return "", fmt.Errorf("list overdue: %w", err)
	}

	todayDue := query.Today(now)
	today, err := s.taskSvc.List(ctx, user.ID, query.Spec{
		Due:   &todayDue,
		Sort:  query.SortPriority,
		Limit: query.MaxLimit,
	})
	if err != nil {
		return "", fmt.Errorf("list due today: %w", err)
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily digest</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02.01.2006")))

	builder.WriteString("⚠️ <b>Overdue</b>\n")
	if len(overdue.Items) == 0 {
		builder.WriteString("— nothing overdue\n")
	} else {
		for _, item := range overdue.Items {
			builder.WriteString(formatSummaryLine(item.Task, now))
		}
		if overdue.HasNext {
			builder.WriteString(fmt.Sprintf("… and %d more\n", overdue.Total-int64(len(overdue.Items))))
		}
	}

	builder.WriteString("\n⏳ <b>Due today</b>\n")
	if len(today.Items) == 0 {
		builder.WriteString("— nothing due today\n")
	} else {
		for _, item := range today.Items {
			if item.Task.Completed() {
				continue
			}
			builder.WriteString(formatSummaryLine(item.Task, now))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatSummaryLine(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := priorityIcon(task.Priority)
	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(task.Title))))

	if len(task.Tags) > 0 {
		names := make([]string, 0, len(task.Tags))
		for _, tag := range task.Tags {
			names = append(names, html.EscapeString(tag.Name))
		}
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", strings.Join(names, ", ")))
	}

	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		if now.After(d) {
			sb.WriteString(fmt.Sprintf(" — due %s, <b>overdue</b>", d.Format("2006-01-02")))
		} else {
			sb.WriteString(fmt.Sprintf(" — due %s", d.Format("2006-01-02")))
		}
	}

	if total := len(task.Subtasks); total > 0 {
		done := 0
		for _, sub := range task.Subtasks {
			if sub.IsCompleted {
				done++
			}
		}
		sb.WriteString(fmt.Sprintf(" [%d/%d]", done, total))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func priorityIcon(p model.TaskPriority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityLow:
		return "⚪"
	default:
		return "🟡"
	}
}
