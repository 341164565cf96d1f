package query

import (
	"github.com/tarbeev/taskengine/internal/apperr"
)

// SortKey selects the primary ordering of a task listing.
type SortKey string

const (
	// SortDueDate orders by due date ascending, tasks without one last.
	SortDueDate SortKey = "due_date"
	// SortCreatedAt orders newest first.
	SortCreatedAt SortKey = "created_at"
	// SortManualOrder orders by the user-assigned position ascending,
	// unpositioned tasks last.
	SortManualOrder SortKey = "manual_order"
	// SortPriority orders high → medium → low, then by due date.
	SortPriority SortKey = "priority"
)

// OrderClause maps a sort key onto its SQL ORDER BY expression. Every
// ordering ends with `id ASC` so pagination stays reproducible when the
// primary key ties.
func OrderClause(key SortKey) (string, error) {
	switch key {
	case SortDueDate, "":
		return "tasks.due_date IS NULL, tasks.due_date ASC, tasks.id ASC", nil
	case SortCreatedAt:
		return "tasks.created_at DESC, tasks.id ASC", nil
	case SortManualOrder:
		return "tasks.manual_order IS NULL, tasks.manual_order ASC, tasks.id ASC", nil
	case SortPriority:
		return "CASE tasks.priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, " +
			"tasks.due_date IS NULL, tasks.due_date ASC, tasks.id ASC", nil
	default:
		return "", apperr.New(apperr.Validation, "unknown sort key %q", key)
	}
}
