package query

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tarbeev/taskengine/internal/apperr"
	"github.com/tarbeev/taskengine/internal/model"
)

// ByUser scopes a query to one owner. Services prepend this predicate to
// every list so no spec can escape its caller's data.
func ByUser(userID uint) Predicate {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.user_id = ?", userID)
	}
}

// ByStatus matches one lifecycle state.
func ByStatus(status model.TaskStatus) Predicate {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.status = ?", status)
	}
}

// ByPriority matches one priority level.
func ByPriority(priority model.TaskPriority) Predicate {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.priority = ?", priority)
	}
}

// ByTags matches tasks holding all (AND) or any (OR) of the given tag ids,
// via a join-table subquery so the outer query needs no GROUP BY.
func ByTags(tagIDs []string, comb TagCombinator) Predicate {
	ids := make([]string, len(tagIDs))
	copy(ids, tagIDs)
	return func(db *gorm.DB) *gorm.DB {
		sub := db.Session(&gorm.Session{NewDB: true}).
			Table("task_tags").
			Select("task_id").
			Where("tag_id IN ?", ids)
		if comb == CombinatorAnd {
			sub = sub.Group("task_id").Having("COUNT(DISTINCT tag_id) = ?", len(ids))
		}
		return db.Where("tasks.id IN (?)", sub)
	}
}

// byDue dispatches on the due filter kind.
func byDue(f DueFilter) (Predicate, error) {
	switch f.Kind {
	case DueBetween:
		if f.From.IsZero() && f.To.IsZero() {
			return nil, apperr.New(apperr.Validation, "due range needs at least one bound")
		}
		if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
			return nil, apperr.New(apperr.Validation, "due range start must precede end")
		}
		return DueWithin(f.From, f.To), nil
	case DueOverdue:
		if f.Reference.IsZero() {
			return nil, apperr.New(apperr.Validation, "overdue filter needs a reference instant")
		}
		return OverdueAt(f.Reference), nil
	case DueNone:
		return NoDueDate(), nil
	default:
		return nil, apperr.New(apperr.Validation, "unknown due filter kind %q", f.Kind)
	}
}

// DueWithin matches due dates in the half-open [from, to) interval. A zero
// bound leaves that side open.
func DueWithin(from, to time.Time) Predicate {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("tasks.due_date IS NOT NULL")
		if !from.IsZero() {
			db = db.Where("tasks.due_date >= ?", from)
		}
		if !to.IsZero() {
			db = db.Where("tasks.due_date < ?", to)
		}
		return db
	}
}

// OverdueAt matches tasks due strictly before reference that are not
// completed. Completion clears overdue status regardless of the due date.
func OverdueAt(reference time.Time) Predicate {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.due_date IS NOT NULL AND tasks.due_date < ? AND tasks.status <> ?",
			reference, model.StatusCompleted)
	}
}

// NoDueDate matches tasks without a due date.
func NoDueDate() Predicate {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.due_date IS NULL")
	}
}

// ByText matches a case-insensitive substring over title, description and
// notes. LIKE wildcards in the needle are escaped so they match literally.
func ByText(text string) Predicate {
	needle := "%" + escapeLike(strings.ToLower(text)) + "%"
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"LOWER(tasks.title) LIKE ? ESCAPE '\\' OR LOWER(tasks.description) LIKE ? ESCAPE '\\' OR LOWER(tasks.notes) LIKE ? ESCAPE '\\'",
			needle, needle, needle)
	}
}

// IncludeDeleted lifts the default soft-delete scope so trashed tasks are
// visible to the query.
func IncludeDeleted() Predicate {
	return func(db *gorm.DB) *gorm.DB {
		return db.Unscoped()
	}
}

// OnlyDeleted matches only trashed tasks; used by the trash view and the
// purge job. Implies IncludeDeleted.
func OnlyDeleted() Predicate {
	return func(db *gorm.DB) *gorm.DB {
		return db.Unscoped().Where("tasks.deleted_at IS NOT NULL")
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
