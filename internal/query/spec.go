// Package query turns a caller's query specification into composable GORM
// predicates plus a deterministic sort and pagination plan. Each filter
// criterion becomes one independent predicate; composition is plain
// conjunction, so every predicate stays unit-testable in isolation.
package query

import (
	"time"

	"gorm.io/gorm"

	"github.com/tarbeev/taskengine/internal/apperr"
	"github.com/tarbeev/taskengine/internal/model"
)

// Predicate narrows a task query by one criterion. Predicates are GORM
// scopes: they chain onto the statement and are ANDed together.
type Predicate func(*gorm.DB) *gorm.DB

// TagCombinator selects how multiple tag ids combine.
type TagCombinator string

const (
	CombinatorAnd TagCombinator = "and"
	CombinatorOr  TagCombinator = "or"
)

// DueKind selects the due-date criterion family.
type DueKind string

const (
	// DueBetween matches due dates inside the half-open [From, To)
	// interval. Either bound may be zero for an open end.
	DueBetween DueKind = "between"
	// DueOverdue matches tasks due before Reference that are not
	// completed. A completed task is never overdue.
	DueOverdue DueKind = "overdue"
	// DueNone matches tasks without a due date.
	DueNone DueKind = "none"
)

// DueFilter is a resolved due-date criterion. Named ranges such as "today"
// are resolved by the caller into explicit instants (see Today and
// ThisWeek); the engine itself is timezone-agnostic.
type DueFilter struct {
	Kind      DueKind
	From      time.Time
	To        time.Time
	Reference time.Time
}

// Today resolves the "today" range in now's location into [From, To).
func Today(now time.Time) DueFilter {
	year, month, day := now.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	return DueFilter{Kind: DueBetween, From: start, To: start.AddDate(0, 0, 1)}
}

// ThisWeek resolves the Monday-based week containing now into [From, To).
func ThisWeek(now time.Time) DueFilter {
	year, month, day := now.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	offset := (int(now.Weekday()) + 6) % 7 // days since Monday
	start = start.AddDate(0, 0, -offset)
	return DueFilter{Kind: DueBetween, From: start, To: start.AddDate(0, 0, 7)}
}

// Spec is the caller's query specification for listing tasks. Zero-valued
// fields are simply not filtered on.
type Spec struct {
	Status         *model.TaskStatus
	Priority       *model.TaskPriority
	TagIDs         []string
	TagCombinator  TagCombinator // defaults to AND
	Due            *DueFilter
	Text           string
	IncludeDeleted bool
	Sort           SortKey // defaults to SortDueDate
	Page           int
	Limit          int
}

// Predicates validates the spec and returns its predicate list, ordered and
// ready to AND together.
func (s Spec) Predicates() ([]Predicate, error) {
	var preds []Predicate

	if s.IncludeDeleted {
		preds = append(preds, IncludeDeleted())
	}
	if s.Status != nil {
		if !model.ValidStatus(*s.Status) {
			return nil, apperr.New(apperr.Validation, "unknown status %q", *s.Status)
		}
		preds = append(preds, ByStatus(*s.Status))
	}
	if s.Priority != nil {
		if !model.ValidPriority(*s.Priority) {
			return nil, apperr.New(apperr.Validation, "unknown priority %q", *s.Priority)
		}
		preds = append(preds, ByPriority(*s.Priority))
	}
	if len(s.TagIDs) > 0 {
		comb := s.TagCombinator
		if comb == "" {
			comb = CombinatorAnd
		}
		if comb != CombinatorAnd && comb != CombinatorOr {
			return nil, apperr.New(apperr.Validation, "unknown tag combinator %q", s.TagCombinator)
		}
		preds = append(preds, ByTags(s.TagIDs, comb))
	}
	if s.Due != nil {
		p, err := byDue(*s.Due)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	if s.Text != "" {
		preds = append(preds, ByText(s.Text))
	}
	return preds, nil
}
