package query

import (
	"testing"
	"time"

	"github.com/tarbeev/taskengine/internal/apperr"
	"github.com/tarbeev/taskengine/internal/model"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
		wantErr   bool
	}{
		{"defaults", 0, 0, 1, DefaultLimit, false},
		{"explicit", 3, 25, 3, 25, false},
		{"limit at cap", 1, 100, 1, 100, false},
		{"limit over cap", 1, 101, 0, 0, true},
		{"negative limit", 1, -5, 0, 0, true},
		{"negative page", -1, 10, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit, err := NormalizePage(tt.page, tt.limit)
			if tt.wantErr {
				if !apperr.Is(err, apperr.Validation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if page != tt.wantPage || limit != tt.wantLimit {
				t.Errorf("got (%d, %d), want (%d, %d)", page, limit, tt.wantPage, tt.wantLimit)
			}
		})
	}
}

func TestNewPageMetadata(t *testing.T) {
	p := NewPage(make([]Item, 10), 47, 2, 10)
	if p.TotalPages != 5 {
		t.Errorf("TotalPages = %d, want 5", p.TotalPages)
	}
	if !p.HasNext || !p.HasPrev {
		t.Errorf("HasNext/HasPrev = %v/%v, want true/true", p.HasNext, p.HasPrev)
	}

	// Past the last page: empty items, accurate metadata.
	p = NewPage(nil, 47, 9, 10)
	if len(p.Items) != 0 || p.Total != 47 || p.HasNext || !p.HasPrev {
		t.Errorf("out-of-range page metadata wrong: %+v", p)
	}

	p = NewPage(nil, 0, 1, 10)
	if p.TotalPages != 0 || p.HasNext || p.HasPrev {
		t.Errorf("empty result metadata wrong: %+v", p)
	}
}

func TestOrderClauseAlwaysTieBreaksOnID(t *testing.T) {
	for _, key := range []SortKey{SortDueDate, SortCreatedAt, SortManualOrder, SortPriority, ""} {
		clause, err := OrderClause(key)
		if err != nil {
			t.Fatalf("OrderClause(%q): %v", key, err)
		}
		if want := "tasks.id ASC"; len(clause) < len(want) || clause[len(clause)-len(want):] != want {
			t.Errorf("OrderClause(%q) = %q, missing trailing id tie-break", key, clause)
		}
	}
	if _, err := OrderClause("color"); !apperr.Is(err, apperr.Validation) {
		t.Errorf("unknown sort key should be a validation error, got %v", err)
	}
}

func TestSpecPredicatesValidation(t *testing.T) {
	badStatus := model.TaskStatus("archived")
	badPriority := model.TaskPriority("urgent")
	tests := []struct {
		name string
		spec Spec
	}{
		{"bad status", Spec{Status: &badStatus}},
		{"bad priority", Spec{Priority: &badPriority}},
		{"bad combinator", Spec{TagIDs: []string{"a"}, TagCombinator: "xor"}},
		{"empty due range", Spec{Due: &DueFilter{Kind: DueBetween}}},
		{"inverted due range", Spec{Due: &DueFilter{
			Kind: DueBetween,
			From: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		}}},
		{"overdue without reference", Spec{Due: &DueFilter{Kind: DueOverdue}}},
		{"unknown due kind", Spec{Due: &DueFilter{Kind: "someday"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.spec.Predicates(); !apperr.Is(err, apperr.Validation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	preds, err := Spec{Text: "milk", TagIDs: []string{"a", "b"}}.Predicates()
	if err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}
	if len(preds) != 2 {
		t.Errorf("predicate count = %d, want 2", len(preds))
	}
}

func TestDueRangeHelpers(t *testing.T) {
	// 2025-01-08 is a Wednesday.
	now := time.Date(2025, time.January, 8, 15, 4, 5, 0, time.UTC)

	today := Today(now)
	if want := time.Date(2025, time.January, 8, 0, 0, 0, 0, time.UTC); !today.From.Equal(want) {
		t.Errorf("Today.From = %v, want %v", today.From, want)
	}
	if want := time.Date(2025, time.January, 9, 0, 0, 0, 0, time.UTC); !today.To.Equal(want) {
		t.Errorf("Today.To = %v, want %v", today.To, want)
	}

	week := ThisWeek(now)
	if want := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC); !week.From.Equal(want) {
		t.Errorf("ThisWeek.From = %v, want %v", week.From, want)
	}
	if want := time.Date(2025, time.January, 13, 0, 0, 0, 0, time.UTC); !week.To.Equal(want) {
		t.Errorf("ThisWeek.To = %v, want %v", week.To, want)
	}
}

func TestMatches(t *testing.T) {
	task := model.Task{
		Title:       "Buy milk and more milk",
		Description: "Milk from the corner shop",
		Notes:       "no lactose",
	}

	spans := Matches(task, "milk")
	want := []MatchSpan{
		{FieldTitle, 4, 4},
		{FieldTitle, 18, 4},
		{FieldDescription, 0, 4},
	}
	if len(spans) != len(want) {
		t.Fatalf("span count = %d, want %d (%+v)", len(spans), len(want), spans)
	}
	for i := range want {
		if spans[i] != want[i] {
			t.Errorf("span[%d] = %+v, want %+v", i, spans[i], want[i])
		}
	}

	if spans := Matches(task, "lactose"); len(spans) != 1 || spans[0].Field != FieldNotes {
		t.Errorf("notes span wrong: %+v", spans)
	}
	if spans := Matches(task, "cheese"); spans != nil {
		t.Errorf("expected no spans, got %+v", spans)
	}
	if spans := Matches(task, ""); spans != nil {
		t.Errorf("empty query should match nothing, got %+v", spans)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike("50%_done\\"); got != `50\%\_done\\` {
		t.Errorf("escapeLike = %q", got)
	}
}
