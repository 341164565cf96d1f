package query

import (
	"github.com/tarbeev/taskengine/internal/apperr"
	"github.com/tarbeev/taskengine/internal/model"
)

const (
	// DefaultLimit applies when the caller leaves the limit unset.
	DefaultLimit = 20
	// MaxLimit caps a single page.
	MaxLimit = 100
)

// NormalizePage fills defaults and validates pagination parameters. A zero
// page or limit means "unset"; anything else outside the allowed range is a
// validation error rather than a silent clamp.
func NormalizePage(page, limit int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return 0, 0, apperr.New(apperr.Validation, "page must be >= 1, got %d", page)
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return 0, 0, apperr.New(apperr.Validation, "limit must be in [1,%d], got %d", MaxLimit, limit)
	}
	return page, limit, nil
}

// Item is one listed task together with its text match spans (present only
// when the spec carried a text query).
type Item struct {
	Task    model.Task
	Matches []MatchSpan
}

// Page is one slice of a task listing with pagination metadata. A request
// past the last page yields empty Items with accurate metadata.
type Page struct {
	Items      []Item
	Total      int64
	Page       int
	Limit      int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// NewPage assembles pagination metadata around the fetched slice.
func NewPage(items []Item, total int64, page, limit int) Page {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Page{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
