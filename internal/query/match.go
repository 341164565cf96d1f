package query

import (
	"unicode"

	"github.com/tarbeev/taskengine/internal/model"
)

// Searchable task fields, as reported in MatchSpan.Field.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldNotes       = "notes"
)

// MatchSpan locates one case-insensitive occurrence of the query text
// inside a task field. Offset and Length count runes, so the presentation
// layer can highlight without re-running the search.
type MatchSpan struct {
	Field  string
	Offset int
	Length int
}

// Matches returns every occurrence of text across the task's searchable
// fields, in field order then position order.
func Matches(t model.Task, text string) []MatchSpan {
	if text == "" {
		return nil
	}
	var spans []MatchSpan
	for _, f := range []struct {
		name  string
		value string
	}{
		{FieldTitle, t.Title},
		{FieldDescription, t.Description},
		{FieldNotes, t.Notes},
	} {
		spans = append(spans, fieldSpans(f.name, f.value, text)...)
	}
	return spans
}

// fieldSpans scans haystack for case-folded occurrences of needle.
// Overlapping occurrences advance one rune at a time.
func fieldSpans(field, haystack, needle string) []MatchSpan {
	hs := foldRunes(haystack)
	ns := foldRunes(needle)
	if len(ns) == 0 || len(hs) < len(ns) {
		return nil
	}
	var spans []MatchSpan
	for i := 0; i+len(ns) <= len(hs); i++ {
		if runesEqual(hs[i:i+len(ns)], ns) {
			spans = append(spans, MatchSpan{Field: field, Offset: i, Length: len(ns)})
		}
	}
	return spans
}

func foldRunes(s string) []rune {
	rs := []rune(s)
	for i, r := range rs {
		rs[i] = unicode.ToLower(r)
	}
	return rs
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
