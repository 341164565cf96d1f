// Package recurrence computes occurrence dates for recurring tasks. The
// calculator is a pure function of the pattern and an explicit reference
// instant, so identical inputs always produce identical output and tests
// need no clock.
package recurrence

import (
	"time"

	"github.com/tarbeev/taskengine/internal/model"
)

// NextOccurrence returns the first occurrence strictly after reference for
// the given pattern. ok is false when the pattern cannot produce another
// occurrence: the computed date falls at or after EndDate, or the pattern
// is malformed for its frequency.
func NextOccurrence(p model.RecurrencePattern, reference time.Time) (time.Time, bool) {
	if p.Interval < 1 {
		return time.Time{}, false
	}

	var next time.Time
	switch p.Frequency {
	case model.FreqDaily:
		next = reference.AddDate(0, 0, p.Interval)
	case model.FreqWeekly:
		days, err := p.Weekdays()
		if err != nil || len(days) == 0 {
			return time.Time{}, false
		}
		next = nextWeekday(reference, days, p.Interval)
	case model.FreqMonthly:
		if p.DayOfMonth < 1 || p.DayOfMonth > 31 {
			return time.Time{}, false
		}
		next = addMonthsClamped(reference, p.Interval, p.DayOfMonth)
	case model.FreqCustom:
		switch p.Unit {
		case model.UnitDay:
			next = reference.AddDate(0, 0, p.Interval)
		case model.UnitWeek:
			next = reference.AddDate(0, 0, 7*p.Interval)
		case model.UnitMonth:
			day := p.DayOfMonth
			if day == 0 {
				day = reference.Day()
			}
			next = addMonthsClamped(reference, p.Interval, day)
		default:
			return time.Time{}, false
		}
	default:
		return time.Time{}, false
	}

	if p.EndDate != nil && !next.Before(*p.EndDate) {
		return time.Time{}, false
	}
	return next, true
}

// nextWeekday finds the earliest member of days strictly after reference's
// weekday. When no member remains in the current week, the search resumes
// at the first member after skipping interval−1 additional whole weeks.
func nextWeekday(reference time.Time, days []time.Weekday, interval int) time.Time {
	wd := reference.Weekday()
	for _, d := range days {
		if d > wd {
			return reference.AddDate(0, 0, int(d-wd))
		}
	}
	delta := 7 - int(wd) + int(days[0]) + 7*(interval-1)
	return reference.AddDate(0, 0, delta)
}

// addMonthsClamped lands on dayOfMonth after advancing the given number of
// months, clamping to the target month's last day when it is shorter.
// The reference's clock time and location are preserved.
func addMonthsClamped(reference time.Time, months, dayOfMonth int) time.Time {
	year, month, _ := reference.Date()
	hour, min, sec := reference.Clock()
	first := time.Date(year, month+time.Month(months), 1, hour, min, sec, reference.Nanosecond(), reference.Location())
	day := dayOfMonth
	if last := daysInMonth(first.Month(), first.Year()); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

// daysInMonth moves to the next month and rolls back a day.
func daysInMonth(month time.Month, year int) int {
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 1, -1).Day()
}
