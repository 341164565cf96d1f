package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Frequency names the recurrence rule family.
type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqCustom  Frequency = "custom"
)

// IntervalUnit is the step unit for custom frequencies.
type IntervalUnit string

const (
	UnitDay   IntervalUnit = "day"
	UnitWeek  IntervalUnit = "week"
	UnitMonth IntervalUnit = "month"
)

// RecurrencePattern governs how a recurring task regenerates. TaskID points
// at the current head of the lineage and moves forward each time a new
// instance is generated. NextOccurrence going null terminates the lineage.
//
// DaysOfWeek is stored as a comma-separated list of weekday indices
// (0 = Sunday … 6 = Saturday), e.g. "1,3,5" for Mon/Wed/Fri.
type RecurrencePattern struct {
	ID             string `gorm:"primaryKey"`
	TaskID         string `gorm:"uniqueIndex"`
	Frequency      Frequency
	Interval       int `gorm:"default:1"`
	DaysOfWeek     string
	DayOfMonth     int
	Unit           IntervalUnit
	EndDate        *time.Time
	NextOccurrence *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Weekdays parses DaysOfWeek into a sorted, deduplicated weekday list.
func (p *RecurrencePattern) Weekdays() ([]time.Weekday, error) {
	raw := strings.TrimSpace(p.DaysOfWeek)
	if raw == "" {
		return nil, nil
	}
	seen := make(map[int]bool)
	var days []time.Weekday
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday index %q", part)
		}
		if !seen[n] {
			seen[n] = true
			days = append(days, time.Weekday(n))
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days, nil
}

// WeekdayCSV renders a weekday list into the stored DaysOfWeek form.
func WeekdayCSV(days []time.Weekday) string {
	sorted := make([]time.Weekday, len(days))
	copy(sorted, days)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, 0, len(sorted))
	var prev time.Weekday = -1
	for _, d := range sorted {
		if d == prev {
			continue
		}
		prev = d
		parts = append(parts, strconv.Itoa(int(d)))
	}
	return strings.Join(parts, ",")
}
