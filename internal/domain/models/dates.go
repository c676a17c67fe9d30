package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of ledger dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into the canonical ledger date
// (midnight UTC of that calendar day).
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t.UTC(), nil
}

// Day returns the canonical ledger date of the calendar day t falls on in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// NextDay and PrevDay step a canonical ledger date by one calendar day.
func NextDay(date time.Time) time.Time { return date.AddDate(0, 0, 1) }

func PrevDay(date time.Time) time.Time { return date.AddDate(0, 0, -1) }

// DaysUntil returns the calendar-day distance from today (now, read in loc)
// to the canonical ledger date target. Negative values mean target has passed.
func DaysUntil(target, now time.Time, loc *time.Location) int {
	return int(Day(target, time.UTC).Sub(Day(now, loc)).Hours() / 24)
}

// WeekStart returns the Monday of the ISO week containing date.
func WeekStart(date time.Time) time.Time {
	daysSinceMonday := (int(date.Weekday()) + 6) % 7
	start := date.AddDate(0, 0, -daysSinceMonday)
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of date's month.
func MonthStart(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
}
