// Package recurrence computes the next occurrence of a repeating reminder.
package recurrence

import (
	"time"

	"nudge/models"
)

// Next returns the occurrence following current under rule. Month and year steps keep the
// day-of-month when it exists in the target month and clamp to the month's last day otherwise,
// so Jan 31 steps to Feb 28 (or 29). Unknown rules advance by one day.
func Next(current time.Time, rule models.RepeatRule) time.Time {
	switch rule {
	case models.RepeatWeekly:
		return current.AddDate(0, 0, 7)
	case models.RepeatMonthly:
		return addMonthsClamped(current, 1)
	case models.RepeatYearly:
		return addMonthsClamped(current, 12)
	default:
		return current.AddDate(0, 0, 1)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
