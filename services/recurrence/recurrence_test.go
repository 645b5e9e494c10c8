package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"nudge/models"
)

func date(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestNext_Steps(t *testing.T) {
	start := date(2025, time.January, 1, 9, 0)

	tests := []struct {
		rule models.RepeatRule
		want time.Time
	}{
		{models.RepeatDaily, date(2025, time.January, 2, 9, 0)},
		{models.RepeatWeekly, date(2025, time.January, 8, 9, 0)},
		{models.RepeatMonthly, date(2025, time.February, 1, 9, 0)},
		{models.RepeatYearly, date(2026, time.January, 1, 9, 0)},
		{models.RepeatRule("fortnightly"), date(2025, time.January, 2, 9, 0)},
		{models.RepeatRule(""), date(2025, time.January, 2, 9, 0)},
	}

	for _, tt := range tests {
		t.Run(string(tt.rule), func(t *testing.T) {
			assert.Equal(t, tt.want, Next(start, tt.rule))
		})
	}
}

func TestNext_MonthlyClampsToMonthEnd(t *testing.T) {
	got := Next(date(2025, time.January, 31, 8, 30), models.RepeatMonthly)
	assert.Equal(t, date(2025, time.February, 28, 8, 30), got)

	got = Next(got, models.RepeatMonthly)
	assert.Equal(t, date(2025, time.March, 28, 8, 30), got, "no day skip beyond one calendar step")

	leap := Next(date(2024, time.January, 31, 8, 30), models.RepeatMonthly)
	assert.Equal(t, date(2024, time.February, 29, 8, 30), leap)

	assert.Equal(t, date(2026, time.January, 31, 8, 30), Next(date(2025, time.December, 31, 8, 30), models.RepeatMonthly))
}

func TestNext_YearlyFromLeapDay(t *testing.T) {
	assert.Equal(t, date(2025, time.February, 28, 7, 0), Next(date(2024, time.February, 29, 7, 0), models.RepeatYearly))
}

func TestNext_MonotonicOverManySteps(t *testing.T) {
	rules := []models.RepeatRule{models.RepeatDaily, models.RepeatWeekly, models.RepeatMonthly, models.RepeatYearly}
	for _, rule := range rules {
		cur := date(2024, time.January, 31, 23, 59)
		for i := 0; i < 40; i++ {
			next := Next(cur, rule)
			assert.True(t, next.After(cur), "%s step %d: %v -> %v", rule, i, cur, next)
			cur = next
		}
	}
}

func TestNext_PreservesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	start := time.Date(2025, time.March, 15, 20, 0, 0, 0, loc)

	got := Next(start, models.RepeatMonthly)

	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 20, got.Hour())
	assert.Equal(t, time.April, got.Month())
}
