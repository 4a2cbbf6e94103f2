// Package habitday defines the habit-day calendar: which YYYY-MM-DD date an
// instant belongs to for recurrence purposes, and whether a recurrence rule
// is active on a given day.
//
// A habit day starts at 04:00 in the reference timezone (UTC+9) rather than
// at midnight, so instants between 00:00 and 03:59:59 reference-local time
// count toward the previous calendar day.
package habitday

import (
	"time"
)

const dayFormat = "2006-01-02"

// refZone is the fixed reference timezone for habit days.
var refZone = time.FixedZone("UTC+9", 9*60*60)

// boundaryOffset shifts the day boundary from midnight to 04:00.
const boundaryOffset = 4 * time.Hour

// Day returns the habit day (YYYY-MM-DD) for the given instant.
func Day(t time.Time) string {
	return t.In(refZone).Add(-boundaryOffset).Format(dayFormat)
}

// Today returns the current habit day.
func Today() string {
	return Day(time.Now())
}

// IsFutureDay reports whether day is after the current habit day.
func IsFutureDay(day string) bool {
	return IsFutureDayAt(day, time.Now())
}

// IsFutureDayAt is IsFutureDay with an explicit reference instant.
// This variant enables deterministic testing with a fixed "now".
// The comparison is lexicographic, valid because the format is fixed-width
// and zero-padded.
func IsFutureDayAt(day string, now time.Time) bool {
	return day > Day(now)
}

// YearDates returns every habit day of the given year, Jan 1 through Dec 31,
// ascending.
func YearDates(year int) []string {
	dates := make([]string, 0, 366)
	d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for d.Year() == year {
		dates = append(dates, d.Format(dayFormat))
		d = d.AddDate(0, 0, 1)
	}
	return dates
}

// Weekday returns the day's weekday as 0=Sunday .. 6=Saturday, or -1 when
// the day does not parse.
func Weekday(day string) int {
	d, err := time.ParseInLocation(dayFormat, day, time.UTC)
	if err != nil {
		return -1
	}
	return int(d.Weekday())
}

// DayOfMonth returns the day-of-month (1-31), or -1 when the day does not
// parse.
func DayOfMonth(day string) int {
	d, err := time.ParseInLocation(dayFormat, day, time.UTC)
	if err != nil {
		return -1
	}
	return d.Day()
}

// RuleActive reports whether a recurrence rule is active on the given day.
//
//   - "daily" is active every day.
//   - "weekdays" is active when bit (1 << weekday) is set in weekdaysMask,
//     with weekday 0=Sunday .. 6=Saturday.
//   - "monthdays" is active when the day-of-month is in the monthdays set.
//
// Unknown rule types, unparseable days and empty monthdays sets are all
// inactive: recurrence data fails closed, never open.
func RuleActive(ruleType string, weekdaysMask int, monthdays []int, day string) bool {
	switch ruleType {
	case "daily":
		return true
	case "weekdays":
		wd := Weekday(day)
		if wd < 0 {
			return false
		}
		return weekdaysMask&(1<<wd) != 0
	case "monthdays":
		dom := DayOfMonth(day)
		if dom < 0 {
			return false
		}
		for _, d := range monthdays {
			if d == dom {
				return true
			}
		}
		return false
	default:
		return false
	}
}
