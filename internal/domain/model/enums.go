package model

import (
	"fmt"
	"strings"
	"time"
)

// WeekdayFilter restricts matching dates to a single day of the week, or keeps
// every date when set to WeekdayAll.
type WeekdayFilter string

const (
	WeekdayAll       WeekdayFilter = "all"
	WeekdayMonday    WeekdayFilter = "monday"
	WeekdayTuesday   WeekdayFilter = "tuesday"
	WeekdayWednesday WeekdayFilter = "wednesday"
	WeekdayThursday  WeekdayFilter = "thursday"
	WeekdayFriday    WeekdayFilter = "friday"
	WeekdaySaturday  WeekdayFilter = "saturday"
	WeekdaySunday    WeekdayFilter = "sunday"
)

var weekdayFilters = map[WeekdayFilter]time.Weekday{
	WeekdaySunday:    time.Sunday,
	WeekdayMonday:    time.Monday,
	WeekdayTuesday:   time.Tuesday,
	WeekdayWednesday: time.Wednesday,
	WeekdayThursday:  time.Thursday,
	WeekdayFriday:    time.Friday,
	WeekdaySaturday:  time.Saturday,
}

// ParseWeekdayFilter normalizes a catalog weekday value. An empty string is
// treated as WeekdayAll. Matching is case-insensitive.
func ParseWeekdayFilter(raw string) (WeekdayFilter, error) {
	f := WeekdayFilter(strings.ToLower(strings.TrimSpace(raw)))
	if f == "" || f == WeekdayAll {
		return WeekdayAll, nil
	}
	if _, ok := weekdayFilters[f]; !ok {
		return "", fmt.Errorf("unknown weekday filter %q", raw)
	}
	return f, nil
}

// Matches reports whether the calendar date d passes the filter. The weekday
// is derived from the date itself, never from an upstream label.
func (f WeekdayFilter) Matches(d time.Time) bool {
	if f == WeekdayAll || f == "" {
		return true
	}
	wd, ok := weekdayFilters[f]
	if !ok {
		return false
	}
	return d.Weekday() == wd
}
