package model

import "time"

// DateLayout is the ISO calendar date format used by the booking API.
const DateLayout = "2006-01-02"

// DateWindow is an inclusive range of calendar dates. Both bounds are
// truncated to midnight UTC.
type DateWindow struct {
	From time.Time
	To   time.Time
}

// NewDateWindow returns the window [start, start + days].
func NewDateWindow(start time.Time, days int) DateWindow {
	from := CalendarDate(start)
	return DateWindow{
		From: from,
		To:   from.AddDate(0, 0, days),
	}
}

// CalendarDate drops the clock component of t, keeping its calendar date in
// t's own location, and returns that date at midnight UTC.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FromString formats the lower bound as YYYY-MM-DD.
func (w DateWindow) FromString() string {
	return w.From.Format(DateLayout)
}

// ToString formats the upper bound as YYYY-MM-DD.
func (w DateWindow) ToString() string {
	return w.To.Format(DateLayout)
}

// Dates lists every date in the window in ascending order.
func (w DateWindow) Dates() []string {
	if w.To.Before(w.From) {
		return []string{}
	}
	dates := make([]string, 0, int(w.To.Sub(w.From).Hours()/24)+1)
	for d := w.From; !d.After(w.To); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates
}
