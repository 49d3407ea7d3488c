package model

import "time"

// DateEntry is one matching date prepared for display.
type DateEntry struct {
	Date      string // YYYY-MM-DD
	Weekday   string // English weekday name, computed from Date
	Formatted string // e.g. "Tue, 10 Jun"
}

// NewDateEntry builds the display entry for a calendar date.
func NewDateEntry(d time.Time) DateEntry {
	return DateEntry{
		Date:      d.Format(DateLayout),
		Weekday:   d.Weekday().String(),
		Formatted: d.Format("Mon, 2 Jan"),
	}
}

// AvailabilityResult is the outcome of one ServiceQuery within a run.
// HasAvailability reflects the filtered match count before MatchingDates was
// truncated for display. Error is non-empty when the query failed; in that
// case MatchingDates is empty and HasAvailability is false.
type AvailabilityResult struct {
	ServiceID       int
	ProviderID      int
	DisplayName     string
	MatchingDates   []DateEntry
	HasAvailability bool
	Error           string
}

// Failed reports whether the query behind this result failed.
func (r AvailabilityResult) Failed() bool {
	return r.Error != ""
}

// AvailabilityReport aggregates the results of one run over a catalog.
// Results are in catalog order.
type AvailabilityReport struct {
	Results     []AvailabilityResult
	Window      DateWindow
	GeneratedAt time.Time
}

// Total returns the number of services queried.
func (r AvailabilityReport) Total() int {
	return len(r.Results)
}

// Successful returns the number of services whose query did not fail.
func (r AvailabilityReport) Successful() int {
	n := 0
	for _, res := range r.Results {
		if !res.Failed() {
			n++
		}
	}
	return n
}

// Errors returns the error messages of failed queries, in catalog order.
func (r AvailabilityReport) Errors() []string {
	var errs []string
	for _, res := range r.Results {
		if res.Failed() {
			errs = append(errs, res.Error)
		}
	}
	return errs
}

// SlotLookup is the earliest bookable day for a single service/provider pair.
// NextAvailableDate is empty when no day in the window has an available slot.
type SlotLookup struct {
	ServiceID         int
	ProviderID        int
	NextAvailableDate string
	AvailableSlots    []SlotRecord
	CheckedDates      []string
}

// Found reports whether an available day was located.
func (l SlotLookup) Found() bool {
	return l.NextAvailableDate != ""
}
