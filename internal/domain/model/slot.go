package model

import (
	"strings"
	"time"
)

// DayRecord is one calendar day returned by the booking API together with its
// slots. Date is kept in YYYY-MM-DD form.
type DayRecord struct {
	Date  string
	Slots []SlotRecord
}

// SlotRecord is a single bookable time on a day. Upstream marks availability
// either with an explicit flag or by including a start time.
type SlotRecord struct {
	ID        string
	Time      string
	Available bool
}

// IsAvailable reports whether the slot can be booked.
func (s SlotRecord) IsAvailable() bool {
	return s.Available || strings.TrimSpace(s.Time) != ""
}

// ParseDate parses the leading YYYY-MM-DD of the day's date. Timestamps such
// as "2025-06-10T00:00:00+02:00" are accepted; only the calendar part is used.
func (d DayRecord) ParseDate() (time.Time, error) {
	raw := strings.TrimSpace(d.Date)
	if len(raw) > len(DateLayout) {
		raw = raw[:len(DateLayout)]
	}
	return time.Parse(DateLayout, raw)
}

// AvailableSlots returns the slots of the day that can be booked.
func (d DayRecord) AvailableSlots() []SlotRecord {
	out := make([]SlotRecord, 0, len(d.Slots))
	for _, s := range d.Slots {
		if s.IsAvailable() {
			out = append(out, s)
		}
	}
	return out
}
