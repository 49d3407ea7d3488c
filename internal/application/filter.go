package application

import (
	"sort"
	"time"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
)

// MatchingDates flattens day/slot records into one entry per calendar date
// that has at least one available slot and passes filter. Entries are sorted
// ascending. Days whose date cannot be parsed are skipped.
func MatchingDates(days []model.DayRecord, filter model.WeekdayFilter) []model.DateEntry {
	seen := make(map[string]bool, len(days))
	entries := make([]model.DateEntry, 0, len(days))

	for _, day := range days {
		if len(day.AvailableSlots()) == 0 {
			continue
		}

		d, err := day.ParseDate()
		if err != nil {
			continue
		}
		if !filter.Matches(d) {
			continue
		}

		entry := model.NewDateEntry(d)
		if seen[entry.Date] {
			continue
		}
		seen[entry.Date] = true
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date < entries[j].Date
	})

	return entries
}

// truncateDates caps entries at limit for display. A non-positive limit keeps
// everything.
func truncateDates(entries []model.DateEntry, limit int) []model.DateEntry {
	if limit <= 0 || len(entries) <= limit {
		return entries
	}
	return entries[:limit]
}

// firstAvailableDay returns the earliest day with an available slot.
func firstAvailableDay(days []model.DayRecord) (model.DayRecord, bool) {
	var (
		best     model.DayRecord
		bestDate time.Time
		found    bool
	)
	for _, day := range days {
		if len(day.AvailableSlots()) == 0 {
			continue
		}
		d, err := day.ParseDate()
		if err != nil {
			continue
		}
		if !found || d.Before(bestDate) {
			best, bestDate, found = day, d, true
		}
	}
	return best, found
}
