package ingest

import "time"

// IncrementalWindow returns the half-open window [yesterday 00:00, today
// 00:00) in the given location, suitable for a daily catch-up run. Day
// boundaries follow loc, not UTC.
func IncrementalWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return today.AddDate(0, 0, -1), today
}
