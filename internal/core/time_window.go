package core

import "time"

// TimeRange is an inclusive [Start, End] interval.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Windows holds the report buckets' boundaries. All three share End.
type Windows struct {
	Today TimeRange
	Week  TimeRange
	Month TimeRange
}

// WindowsAt computes today / this week / this month for now. Calendar
// boundaries are taken in now's location so "today" follows the user's
// wall clock; comparisons against source timestamps are instant-based and
// therefore independent of the zone those timestamps were recorded in.
// Weeks start on Sunday.
func WindowsAt(now time.Time) Windows {
	loc := now.Location()
	y, m, d := now.Date()

	todayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)
	// time.Date normalizes a non-positive day into the previous month and
	// lands on local midnight even across DST changes.
	weekStart := time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, loc)
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, loc)

	return Windows{
		Today: TimeRange{Start: todayStart, End: now},
		Week:  TimeRange{Start: weekStart, End: now},
		Month: TimeRange{Start: monthStart, End: now},
	}
}
