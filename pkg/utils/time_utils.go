package utils

import "time"

const DateLayout = "2006-01-02"

// Clock returns the current instant. Services take one so tests can pin "now".
type Clock func() time.Time

func SystemClock() time.Time { return time.Now() }

// DayBounds returns the half-open window [start, end) of the calendar day that
// contains t in loc. At millisecond resolution this is the same set of
// instants as [00:00:00, 23:59:59.999].
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	lt := t.In(loc)
	start := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end
}

// DayKey formats the calendar day containing t in loc as YYYY-MM-DD.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// ParseDay parses YYYY-MM-DD as midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}
