package domain

import "time"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// DateOf returns the calendar date of t in t's location, as midnight UTC.
// All calendar dates in the system use this representation.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
