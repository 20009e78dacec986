// Package availability holds the rental calendar math: booked windows,
// start-date selectability, logistics windows, pricing and courier quote
// selection. It performs no I/O.
package availability

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// DateOf strips the time of day from t, keeping the civil date as seen in
// t's location. The result is midnight UTC so dates compare with Equal/Before.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected %s", s, DateLayout)
	}
	return DateOf(t), nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return DateOf(t).Format(DateLayout)
}

// AddDays shifts a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	return DateOf(t).AddDate(0, 0, n)
}

// DaysBetween returns to - from in whole days.
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}

func within(d, start, end time.Time) bool {
	return !d.Before(start) && !d.After(end)
}

// Clock supplies today's date.
type Clock interface {
	Today() time.Time
}

// SystemClock reads the wall clock in the business time zone.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Today() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc))
}

// FixedClock always reports the same date. Used in tests and replays.
type FixedClock struct {
	Date time.Time
}

func (c FixedClock) Today() time.Time {
	return DateOf(c.Date)
}
