package availability

import (
	"sort"
	"time"
)

// Variant identifies one inventory unit of a product.
type Variant struct {
	Size  string `json:"size"`
	Color string `json:"color"`
}

// Interval is one existing reservation as seen by the calendar.
// Occupied covers ship date through receive-back date; Use is the
// customer's usage window and lies within it.
type Interval struct {
	OccupiedStart time.Time
	OccupiedEnd   time.Time
	UseStart      time.Time
	UseEnd        time.Time
}

// DayState classifies a calendar date against existing reservations.
type DayState string

const (
	DayAvailable DayState = "available"
	DayOccupied  DayState = "occupied"
	DayBuffer    DayState = "buffer"
)

// BookedWindowSet answers whether a date is taken for one variant.
type BookedWindowSet struct {
	windows    []Interval
	bufferDays int
}

// NewBookedWindowSet normalises every interval to calendar dates. bufferDays
// is the post-booking turnaround appended after each occupied window.
func NewBookedWindowSet(intervals []Interval, bufferDays int) *BookedWindowSet {
	ws := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		ws = append(ws, Interval{
			OccupiedStart: DateOf(iv.OccupiedStart),
			OccupiedEnd:   DateOf(iv.OccupiedEnd),
			UseStart:      DateOf(iv.UseStart),
			UseEnd:        DateOf(iv.UseEnd),
		})
	}
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].OccupiedStart.Before(ws[j].OccupiedStart) })
	return &BookedWindowSet{windows: ws, bufferDays: clampNonNegative(bufferDays)}
}

// Len is the number of reservations in the set.
func (s *BookedWindowSet) Len() int { return len(s.windows) }

// Classify reports how date relates to existing reservations. An occupied
// day of one reservation wins over a buffer day of another.
func (s *BookedWindowSet) Classify(date time.Time) DayState {
	d := DateOf(date)
	state := DayAvailable
	for _, w := range s.windows {
		if within(d, w.OccupiedStart, w.OccupiedEnd) {
			return DayOccupied
		}
		if s.bufferDays > 0 && within(d, AddDays(w.OccupiedEnd, 1), AddDays(w.OccupiedEnd, s.bufferDays)) {
			state = DayBuffer
		}
	}
	return state
}

// IsBlocked is true for occupied and buffer days.
func (s *BookedWindowSet) IsBlocked(date time.Time) bool {
	return s.Classify(date) != DayAvailable
}

// FirstBlocked returns the first blocked date in [start, end].
func (s *BookedWindowSet) FirstBlocked(start, end time.Time) (time.Time, bool) {
	for d := DateOf(start); !d.After(DateOf(end)); d = AddDays(d, 1) {
		if s.IsBlocked(d) {
			return d, true
		}
	}
	return time.Time{}, false
}

// Overlaps reports whether any occupied or buffer day falls in [start, end].
func (s *BookedWindowSet) Overlaps(start, end time.Time) bool {
	start, end = DateOf(start), DateOf(end)
	for _, w := range s.windows {
		if !w.OccupiedStart.After(end) && !AddDays(w.OccupiedEnd, s.bufferDays).Before(start) {
			return true
		}
	}
	return false
}

// OccupiedOverlaps reports whether [start, end] intersects an occupied
// window. Buffer days are ignored.
func (s *BookedWindowSet) OccupiedOverlaps(start, end time.Time) bool {
	start, end = DateOf(start), DateOf(end)
	for _, w := range s.windows {
		if !w.OccupiedStart.After(end) && !w.OccupiedEnd.Before(start) {
			return true
		}
	}
	return false
}
