package availability

import (
	"errors"
	"fmt"
	"time"
)

// MaxCalendarDays bounds a single calendar request.
const MaxCalendarDays = 186

var (
	ErrInvalidRange     = errors.New("usage end date is before usage start date")
	ErrRentalTooShort   = errors.New("rental period is shorter than the minimum")
	ErrRentalTooLong    = errors.New("rental period is longer than the maximum")
	ErrSingleDayRange   = errors.New("single-day rentals must start and end on the same day")
	ErrBeforeLeadTime   = errors.New("start date is earlier than delivery allows")
	ErrDatesUnavailable = errors.New("selected dates are not available")
	ErrCalendarTooLarge = errors.New("calendar range is too large")
)

// MinLeadDate is the earliest usage start a customer may pick given the
// forward leg transit days.
func MinLeadDate(today time.Time, forwardDays int, policy Policy) time.Time {
	lead := clampNonNegative(forwardDays) + policy.LeadUsageBuffer
	if lead < 1 {
		lead = 1
	}
	return AddDays(today, lead)
}

// Predicate decides which dates can start a new booking for one variant.
type Predicate struct {
	Booked      *BookedWindowSet
	MinLead     time.Time
	Policy      Policy
	ForwardDays int
	ReverseDays int
}

// NewPredicate builds the predicate for a session quoted with the given legs.
// The booked set must have been built with the same session's buffer days.
func NewPredicate(booked *BookedWindowSet, today time.Time, forwardDays, reverseDays int, policy Policy) *Predicate {
	return &Predicate{
		Booked:      booked,
		MinLead:     MinLeadDate(today, forwardDays, policy),
		Policy:      policy,
		ForwardDays: forwardDays,
		ReverseDays: reverseDays,
	}
}

// IsValidStart is false below the lead-time floor, on blocked dates, and
// when a minimum-length rental starting on date would keep the item out
// while another booking holds it.
func (p *Predicate) IsValidStart(date time.Time) bool {
	d := DateOf(date)
	if d.Before(p.MinLead) || p.Booked.IsBlocked(d) {
		return false
	}
	minDays := p.Policy.MinRentalDays
	if minDays < 1 {
		minDays = 1
	}
	return p.windowClear(p.Window(d, AddDays(d, minDays-1)))
}

// Window is the logistics window for a usage range under this session's legs.
func (p *Predicate) Window(start, end time.Time) Window {
	return CalculateWindow(start, end, p.ForwardDays, p.ReverseDays, p.Policy)
}

// windowClear is true when the outbound leg misses every occupied window and
// nothing is blocked from usage start through receive-back.
func (p *Predicate) windowClear(w Window) bool {
	return !p.Booked.OccupiedOverlaps(w.ShipDate, w.UsageStart) &&
		!p.Booked.Overlaps(w.UsageStart, w.ReceiveBackDate)
}

// CalendarDay is one rendered date.
type CalendarDay struct {
	Date       string   `json:"date"`
	State      DayState `json:"state"`
	Blocked    bool     `json:"blocked"`
	Selectable bool     `json:"selectable"`
}

// Calendar classifies every date in [from, to].
func (p *Predicate) Calendar(from, to time.Time) ([]CalendarDay, error) {
	from, to = DateOf(from), DateOf(to)
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	n := DaysBetween(from, to) + 1
	if n > MaxCalendarDays {
		return nil, fmt.Errorf("%w: %d days requested, at most %d", ErrCalendarTooLarge, n, MaxCalendarDays)
	}

	days := make([]CalendarDay, 0, n)
	for d := from; !d.After(to); d = AddDays(d, 1) {
		state := p.Booked.Classify(d)
		days = append(days, CalendarDay{
			Date:       FormatDate(d),
			State:      state,
			Blocked:    state != DayAvailable,
			Selectable: p.IsValidStart(d),
		})
	}
	return days, nil
}

// ValidateUsage checks a requested usage window against the rental bounds,
// the lead-time floor and existing reservations. The whole logistics window,
// ship date through receive-back date, must stay clear of other bookings.
func (p *Predicate) ValidateUsage(start, end time.Time) error {
	start, end = DateOf(start), DateOf(end)
	if end.Before(start) {
		return ErrInvalidRange
	}
	if p.Policy.Mode == ModeSingleDay && !end.Equal(start) {
		return ErrSingleDayRange
	}

	days := DaysBetween(start, end) + 1
	if days < p.Policy.MinRentalDays {
		return fmt.Errorf("%w: %d days, minimum %d", ErrRentalTooShort, days, p.Policy.MinRentalDays)
	}
	if days > p.Policy.MaxRentalDays {
		return fmt.Errorf("%w: %d days, maximum %d", ErrRentalTooLong, days, p.Policy.MaxRentalDays)
	}

	if start.Before(p.MinLead) {
		return fmt.Errorf("%w: earliest start is %s", ErrBeforeLeadTime, FormatDate(p.MinLead))
	}
	if d, blocked := p.Booked.FirstBlocked(start, end); blocked {
		return fmt.Errorf("%w: %s is booked", ErrDatesUnavailable, FormatDate(d))
	}
	if w := p.Window(start, end); !p.windowClear(w) {
		return fmt.Errorf("%w: the item is out from %s to %s and overlaps another booking",
			ErrDatesUnavailable, FormatDate(w.ShipDate), FormatDate(w.ReceiveBackDate))
	}
	return nil
}
