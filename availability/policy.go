package availability

import (
	"fmt"
	"strings"
)

// Mode selects how a product is rented and billed.
type Mode string

const (
	// ModeSingleDay rents for exactly one usage day at a flat rent.
	ModeSingleDay Mode = "single_day"
	// ModeRanged rents for a multi-day range, prorated past the standard period.
	ModeRanged Mode = "ranged"
)

// ParseMode accepts "single_day" or "ranged" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSingleDay:
		return ModeSingleDay, nil
	case ModeRanged:
		return ModeRanged, nil
	}
	return "", fmt.Errorf("unknown rental mode %q", s)
}

// Policy carries the rental constants. One Policy is active per deployment;
// single-day and ranged billing are never mixed.
type Policy struct {
	Mode Mode

	MinRentalDays      int
	MaxRentalDays      int
	StandardRentalDays int

	// PrepDays are handling days before the forward leg departs.
	PrepDays int
	// PickupDays is the gap between the last usage day and courier pickup.
	PickupDays int
	// LeadUsageBuffer is added to the forward leg when computing the
	// earliest selectable start date.
	LeadUsageBuffer int

	// PostBookingExtraDays is added to the forward leg days to size the
	// turnaround buffer after each occupied window.
	PostBookingExtraDays int
	// PostBookingIncludesReverse also adds the reverse leg to that buffer.
	PostBookingIncludesReverse bool

	SecurityDeposit float64
	// PassThroughDelivery charges the selected courier option's combined
	// price to the customer. When false delivery is free.
	PassThroughDelivery bool
}

// DefaultPolicy returns the constants used by the storefront for mode.
func DefaultPolicy(mode Mode) Policy {
	p := Policy{
		Mode:                 mode,
		PrepDays:             1,
		PickupDays:           1,
		LeadUsageBuffer:      1,
		PostBookingExtraDays: 2,
		SecurityDeposit:      2500,
	}
	if mode == ModeRanged {
		p.MinRentalDays = 7
		p.MaxRentalDays = 21
		p.StandardRentalDays = 7
		return p
	}
	p.Mode = ModeSingleDay
	p.MinRentalDays = 1
	p.MaxRentalDays = 1
	p.StandardRentalDays = 1
	return p
}

// Validate rejects inconsistent constants.
func (p Policy) Validate() error {
	if p.Mode != ModeSingleDay && p.Mode != ModeRanged {
		return fmt.Errorf("unknown rental mode %q", p.Mode)
	}
	if p.MinRentalDays < 1 || p.MaxRentalDays < p.MinRentalDays {
		return fmt.Errorf("invalid rental day bounds [%d, %d]", p.MinRentalDays, p.MaxRentalDays)
	}
	if p.Mode == ModeSingleDay && p.MaxRentalDays != 1 {
		return fmt.Errorf("single-day mode requires max rental days of 1, got %d", p.MaxRentalDays)
	}
	if p.Mode == ModeRanged && p.StandardRentalDays < 1 {
		return fmt.Errorf("ranged mode requires a positive standard rental period")
	}
	if p.PrepDays < 0 || p.PickupDays < 1 || p.LeadUsageBuffer < 0 || p.PostBookingExtraDays < 0 {
		return fmt.Errorf("buffer days must be non-negative and pickup days at least 1")
	}
	if p.SecurityDeposit < 0 {
		return fmt.Errorf("security deposit must be non-negative")
	}
	return nil
}

// PostBookingBufferDays sizes the turnaround buffer after each occupied
// window for a session quoted with the given leg durations.
func (p Policy) PostBookingBufferDays(forwardDays, reverseDays int) int {
	n := clampNonNegative(forwardDays) + p.PostBookingExtraDays
	if p.PostBookingIncludesReverse {
		n += clampNonNegative(reverseDays)
	}
	return n
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
