package availability

import (
	"encoding/json"
	"math"
	"time"
)

// EtaDays converts a courier's absolute delivery date into days from today.
// A missing ETA counts as zero days; past dates clamp to zero.
func EtaDays(eta *time.Time, today time.Time) int {
	if eta == nil || eta.IsZero() {
		return 0
	}
	return clampNonNegative(DaysBetween(today, *eta))
}

// Window is the full logistics span derived from a usage window.
type Window struct {
	ForwardDays int
	ReverseDays int
	PrepDays    int
	PickupDays  int

	ShipDate        time.Time
	UsageStart      time.Time
	UsageEnd        time.Time
	PickupDate      time.Time
	ReceiveBackDate time.Time
}

type windowJSON struct {
	ForwardDays     int    `json:"forward_days"`
	ReverseDays     int    `json:"reverse_days"`
	PrepDays        int    `json:"prep_days"`
	PickupDays      int    `json:"pickup_days"`
	ShipDate        string `json:"ship_date"`
	UsageStart      string `json:"usage_start"`
	UsageEnd        string `json:"usage_end"`
	PickupDate      string `json:"pickup_date"`
	ReceiveBackDate string `json:"receive_back_date"`
}

func (w Window) MarshalJSON() ([]byte, error) {
	return json.Marshal(windowJSON{
		ForwardDays:     w.ForwardDays,
		ReverseDays:     w.ReverseDays,
		PrepDays:        w.PrepDays,
		PickupDays:      w.PickupDays,
		ShipDate:        FormatDate(w.ShipDate),
		UsageStart:      FormatDate(w.UsageStart),
		UsageEnd:        FormatDate(w.UsageEnd),
		PickupDate:      FormatDate(w.PickupDate),
		ReceiveBackDate: FormatDate(w.ReceiveBackDate),
	})
}

func (w *Window) UnmarshalJSON(b []byte) error {
	var raw windowJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := Window{
		ForwardDays: raw.ForwardDays,
		ReverseDays: raw.ReverseDays,
		PrepDays:    raw.PrepDays,
		PickupDays:  raw.PickupDays,
	}
	for _, f := range []struct {
		dst *time.Time
		src string
	}{
		{&out.ShipDate, raw.ShipDate},
		{&out.UsageStart, raw.UsageStart},
		{&out.UsageEnd, raw.UsageEnd},
		{&out.PickupDate, raw.PickupDate},
		{&out.ReceiveBackDate, raw.ReceiveBackDate},
	} {
		d, err := ParseDate(f.src)
		if err != nil {
			return err
		}
		*f.dst = d
	}
	*w = out
	return nil
}

// CalculateWindow derives ship, pickup and receive-back dates. Negative leg
// durations are treated as zero so the ship date never follows usage start.
func CalculateWindow(usageStart, usageEnd time.Time, forwardDays, reverseDays int, policy Policy) Window {
	forwardDays = clampNonNegative(forwardDays)
	reverseDays = clampNonNegative(reverseDays)
	prep := clampNonNegative(policy.PrepDays)
	pickup := policy.PickupDays
	if pickup < 1 {
		pickup = 1
	}

	start, end := DateOf(usageStart), DateOf(usageEnd)
	pickupDate := AddDays(end, pickup)
	return Window{
		ForwardDays:     forwardDays,
		ReverseDays:     reverseDays,
		PrepDays:        prep,
		PickupDays:      pickup,
		ShipDate:        AddDays(start, -(forwardDays + prep)),
		UsageStart:      start,
		UsageEnd:        end,
		PickupDate:      pickupDate,
		ReceiveBackDate: AddDays(pickupDate, reverseDays),
	}
}

// RentalDays is the billable duration. It depends only on the usage window.
func RentalDays(usageStart, usageEnd time.Time, policy Policy) int {
	if policy.Mode == ModeSingleDay {
		return 1
	}
	days := DaysBetween(usageStart, usageEnd) + 1
	if days < policy.MinRentalDays {
		days = policy.MinRentalDays
	}
	if days > policy.MaxRentalDays {
		days = policy.MaxRentalDays
	}
	return days
}

// PriceBreakdown is what the customer pays for one reservation.
type PriceBreakdown struct {
	RentalDays      int     `json:"rental_days"`
	DailyRate       float64 `json:"daily_rate"`
	ExtraDays       int     `json:"extra_days"`
	Subtotal        float64 `json:"subtotal"`
	SecurityDeposit float64 `json:"security_deposit"`
	DeliveryCharge  float64 `json:"delivery_charge"`
	GrandTotal      float64 `json:"grand_total"`
}

// Price bills rentalDays of productRent under policy. deliveryCharge is the
// selected courier option's combined price and is only charged when the
// policy passes delivery through.
func Price(policy Policy, rentalDays int, productRent, deliveryCharge float64) PriceBreakdown {
	b := PriceBreakdown{
		RentalDays:      rentalDays,
		SecurityDeposit: roundMoney(policy.SecurityDeposit),
	}

	switch policy.Mode {
	case ModeRanged:
		standard := policy.StandardRentalDays
		if standard < 1 {
			standard = 1
		}
		b.DailyRate = productRent / float64(standard)
		b.ExtraDays = clampNonNegative(rentalDays - standard)
		b.Subtotal = productRent + float64(b.ExtraDays)*b.DailyRate
	default:
		b.DailyRate = productRent
		b.Subtotal = float64(rentalDays) * productRent
	}
	b.DailyRate = roundMoney(b.DailyRate)
	b.Subtotal = roundMoney(b.Subtotal)

	if policy.PassThroughDelivery {
		b.DeliveryCharge = roundMoney(math.Max(0, deliveryCharge))
	}
	b.GrandTotal = roundMoney(b.Subtotal + b.SecurityDeposit + b.DeliveryCharge)
	return b
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
