package models

import (
	"time"

	"github.com/Vaibhavugile/doenew/availability"
)

// Product is the catalog view the rental flow needs.
type Product struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Rent float64 `json:"rent"`
	// SecurityDeposit overrides the policy deposit when positive.
	SecurityDeposit float64  `json:"security_deposit,omitempty"`
	WeightKg        float64  `json:"weight_kg"`
	CashOnDelivery  bool     `json:"cash_on_delivery"`
	Sizes           []string `json:"sizes"`
	Colors          []string `json:"colors"`
	Active          bool     `json:"active"`
}

// HasVariant reports whether size and color are both offered.
func (p Product) HasVariant(v availability.Variant) bool {
	return contains(p.Sizes, v.Size) && contains(p.Colors, v.Color)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// QuoteSession is the server-side result of one serviceability check.
// Later steps reference it by ID instead of trusting client-sent day counts.
type QuoteSession struct {
	ID              string                        `json:"quote_id"`
	ProductID       string                        `json:"product_id"`
	DeliveryPincode string                        `json:"delivery_pincode"`
	QuotedOn        Date                          `json:"quoted_on"`
	Forward         availability.LegSelection     `json:"forward"`
	Reverse         availability.LegSelection     `json:"reverse"`
	Options         []availability.DeliveryOption `json:"options"`
	ExpiresAt       time.Time                     `json:"expires_at"`
}

// ServiceabilityRequest is the payload for POST /rentals/serviceability.
type ServiceabilityRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Pincode   string `json:"pincode" binding:"required,pincode"`
}

// SelectQuoteRequest is the payload for POST /rentals/quotes/:quote_id/select.
type SelectQuoteRequest struct {
	Option availability.OptionName `json:"option" binding:"required,oneof=fastest cheapest"`
}

// SelectedQuote is a delivery option resolved into the numbers the
// calendar and logistics window are computed from.
type SelectedQuote struct {
	QuoteID               string                      `json:"quote_id"`
	ProductID             string                      `json:"product_id"`
	DeliveryPincode       string                      `json:"delivery_pincode"`
	Option                availability.DeliveryOption `json:"option"`
	ForwardDays           int                         `json:"forward_days"`
	ReverseDays           int                         `json:"reverse_days"`
	PostBookingBufferDays int                         `json:"post_booking_buffer_days"`
	MinStartDate          Date                        `json:"min_start_date"`
	RentalMode            availability.Mode           `json:"rental_mode"`
	MinRentalDays         int                         `json:"min_rental_days"`
	MaxRentalDays         int                         `json:"max_rental_days"`
}

// AvailabilityQuery is bound from GET /rentals/availability.
type AvailabilityQuery struct {
	QuoteID string                  `form:"quote_id" binding:"required"`
	Option  availability.OptionName `form:"option" binding:"required,oneof=fastest cheapest"`
	Size    string                  `form:"size" binding:"required"`
	Color   string                  `form:"color" binding:"required"`
	From    string                  `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To      string                  `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// AvailabilityCalendar is the response of GET /rentals/availability.
type AvailabilityCalendar struct {
	Quote   SelectedQuote              `json:"quote"`
	Variant availability.Variant       `json:"variant"`
	From    Date                       `json:"from"`
	To      Date                       `json:"to"`
	Days    []availability.CalendarDay `json:"days"`
}

// BookingRequest is the payload for the preview and confirm endpoints.
// UsageEnd defaults to UsageStart for single-day rentals.
type BookingRequest struct {
	QuoteID    string                  `json:"quote_id" binding:"required"`
	Option     availability.OptionName `json:"option" binding:"required,oneof=fastest cheapest"`
	Size       string                  `json:"size" binding:"required"`
	Color      string                  `json:"color" binding:"required"`
	UsageStart string                  `json:"usage_start" binding:"required,datetime=2006-01-02"`
	UsageEnd   string                  `json:"usage_end" binding:"omitempty,datetime=2006-01-02"`
}

// BookingPreview is a fully computed booking that has not been persisted.
// It is also returned when persisting fails so the client can retry.
type BookingPreview struct {
	QuoteID         string                      `json:"quote_id"`
	ProductID       string                      `json:"product_id"`
	ProductName     string                      `json:"product_name"`
	Variant         availability.Variant        `json:"variant"`
	DeliveryPincode string                      `json:"delivery_pincode"`
	Option          availability.DeliveryOption `json:"option"`
	Window          availability.Window         `json:"window"`
	Price           availability.PriceBreakdown `json:"price"`
	Status          string                      `json:"status"`
}
