package models

import (
	"time"

	"github.com/Vaibhavugile/doenew/availability"
	"github.com/google/uuid"
)

// Reservation statuses. A reservation is created as Pending Payment; the
// later transitions belong to the payment and order flows.
const (
	ReservationStatusPendingPayment = "Pending Payment"
	ReservationStatusConfirmed      = "Confirmed"
	ReservationStatusCancelled      = "Cancelled"
	ReservationStatusExpired        = "Expired"
)

// ReleasedStatuses no longer hold inventory.
var ReleasedStatuses = []string{ReservationStatusCancelled, ReservationStatusExpired}

// RentalReservation is the GORM model persisted in Postgres. The occupied
// window blocks the variant for everyone else; the customer-use window is
// what the customer sees.
type RentalReservation struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID   string    `gorm:"type:varchar(128);not null" json:"product_id"`
	ProductName string    `gorm:"type:varchar(256)" json:"product_name"`

	VariantSize  string `gorm:"type:varchar(32);not null" json:"variant_size"`
	VariantColor string `gorm:"type:varchar(64);not null" json:"variant_color"`

	OccupiedStart    Date `gorm:"type:date;not null" json:"occupied_start"`
	OccupiedEnd      Date `gorm:"type:date;not null" json:"occupied_end"`
	CustomerUseStart Date `gorm:"type:date;not null" json:"customer_use_start"`
	CustomerUseEnd   Date `gorm:"type:date;not null" json:"customer_use_end"`
	PickupDate       Date `gorm:"type:date;not null" json:"pickup_date"`

	RentalDays      int     `gorm:"not null" json:"rental_days"`
	ProductRent     float64 `gorm:"type:numeric(12,2);not null" json:"product_rent"`
	Subtotal        float64 `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	SecurityDeposit float64 `gorm:"type:numeric(12,2);not null" json:"security_deposit"`
	DeliveryCharge  float64 `gorm:"type:numeric(12,2);not null" json:"delivery_charge"`
	GrandTotal      float64 `gorm:"type:numeric(12,2);not null" json:"grand_total"`

	DeliveryOption  string `gorm:"type:varchar(16);not null" json:"delivery_option"`
	ForwardCarrier  string `gorm:"type:varchar(128)" json:"forward_carrier"`
	ReverseCarrier  string `gorm:"type:varchar(128)" json:"reverse_carrier"`
	ForwardDays     int    `gorm:"not null" json:"forward_days"`
	ReverseDays     int    `gorm:"not null" json:"reverse_days"`
	DeliveryPincode string `gorm:"type:varchar(6);not null" json:"delivery_pincode"`

	CustomerID     string  `gorm:"type:varchar(128)" json:"customer_id,omitempty"`
	IdempotencyKey *string `gorm:"type:varchar(128);uniqueIndex" json:"-"`
	Status         string  `gorm:"type:varchar(32);not null;default:'Pending Payment'" json:"status"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (RentalReservation) TableName() string { return "rental_reservations" }

// Interval is the reservation as the availability calendar sees it.
func (r RentalReservation) Interval() availability.Interval {
	return availability.Interval{
		OccupiedStart: r.OccupiedStart.Time,
		OccupiedEnd:   r.OccupiedEnd.Time,
		UseStart:      r.CustomerUseStart.Time,
		UseEnd:        r.CustomerUseEnd.Time,
	}
}

// Variant returns the reserved size and color.
func (r RentalReservation) Variant() availability.Variant {
	return availability.Variant{Size: r.VariantSize, Color: r.VariantColor}
}

// Intervals converts reservations for building a BookedWindowSet.
func Intervals(rs []RentalReservation) []availability.Interval {
	out := make([]availability.Interval, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Interval())
	}
	return out
}

// RentalBookedEvent is published to SNS and Kafka when a reservation is saved.
type RentalBookedEvent struct {
	EventType       string    `json:"event_type"`
	ReservationID   string    `json:"reservation_id"`
	ProductID       string    `json:"product_id"`
	VariantSize     string    `json:"variant_size"`
	VariantColor    string    `json:"variant_color"`
	ShipDate        Date      `json:"ship_date"`
	UsageStart      Date      `json:"usage_start"`
	UsageEnd        Date      `json:"usage_end"`
	ReceiveBackDate Date      `json:"receive_back_date"`
	DeliveryPincode string    `json:"delivery_pincode"`
	GrandTotal      float64   `json:"grand_total"`
	CustomerID      string    `json:"customer_id,omitempty"`
	Status          string    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
}

const EventRentalBooked = "rental_booked"
