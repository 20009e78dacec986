package providers

import (
	"context"
	"errors"
	"time"

	"github.com/Vaibhavugile/doenew/availability"
)

// Courier failures fall into three classes, checked with errors.Is.
var (
	// ErrAuth means the courier rejected our credentials.
	ErrAuth = errors.New("courier authentication failed")
	// ErrNoService means no courier covers the route.
	ErrNoService = errors.New("no courier serviceable for route")
	// ErrTransient covers timeouts, network errors and unexpected responses.
	ErrTransient = errors.New("courier request failed")
)

// RateRequest asks for courier rates on one leg.
type RateRequest struct {
	Leg             availability.Leg
	PickupPincode   string
	DeliveryPincode string
	CashOnDelivery  bool
	WeightKg        float64
}

// CourierRate is one courier's answer. EtaDate is nil when the courier gave
// no usable estimate.
type CourierRate struct {
	CourierName string
	EtaDate     *time.Time
	Price       float64
}

// CourierProvider defines the interface courier aggregators must implement.
type CourierProvider interface {
	// Rates returns the couriers serving the leg, in the order the
	// aggregator listed them.
	Rates(ctx context.Context, req RateRequest) ([]CourierRate, error)
}

// TokenCache stores the aggregator's bearer token between requests.
type TokenCache interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}
