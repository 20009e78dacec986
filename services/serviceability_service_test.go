package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Vaibhavugile/doenew/availability"
	apperrors "github.com/Vaibhavugile/doenew/common/errors"
	"github.com/Vaibhavugile/doenew/models"
	awspkg "github.com/Vaibhavugile/doenew/pkg/aws"
	"github.com/Vaibhavugile/doenew/providers"
	"github.com/Vaibhavugile/doenew/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	warehousePin = "400001"
	customerPin  = "560001"
	productID    = "lehenga-01"
)

type fixture struct {
	provider     *fakeProvider
	catalog      *fakeCatalog
	quotes       *memQuoteStore
	idem         *memIdemStore
	reservations *memReservations
	sns          *fakeSNS
	events       *fakeEvents
	metrics      *fakeMetrics
	policy       availability.Policy

	serviceability services.ServiceabilityService
	availability   services.AvailabilityService
	booking        services.BookingService
}

// newFixture quotes on 2024-01-01. Forward: Delhivery 3 days / 100,
// Ecom 5 days / 60. Reverse: Xpressbees 2 days / 50.
func newFixture(t *testing.T, policy availability.Policy) *fixture {
	t.Helper()
	f := &fixture{
		provider: &fakeProvider{
			rates: map[availability.Leg][]providers.CourierRate{
				availability.LegForward: {
					{CourierName: "Delhivery", EtaDate: ptr(day(t, "2024-01-04")), Price: 100},
					{CourierName: "Ecom Express", EtaDate: ptr(day(t, "2024-01-06")), Price: 60},
				},
				availability.LegReverse: {
					{CourierName: "Xpressbees", EtaDate: ptr(day(t, "2024-01-03")), Price: 50},
				},
			},
		},
		catalog: &fakeCatalog{products: map[string]*models.Product{
			productID: {
				ID: productID, Name: "Bridal Lehenga", Rent: 4000, WeightKg: 1.2, CashOnDelivery: true,
				Sizes: []string{"S", "M"}, Colors: []string{"Red"}, Active: true,
			},
		}},
		quotes:       newMemQuoteStore(),
		idem:         &memIdemStore{},
		reservations: &memReservations{},
		sns:          &fakeSNS{},
		events:       &fakeEvents{},
		metrics:      &fakeMetrics{},
		policy:       policy,
	}
	clock := availability.FixedClock{Date: day(t, "2024-01-01")}
	logger := zap.NewNop()

	f.serviceability = services.NewServiceabilityService(f.provider, f.catalog, f.quotes, policy,
		services.ServiceabilityConfig{PickupPincode: warehousePin}, clock, f.metrics, logger)
	f.availability = services.NewAvailabilityService(f.reservations, f.catalog, f.quotes, policy, clock, logger)
	f.booking = services.NewBookingService(f.reservations, f.catalog, f.quotes, f.idem, policy, clock,
		f.sns, f.events, services.BookingConfig{SNSTopicArn: "arn:aws:sns:ap-south-1:000000000000:rental-events"}, f.metrics, logger)
	return f
}

func (f *fixture) quote(t *testing.T) *models.QuoteSession {
	t.Helper()
	q, err := f.serviceability.CheckServiceability(context.Background(), productID, customerPin)
	require.NoError(t, err)
	return q
}

func kindOf(err error) apperrors.Kind {
	return apperrors.As(err).Kind
}

func TestCheckServiceability_BuildsBothOptions(t *testing.T) {
	f := newFixture(t, availability.DefaultPolicy(availability.ModeSingleDay))

	q := f.quote(t)
	require.Len(t, q.Options, 2)

	fastest, cheapest := q.Options[0], q.Options[1]
	assert.Equal(t, availability.OptionFastest, fastest.Name)
	assert.Equal(t, "Delhivery", fastest.Forward.CarrierName)
	assert.Equal(t, 5, fastest.TotalDays)
	assert.Equal(t, 150.0, fastest.TotalPrice)
	assert.Equal(t, availability.OptionCheapest, cheapest.Name)
	assert.Equal(t, "Ecom Express", cheapest.Forward.CarrierName)
	assert.Equal(t, 7, cheapest.TotalDays)
	assert.Equal(t, 110.0, cheapest.TotalPrice)

	stored, err := f.quotes.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, customerPin, stored.DeliveryPincode)
	assert.Equal(t, 1, f.metrics.count(awspkg.MetricServiceabilityChecks))
}

func TestCheckServiceability_QuoteExpiresAfterTTL(t *testing.T) {
	f := newFixture(t, availability.DefaultPolicy(availability.ModeSingleDay))
	issued := time.Date(2024, 1, 1, 10, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	svc := services.NewServiceabilityService(f.provider, f.catalog, f.quotes, f.policy,
		services.ServiceabilityConfig{PickupPincode: warehousePin, QuoteTTL: 20 * time.Minute, Now: func() time.Time { return issued }},
		availability.FixedClock{Date: day(t, "2024-01-01")}, f.metrics, zap.NewNop())

	q, err := svc.CheckServiceability(context.Background(), productID, customerPin)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 4, 50, 0, 0, time.UTC), q.ExpiresAt)
}

func TestCheckServiceability_ReverseLegIsPrepaidAndSwapsPincodes(t *testing.T) {
	f := newFixture(t, availability.DefaultPolicy(availability.ModeSingleDay))
	f.quote(t)

	require.Len(t, f.provider.requests, 2)
	fwd, rev := f.provider.requests[0], f.provider.requests[1]
	assert.Equal(t, availability.LegForward, fwd.Leg)
	assert.Equal(t, warehousePin, fwd.PickupPincode)
	assert.Equal(t, customerPin, fwd.DeliveryPincode)
	assert.True(t, fwd.CashOnDelivery)
	assert.Equal(t, 1.2, fwd.WeightKg)

	assert.Equal(t, availability.LegReverse, rev.Leg)
	assert.Equal(t, customerPin, rev.PickupPincode)
	assert.Equal(t, warehousePin, rev.DeliveryPincode)
	assert.False(t, rev.CashOnDelivery)
}

func TestCheckServiceability_MalformedPincodeNeverCallsCourier(t *testing.T) {
	f := newFixture(t, availability.DefaultPolicy(availability.ModeSingleDay))

	for _, pin := range []string{"56001", "5600011", "56000A", ""} {
		_, err := f.serviceability.CheckServiceability(context.Background(), productID, pin)
		assert.Equal(t, apperrors.KindInvalidInput, kindOf(err), pin)
	}
	assert.Empty(t, f.provider.requests)
}

func TestCheckServiceability_ErrorKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want apperrors.Kind
	}{
		{"auth", fmt.Errorf("login: %w", providers.ErrAuth), apperrors.KindServiceabilityAuth},
		{"no service", fmt.Errorf("empty list: %w", providers.ErrNoService), apperrors.KindServiceabilityUnavailable},
		{"transient", fmt.Errorf("timeout: %w", providers.ErrTransient), apperrors.KindServiceabilityTransient},
		{"unknown", errBoom, apperrors.KindServiceabilityTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, availability.DefaultPolicy(availability.ModeSingleDay))
			f.provider.errs = map[availability.Leg]error{availability.LegReverse: tc.err}

			_, err := f.serviceability.CheckServiceability(context.Background(), productID, customerPin)
			assert.Equal(t, tc.want, kindOf(err))
			assert.Empty(t, f.quotes.sessions)
			assert.Equal(t, 1, f.metrics.count(awspkg.MetricServiceabilityFailures))
		})
	}
}

func TestCheckServiceability_AuthFailureHidesDetail(t *testing.T) {
	f := newFixture(t, availability.DefaultPolicy(availability.ModeSingleDay))
	f.provider.errs = map[availability.Leg]error{availability.LegForward: fmt.Errorf("status 401 invalid token xyz: %w", providers.ErrAuth)}

	_, err := f.serviceability.CheckServiceability(context.Background(), productID, customerPin)
	body := apperrors.Body(apperrors.As(err))
	assert.NotContains(t, body["error"], "xyz")
}

func TestCheckServiceability_UnknownOrInactiveProduct(t *testing.T) {
	f := newFixture(t, availability.DefaultPolicy(availability.ModeSingleDay))
	_, err := f.serviceability.CheckServiceability(context.Background(), "missing", customerPin)
	assert.Equal(t, apperrors.KindNotFound, kindOf(err))

	f.catalog.products[productID].Active = false
	_, err = f.serviceability.CheckServiceability(context.Background(), productID, customerPin)
	assert.Equal(t, apperrors.KindNotFound, kindOf(err))
}

func TestSelectQuote(t *testing.T) {
	f := newFixture(t, availability.DefaultPolicy(availability.ModeSingleDay))
	q := f.quote(t)

	sel, err := f.serviceability.SelectQuote(context.Background(), q.ID, availability.OptionFastest)
	require.NoError(t, err)
	assert.Equal(t, 3, sel.ForwardDays)
	assert.Equal(t, 2, sel.ReverseDays)
	assert.Equal(t, 5, sel.PostBookingBufferDays)
	assert.Equal(t, "2024-01-05", sel.MinStartDate.String())

	sel, err = f.serviceability.SelectQuote(context.Background(), q.ID, availability.OptionCheapest)
	require.NoError(t, err)
	assert.Equal(t, 5, sel.ForwardDays)
	assert.Equal(t, "2024-01-07", sel.MinStartDate.String())

	_, err = f.serviceability.SelectQuote(context.Background(), "unknown", availability.OptionFastest)
	assert.Equal(t, apperrors.KindQuoteExpired, kindOf(err))
}

func TestSelectQuote_CollapsedCheapestIsRejected(t *testing.T) {
	f := newFixture(t, availability.DefaultPolicy(availability.ModeSingleDay))
	f.provider.rates[availability.LegForward] = f.provider.rates[availability.LegForward][:1]
	q := f.quote(t)
	require.Len(t, q.Options, 1)

	_, err := f.serviceability.SelectQuote(context.Background(), q.ID, availability.OptionCheapest)
	assert.Equal(t, apperrors.KindInvalidInput, kindOf(err))
}

func TestValidatePincode(t *testing.T) {
	assert.NoError(t, services.ValidatePincode("110001"))
	assert.ErrorIs(t, services.ValidatePincode("11000"), services.ErrInvalidPincode)
	assert.ErrorIs(t, services.ValidatePincode("११०००१"), services.ErrInvalidPincode)
}
