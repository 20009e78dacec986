package services

import (
	"context"
	"errors"
	"time"

	"github.com/Vaibhavugile/doenew/availability"
	apperrors "github.com/Vaibhavugile/doenew/common/errors"
	"github.com/Vaibhavugile/doenew/models"
	"github.com/Vaibhavugile/doenew/repository"
	"go.uber.org/zap"
)

// DefaultCalendarDays is the calendar length when no end date is given.
const DefaultCalendarDays = 60

// AvailabilityService renders the booking calendar for one variant.
type AvailabilityService interface {
	Availability(ctx context.Context, q models.AvailabilityQuery) (*models.AvailabilityCalendar, error)
}

type availabilityServiceImpl struct {
	reservations repository.ReservationRepository
	catalog      repository.ProductCatalog
	resolver     *quoteResolver
	policy       availability.Policy
	clock        availability.Clock
	logger       *zap.Logger
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(
	reservations repository.ReservationRepository,
	catalog repository.ProductCatalog,
	quotes repository.QuoteStore,
	policy availability.Policy,
	clock availability.Clock,
	logger *zap.Logger,
) AvailabilityService {
	return &availabilityServiceImpl{
		reservations: reservations,
		catalog:      catalog,
		resolver:     &quoteResolver{quotes: quotes, policy: policy, clock: clock},
		policy:       policy,
		clock:        clock,
		logger:       logger,
	}
}

func (s *availabilityServiceImpl) Availability(ctx context.Context, q models.AvailabilityQuery) (*models.AvailabilityCalendar, error) {
	sel, err := s.resolver.resolve(ctx, q.QuoteID, q.Option)
	if err != nil {
		return nil, err
	}
	variant := availability.Variant{Size: q.Size, Color: q.Color}
	if _, err := loadVariant(ctx, s.catalog, sel.ProductID, variant); err != nil {
		return nil, err
	}

	today := s.clock.Today()
	from, to, err := calendarRange(q.From, q.To, today)
	if err != nil {
		return nil, err
	}

	predicate, err := buildPredicate(ctx, s.reservations, sel, variant, from, today, s.policy)
	if err != nil {
		return nil, err
	}
	days, err := predicate.Calendar(from, to)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error(), err)
	}

	return &models.AvailabilityCalendar{
		Quote:   *sel,
		Variant: variant,
		From:    models.NewDate(from),
		To:      models.NewDate(to),
		Days:    days,
	}, nil
}

func calendarRange(fromStr, toStr string, today time.Time) (time.Time, time.Time, error) {
	from := today
	if fromStr != "" {
		d, err := availability.ParseDate(fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.InvalidInput(err.Error(), err)
		}
		from = d
	}
	to := availability.AddDays(from, DefaultCalendarDays-1)
	if toStr != "" {
		d, err := availability.ParseDate(toStr)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.InvalidInput(err.Error(), err)
		}
		to = d
	}
	return from, to, nil
}

// loadVariant fetches the product and checks it offers the variant.
func loadVariant(ctx context.Context, catalog repository.ProductCatalog, productID string, variant availability.Variant) (*models.Product, error) {
	product, err := loadProduct(ctx, catalog, productID)
	if err != nil {
		return nil, err
	}
	if !product.HasVariant(variant) {
		return nil, apperrors.InvalidInput("Size "+variant.Size+" in "+variant.Color+" is not offered for this product", nil)
	}
	return product, nil
}

// buildPredicate loads every reservation whose occupied window or buffer can
// reach a booking starting on or after `from` and wraps them with the
// selected quote's legs.
func buildPredicate(
	ctx context.Context,
	repo repository.ReservationRepository,
	sel *models.SelectedQuote,
	variant availability.Variant,
	from, today time.Time,
	policy availability.Policy,
) (*availability.Predicate, error) {
	existing, err := repo.ListActive(ctx, sel.ProductID, variant, lookbackFrom(from, sel, policy))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return newPredicate(existing, sel, today, policy), nil
}

func newPredicate(existing []models.RentalReservation, sel *models.SelectedQuote, today time.Time, policy availability.Policy) *availability.Predicate {
	booked := availability.NewBookedWindowSet(models.Intervals(existing), sel.PostBookingBufferDays)
	return availability.NewPredicate(booked, today, sel.ForwardDays, sel.ReverseDays, policy)
}

// lookbackFrom is the earliest occupied end that can still matter for a
// usage start on or after from: either its buffer reaches from, or it
// overlaps the outbound leg.
func lookbackFrom(from time.Time, sel *models.SelectedQuote, policy availability.Policy) time.Time {
	days := max(sel.PostBookingBufferDays, sel.ForwardDays+policy.PrepDays)
	return availability.AddDays(from, -days)
}

// usageError maps a rejected usage window to a user-facing input error.
func usageError(err error) *apperrors.Error {
	switch {
	case errors.Is(err, availability.ErrDatesUnavailable),
		errors.Is(err, availability.ErrBeforeLeadTime),
		errors.Is(err, availability.ErrRentalTooShort),
		errors.Is(err, availability.ErrRentalTooLong),
		errors.Is(err, availability.ErrSingleDayRange),
		errors.Is(err, availability.ErrInvalidRange):
		return apperrors.InvalidInput(err.Error(), err)
	}
	return apperrors.Internal(err)
}
