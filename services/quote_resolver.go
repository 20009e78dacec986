package services

import (
	"context"
	"errors"

	"github.com/Vaibhavugile/doenew/availability"
	apperrors "github.com/Vaibhavugile/doenew/common/errors"
	"github.com/Vaibhavugile/doenew/models"
	"github.com/Vaibhavugile/doenew/repository"
)

// quoteResolver turns a stored quote session and an option name into the
// leg durations every later step computes from.
type quoteResolver struct {
	quotes repository.QuoteStore
	policy availability.Policy
	clock  availability.Clock
}

func (r *quoteResolver) session(ctx context.Context, quoteID string) (*models.QuoteSession, error) {
	q, err := r.quotes.Get(ctx, quoteID)
	if errors.Is(err, repository.ErrQuoteNotFound) {
		return nil, apperrors.QuoteExpired(err)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return q, nil
}

func (r *quoteResolver) resolve(ctx context.Context, quoteID string, option availability.OptionName) (*models.SelectedQuote, error) {
	q, err := r.session(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	opt, ok := availability.FindOption(q.Options, option)
	if !ok {
		return nil, apperrors.InvalidInput("Delivery option "+string(option)+" is not offered for this quote", nil)
	}

	fwd, rev := opt.Forward.EtaDays, opt.Reverse.EtaDays
	return &models.SelectedQuote{
		QuoteID:               q.ID,
		ProductID:             q.ProductID,
		DeliveryPincode:       q.DeliveryPincode,
		Option:                opt,
		ForwardDays:           fwd,
		ReverseDays:           rev,
		PostBookingBufferDays: r.policy.PostBookingBufferDays(fwd, rev),
		MinStartDate:          models.NewDate(availability.MinLeadDate(r.clock.Today(), fwd, r.policy)),
		RentalMode:            r.policy.Mode,
		MinRentalDays:         r.policy.MinRentalDays,
		MaxRentalDays:         r.policy.MaxRentalDays,
	}, nil
}
