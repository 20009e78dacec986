package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Vaibhavugile/doenew/availability"
	apperrors "github.com/Vaibhavugile/doenew/common/errors"
	"github.com/Vaibhavugile/doenew/models"
	awspkg "github.com/Vaibhavugile/doenew/pkg/aws"
	"github.com/Vaibhavugile/doenew/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	publishTimeout        = 5 * time.Second
)

// BookingService previews and confirms rental reservations.
type BookingService interface {
	Preview(ctx context.Context, req models.BookingRequest) (*models.BookingPreview, error)
	Confirm(ctx context.Context, req models.BookingRequest, idempotencyKey, customerID string) (*models.RentalReservation, error)
	GetReservation(ctx context.Context, id string) (*models.RentalReservation, error)
}

// EventPublisher delivers rental events to a stream.
type EventPublisher interface {
	PublishRentalBooked(ctx context.Context, evt models.RentalBookedEvent) error
}

// PersistFailure is returned by Confirm when the reservation could not be
// written. Preview holds the computed booking so the client can resubmit.
type PersistFailure struct {
	Preview *models.BookingPreview
	Err     *apperrors.Error
}

func (e *PersistFailure) Error() string { return e.Err.Error() }

func (e *PersistFailure) Unwrap() error { return e.Err }

// BookingConfig holds the optional event sinks.
type BookingConfig struct {
	SNSTopicArn    string
	IdempotencyTTL time.Duration
}

type bookingServiceImpl struct {
	reservations repository.ReservationRepository
	catalog      repository.ProductCatalog
	idem         repository.IdempotencyStore
	resolver     *quoteResolver
	policy       availability.Policy
	clock        availability.Clock
	snsClient    awspkg.SNSPublisher
	events       EventPublisher
	cfg          BookingConfig
	metrics      metricsSink
	logger       *zap.Logger
}

// NewBookingService creates a new BookingService. snsClient and events may
// be nil.
func NewBookingService(
	reservations repository.ReservationRepository,
	catalog repository.ProductCatalog,
	quotes repository.QuoteStore,
	idem repository.IdempotencyStore,
	policy availability.Policy,
	clock availability.Clock,
	snsClient awspkg.SNSPublisher,
	events EventPublisher,
	cfg BookingConfig,
	metrics awspkg.MetricsRecorder,
	logger *zap.Logger,
) BookingService {
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = defaultIdempotencyTTL
	}
	return &bookingServiceImpl{
		reservations: reservations,
		catalog:      catalog,
		idem:         idem,
		resolver:     &quoteResolver{quotes: quotes, policy: policy, clock: clock},
		policy:       policy,
		clock:        clock,
		snsClient:    snsClient,
		events:       events,
		cfg:          cfg,
		metrics:      metricsSink{recorder: metrics, logger: logger},
		logger:       logger,
	}
}

// booking is a validated request with everything needed to persist it.
type booking struct {
	sel     *models.SelectedQuote
	product *models.Product
	preview *models.BookingPreview
	today   time.Time
}

func (s *bookingServiceImpl) prepare(ctx context.Context, req models.BookingRequest) (*booking, error) {
	sel, err := s.resolver.resolve(ctx, req.QuoteID, req.Option)
	if err != nil {
		return nil, err
	}
	variant := availability.Variant{Size: req.Size, Color: req.Color}
	product, err := loadVariant(ctx, s.catalog, sel.ProductID, variant)
	if err != nil {
		return nil, err
	}

	start, end, err := usageRange(req.UsageStart, req.UsageEnd)
	if err != nil {
		return nil, err
	}
	today := s.clock.Today()
	predicate, err := buildPredicate(ctx, s.reservations, sel, variant, start, today, s.policy)
	if err != nil {
		return nil, err
	}
	if err := predicate.ValidateUsage(start, end); err != nil {
		return nil, usageError(err)
	}

	policy := s.policy
	if product.SecurityDeposit > 0 {
		policy.SecurityDeposit = product.SecurityDeposit
	}
	window := availability.CalculateWindow(start, end, sel.ForwardDays, sel.ReverseDays, policy)
	price := availability.Price(policy, availability.RentalDays(start, end, policy), product.Rent, sel.Option.TotalPrice)

	return &booking{
		sel:     sel,
		product: product,
		today:   today,
		preview: &models.BookingPreview{
			QuoteID:         sel.QuoteID,
			ProductID:       product.ID,
			ProductName:     product.Name,
			Variant:         variant,
			DeliveryPincode: sel.DeliveryPincode,
			Option:          sel.Option,
			Window:          window,
			Price:           price,
			Status:          models.ReservationStatusPendingPayment,
		},
	}, nil
}

func usageRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := availability.ParseDate(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.InvalidInput(err.Error(), err)
	}
	end := start
	if endStr != "" {
		if end, err = availability.ParseDate(endStr); err != nil {
			return time.Time{}, time.Time{}, apperrors.InvalidInput(err.Error(), err)
		}
	}
	return start, end, nil
}

// Preview computes the logistics window and price without persisting.
func (s *bookingServiceImpl) Preview(ctx context.Context, req models.BookingRequest) (*models.BookingPreview, error) {
	b, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return b.preview, nil
}

// Confirm persists the booking. Availability of the whole logistics window is
// re-checked against a fresh read under a per-variant lock; a repeated
// idempotency key returns the reservation created by the first call.
func (s *bookingServiceImpl) Confirm(ctx context.Context, req models.BookingRequest, idempotencyKey, customerID string) (*models.RentalReservation, error) {
	if idempotencyKey != "" {
		if existing := s.lookupIdempotent(ctx, idempotencyKey); existing != nil {
			return existing, nil
		}
	}

	b, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	res := newReservation(b, customerID, idempotencyKey)

	w := b.preview.Window
	err = s.reservations.CreateIfAvailable(ctx, res, lookbackFrom(w.UsageStart, b.sel, s.policy),
		func(existing []models.RentalReservation) error {
			return newPredicate(existing, b.sel, b.today, s.policy).ValidateUsage(w.UsageStart, w.UsageEnd)
		})
	switch {
	case err == nil:
	case idempotencyKey != "" && repository.IsUniqueViolation(err):
		// Lost the race against a concurrent request with the same key.
		existing, findErr := s.reservations.FindByIdempotencyKey(ctx, idempotencyKey)
		if findErr != nil {
			return nil, s.persistFailure(ctx, b, findErr)
		}
		return existing, nil
	case errors.Is(err, availability.ErrDatesUnavailable):
		s.metrics.count(ctx, awspkg.MetricBookingConflicts, map[string]string{"ProductID": res.ProductID})
		s.logger.Info("Booking conflict at commit",
			zap.String("product_id", res.ProductID),
			zap.String("usage_start", res.CustomerUseStart.String()),
			zap.Error(err))
		return nil, apperrors.BookingConflict(err)
	case isUsageError(err):
		return nil, usageError(err)
	default:
		return nil, s.persistFailure(ctx, b, err)
	}

	if idempotencyKey != "" {
		if err := s.idem.Set(ctx, idempotencyKey, res.ID.String(), s.cfg.IdempotencyTTL); err != nil {
			s.logger.Warn("Failed to store idempotency key", zap.String("reservation_id", res.ID.String()), zap.Error(err))
		}
	}

	s.metrics.count(ctx, awspkg.MetricRentalsBooked, map[string]string{"Mode": string(s.policy.Mode)})
	s.logger.Info("Rental reserved",
		zap.String("reservation_id", res.ID.String()),
		zap.String("product_id", res.ProductID),
		zap.String("variant", res.VariantSize+"/"+res.VariantColor),
		zap.String("occupied_start", res.OccupiedStart.String()),
		zap.String("occupied_end", res.OccupiedEnd.String()))

	s.publishBooked(ctx, res, w)
	return res, nil
}

func isUsageError(err error) bool {
	return usageError(err).Kind == apperrors.KindInvalidInput
}

func (s *bookingServiceImpl) persistFailure(ctx context.Context, b *booking, err error) error {
	s.metrics.count(ctx, awspkg.MetricBookingPersistFailures, nil)
	s.logger.Error("Failed to persist reservation",
		zap.String("product_id", b.preview.ProductID),
		zap.String("quote_id", b.preview.QuoteID),
		zap.Error(err))
	return &PersistFailure{Preview: b.preview, Err: apperrors.BookingPersist(err)}
}

func (s *bookingServiceImpl) lookupIdempotent(ctx context.Context, key string) *models.RentalReservation {
	if id, err := s.idem.Get(ctx, key); err != nil {
		s.logger.Warn("Idempotency store unavailable", zap.Error(err))
	} else if id != "" {
		if rid, err := uuid.Parse(id); err == nil {
			if res, err := s.reservations.FindByID(ctx, rid); err == nil {
				return res
			}
		}
	}
	if res, err := s.reservations.FindByIdempotencyKey(ctx, key); err == nil {
		return res
	}
	return nil
}

func newReservation(b *booking, customerID, idempotencyKey string) *models.RentalReservation {
	p, w, price := b.preview, b.preview.Window, b.preview.Price
	res := &models.RentalReservation{
		ID:               uuid.New(),
		ProductID:        p.ProductID,
		ProductName:      p.ProductName,
		VariantSize:      p.Variant.Size,
		VariantColor:     p.Variant.Color,
		OccupiedStart:    models.NewDate(w.ShipDate),
		OccupiedEnd:      models.NewDate(w.ReceiveBackDate),
		CustomerUseStart: models.NewDate(w.UsageStart),
		CustomerUseEnd:   models.NewDate(w.UsageEnd),
		PickupDate:       models.NewDate(w.PickupDate),
		RentalDays:       price.RentalDays,
		ProductRent:      b.product.Rent,
		Subtotal:         price.Subtotal,
		SecurityDeposit:  price.SecurityDeposit,
		DeliveryCharge:   price.DeliveryCharge,
		GrandTotal:       price.GrandTotal,
		DeliveryOption:   string(p.Option.Name),
		ForwardCarrier:   p.Option.Forward.CarrierName,
		ReverseCarrier:   p.Option.Reverse.CarrierName,
		ForwardDays:      w.ForwardDays,
		ReverseDays:      w.ReverseDays,
		DeliveryPincode:  p.DeliveryPincode,
		CustomerID:       customerID,
		Status:           models.ReservationStatusPendingPayment,
	}
	if idempotencyKey != "" {
		res.IdempotencyKey = &idempotencyKey
	}
	return res
}

// publishBooked fans the event out to SNS and Kafka. Failures are logged
// only; the reservation is already committed.
func (s *bookingServiceImpl) publishBooked(ctx context.Context, res *models.RentalReservation, w availability.Window) {
	evt := models.RentalBookedEvent{
		EventType:       models.EventRentalBooked,
		ReservationID:   res.ID.String(),
		ProductID:       res.ProductID,
		VariantSize:     res.VariantSize,
		VariantColor:    res.VariantColor,
		ShipDate:        models.NewDate(w.ShipDate),
		UsageStart:      res.CustomerUseStart,
		UsageEnd:        res.CustomerUseEnd,
		ReceiveBackDate: models.NewDate(w.ReceiveBackDate),
		DeliveryPincode: res.DeliveryPincode,
		GrandTotal:      res.GrandTotal,
		CustomerID:      res.CustomerID,
		Status:          res.Status,
		Timestamp:       time.Now().UTC(),
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if s.snsClient != nil && s.cfg.SNSTopicArn != "" {
		payload, err := json.Marshal(evt)
		if err != nil {
			s.logger.Error("Failed to marshal rental event", zap.Error(err))
		} else if err := s.snsClient.Publish(pubCtx, s.cfg.SNSTopicArn, payload, map[string]string{"event_type": evt.EventType}); err != nil {
			s.logger.Warn("Failed to publish rental event to SNS", zap.String("reservation_id", evt.ReservationID), zap.Error(err))
		}
	}
	if s.events != nil {
		if err := s.events.PublishRentalBooked(pubCtx, evt); err != nil {
			s.logger.Warn("Failed to publish rental event to Kafka", zap.String("reservation_id", evt.ReservationID), zap.Error(err))
		}
	}
}

// GetReservation reads back a persisted reservation.
func (s *bookingServiceImpl) GetReservation(ctx context.Context, id string) (*models.RentalReservation, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.InvalidInput("Invalid reservation ID", err)
	}
	res, err := s.reservations.FindByID(ctx, rid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Reservation not found", err)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return res, nil
}
