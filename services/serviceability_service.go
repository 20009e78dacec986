package services

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/Vaibhavugile/doenew/availability"
	apperrors "github.com/Vaibhavugile/doenew/common/errors"
	"github.com/Vaibhavugile/doenew/models"
	awspkg "github.com/Vaibhavugile/doenew/pkg/aws"
	"github.com/Vaibhavugile/doenew/providers"
	"github.com/Vaibhavugile/doenew/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var pincodePattern = regexp.MustCompile(`^\d{6}$`)

var ErrInvalidPincode = errors.New("pincode must be exactly 6 digits")

// ValidatePincode accepts Indian postal codes: exactly six ASCII digits.
func ValidatePincode(pincode string) error {
	if !pincodePattern.MatchString(pincode) {
		return ErrInvalidPincode
	}
	return nil
}

// ServiceabilityService defines the delivery-quote half of the booking flow.
type ServiceabilityService interface {
	CheckServiceability(ctx context.Context, productID, pincode string) (*models.QuoteSession, error)
	SelectQuote(ctx context.Context, quoteID string, option availability.OptionName) (*models.SelectedQuote, error)
}

// ServiceabilityConfig holds the warehouse details sent to the courier.
type ServiceabilityConfig struct {
	PickupPincode   string
	DefaultWeightKg float64
	QuoteTTL        time.Duration
	// Now stamps quote expiry. Defaults to time.Now.
	Now func() time.Time
}

type serviceabilityServiceImpl struct {
	provider providers.CourierProvider
	catalog  repository.ProductCatalog
	quotes   repository.QuoteStore
	resolver *quoteResolver
	cfg      ServiceabilityConfig
	clock    availability.Clock
	now      func() time.Time
	metrics  metricsSink
	logger   *zap.Logger
}

// NewServiceabilityService creates a new ServiceabilityService.
func NewServiceabilityService(
	provider providers.CourierProvider,
	catalog repository.ProductCatalog,
	quotes repository.QuoteStore,
	policy availability.Policy,
	cfg ServiceabilityConfig,
	clock availability.Clock,
	metrics awspkg.MetricsRecorder,
	logger *zap.Logger,
) ServiceabilityService {
	if cfg.DefaultWeightKg <= 0 {
		cfg.DefaultWeightKg = 0.5
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = 30 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &serviceabilityServiceImpl{
		provider: provider,
		catalog:  catalog,
		quotes:   quotes,
		resolver: &quoteResolver{quotes: quotes, policy: policy, clock: clock},
		cfg:      cfg,
		clock:    clock,
		now:      cfg.Now,
		metrics:  metricsSink{recorder: metrics, logger: logger},
		logger:   logger,
	}
}

// CheckServiceability quotes both courier legs for a pincode and stores the
// result as a quote session.
func (s *serviceabilityServiceImpl) CheckServiceability(ctx context.Context, productID, pincode string) (*models.QuoteSession, error) {
	if err := ValidatePincode(pincode); err != nil {
		return nil, apperrors.InvalidInput("Enter a valid 6-digit pincode", err)
	}

	product, err := loadProduct(ctx, s.catalog, productID)
	if err != nil {
		return nil, err
	}
	weight := product.WeightKg
	if weight <= 0 {
		weight = s.cfg.DefaultWeightKg
	}

	today := s.clock.Today()
	forward, err := s.quoteLeg(ctx, providers.RateRequest{
		Leg:             availability.LegForward,
		PickupPincode:   s.cfg.PickupPincode,
		DeliveryPincode: pincode,
		CashOnDelivery:  product.CashOnDelivery,
		WeightKg:        weight,
	}, today)
	if err != nil {
		return nil, err
	}
	// Returns are always prepaid.
	reverse, err := s.quoteLeg(ctx, providers.RateRequest{
		Leg:             availability.LegReverse,
		PickupPincode:   pincode,
		DeliveryPincode: s.cfg.PickupPincode,
		CashOnDelivery:  false,
		WeightKg:        weight,
	}, today)
	if err != nil {
		return nil, err
	}

	session := &models.QuoteSession{
		ID:              uuid.NewString(),
		ProductID:       product.ID,
		DeliveryPincode: pincode,
		QuotedOn:        models.NewDate(today),
		Forward:         forward,
		Reverse:         reverse,
		Options:         availability.DeliveryOptions(forward, reverse),
		ExpiresAt:       s.now().Add(s.cfg.QuoteTTL).UTC(),
	}
	if err := s.quotes.Save(ctx, session); err != nil {
		s.logger.Error("Failed to store quote session", zap.String("product_id", productID), zap.Error(err))
		return nil, apperrors.Internal(err)
	}

	s.metrics.count(ctx, awspkg.MetricServiceabilityChecks, map[string]string{"Result": "serviceable"})
	s.logger.Info("Serviceability checked",
		zap.String("quote_id", session.ID),
		zap.String("product_id", product.ID),
		zap.String("pincode", pincode),
		zap.Int("options", len(session.Options)))
	return session, nil
}

func (s *serviceabilityServiceImpl) quoteLeg(ctx context.Context, req providers.RateRequest, today time.Time) (availability.LegSelection, error) {
	start := time.Now()
	rates, err := s.provider.Rates(ctx, req)
	s.metrics.latency(ctx, awspkg.MetricCourierLatency, time.Since(start), map[string]string{"Leg": string(req.Leg)})
	if err != nil {
		appErr := classifyCourierError(ctx, err)
		s.metrics.count(ctx, awspkg.MetricServiceabilityFailures, map[string]string{"Kind": string(appErr.Kind)})
		s.logger.Warn("Courier serviceability failed",
			zap.String("leg", string(req.Leg)),
			zap.String("pincode", req.DeliveryPincode),
			zap.String("kind", string(appErr.Kind)),
			zap.Error(err))
		return availability.LegSelection{}, appErr
	}

	quotes := make([]availability.TransitQuote, 0, len(rates))
	for _, r := range rates {
		quotes = append(quotes, availability.TransitQuote{
			Leg:         req.Leg,
			CarrierName: r.CourierName,
			EtaDate:     r.EtaDate,
			EtaDays:     availability.EtaDays(r.EtaDate, today),
			Price:       r.Price,
		})
	}
	sel, err := availability.SelectLeg(quotes)
	if err != nil {
		return availability.LegSelection{}, apperrors.ServiceabilityUnavailable(err)
	}
	return sel, nil
}

// classifyCourierError maps provider failures onto the error kinds shown to
// the storefront. Anything unrecognised is treated as transient.
func classifyCourierError(ctx context.Context, err error) *apperrors.Error {
	switch {
	case errors.Is(err, providers.ErrAuth):
		return apperrors.ServiceabilityAuth(err)
	case errors.Is(err, providers.ErrNoService):
		return apperrors.ServiceabilityUnavailable(err)
	case ctx.Err() != nil:
		return apperrors.ServiceabilityTransient(ctx.Err())
	default:
		return apperrors.ServiceabilityTransient(err)
	}
}

// SelectQuote resolves a delivery option into the leg durations and the
// earliest usage start the calendar will allow.
func (s *serviceabilityServiceImpl) SelectQuote(ctx context.Context, quoteID string, option availability.OptionName) (*models.SelectedQuote, error) {
	return s.resolver.resolve(ctx, quoteID, option)
}

func loadProduct(ctx context.Context, catalog repository.ProductCatalog, productID string) (*models.Product, error) {
	product, err := catalog.GetProduct(ctx, productID)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, apperrors.NotFound("Product not found", err)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !product.Active {
		return nil, apperrors.NotFound("Product not found", nil)
	}
	return product, nil
}
