package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Vaibhavugile/doenew/availability"
	"github.com/Vaibhavugile/doenew/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("reservation not found")

const pgUniqueViolation = "23505"

// AvailabilityCheck validates a new reservation against the reservations
// already holding the variant. A non-nil error aborts the insert.
type AvailabilityCheck func(existing []models.RentalReservation) error

// ReservationRepository defines the interface for reservation data access.
type ReservationRepository interface {
	// ListActive returns reservations for the variant that still hold
	// inventory and whose occupied window ends on or after from.
	ListActive(ctx context.Context, productID string, variant availability.Variant, from time.Time) ([]models.RentalReservation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.RentalReservation, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.RentalReservation, error)
	// CreateIfAvailable serialises bookings per variant, re-reads the active
	// reservations from `from` onwards, runs check and inserts res when it
	// passes. The check error is returned unchanged.
	CreateIfAvailable(ctx context.Context, res *models.RentalReservation, from time.Time, check AvailabilityCheck) error
}

// GormReservationRepository implements ReservationRepository using GORM.
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository.
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

func activeFor(tx *gorm.DB, productID string, variant availability.Variant, from time.Time) *gorm.DB {
	return tx.Where("product_id = ? AND variant_size = ? AND variant_color = ?", productID, variant.Size, variant.Color).
		Where("status NOT IN ?", models.ReleasedStatuses).
		Where("occupied_end >= ?", models.NewDate(from)).
		Order("occupied_start ASC")
}

func (r *GormReservationRepository) ListActive(ctx context.Context, productID string, variant availability.Variant, from time.Time) ([]models.RentalReservation, error) {
	var out []models.RentalReservation
	if err := activeFor(r.db.WithContext(ctx), productID, variant, from).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.RentalReservation, error) {
	var res models.RentalReservation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&res).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find reservation: %w", err)
	}
	return &res, nil
}

func (r *GormReservationRepository) FindByIdempotencyKey(ctx context.Context, key string) (*models.RentalReservation, error) {
	var res models.RentalReservation
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&res).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find reservation by idempotency key: %w", err)
	}
	return &res, nil
}

func (r *GormReservationRepository) CreateIfAvailable(ctx context.Context, res *models.RentalReservation, from time.Time, check AvailabilityCheck) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Released at commit or rollback.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", variantLockKey(res)).Error; err != nil {
			return fmt.Errorf("lock variant: %w", err)
		}

		var existing []models.RentalReservation
		if err := activeFor(tx, res.ProductID, res.Variant(), from).Find(&existing).Error; err != nil {
			return fmt.Errorf("reload reservations: %w", err)
		}
		if err := check(existing); err != nil {
			return err
		}

		if err := tx.Create(res).Error; err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		return nil
	})
}

func variantLockKey(res *models.RentalReservation) string {
	return "rental:" + res.ProductID + ":" + res.VariantSize + ":" + res.VariantColor
}

// IsUniqueViolation reports whether err is a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
