package controllers

import (
	"errors"
	"net/http"

	apperrors "github.com/Vaibhavugile/doenew/common/errors"
	"github.com/Vaibhavugile/doenew/common/logger"
	"github.com/Vaibhavugile/doenew/models"
	"github.com/Vaibhavugile/doenew/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	idempotencyHeader = "Idempotency-Key"
	userIDHeader      = "X-User-ID"
)

// RentalController handles HTTP requests for the rental booking flow.
type RentalController struct {
	serviceability services.ServiceabilityService
	availability   services.AvailabilityService
	booking        services.BookingService
}

// NewRentalController creates a new RentalController.
func NewRentalController(
	serviceability services.ServiceabilityService,
	availability services.AvailabilityService,
	booking services.BookingService,
) *RentalController {
	return &RentalController{
		serviceability: serviceability,
		availability:   availability,
		booking:        booking,
	}
}

// CheckServiceability handles POST /rentals/serviceability
func (rc *RentalController) CheckServiceability(ctx *gin.Context) {
	var req models.ServiceabilityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	quote, err := rc.serviceability.CheckServiceability(ctx.Request.Context(), req.ProductID, req.Pincode)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, quote)
}

// SelectQuote handles POST /rentals/quotes/:quote_id/select
func (rc *RentalController) SelectQuote(ctx *gin.Context) {
	var req models.SelectQuoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	sel, err := rc.serviceability.SelectQuote(ctx.Request.Context(), ctx.Param("quote_id"), req.Option)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sel)
}

// Availability handles GET /rentals/availability
func (rc *RentalController) Availability(ctx *gin.Context) {
	var q models.AvailabilityQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		badRequest(ctx, err)
		return
	}

	cal, err := rc.availability.Availability(ctx.Request.Context(), q)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, cal)
}

// PreviewBooking handles POST /rentals/bookings/preview
func (rc *RentalController) PreviewBooking(ctx *gin.Context) {
	var req models.BookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	preview, err := rc.booking.Preview(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, preview)
}

// ConfirmBooking handles POST /rentals/bookings
func (rc *RentalController) ConfirmBooking(ctx *gin.Context) {
	var req models.BookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	res, err := rc.booking.Confirm(ctx.Request.Context(), req, ctx.GetHeader(idempotencyHeader), ctx.GetHeader(userIDHeader))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, res)
}

// GetBooking handles GET /rentals/bookings/:id
func (rc *RentalController) GetBooking(ctx *gin.Context) {
	res, err := rc.booking.GetReservation(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func badRequest(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"error":     "Invalid request",
		"kind":      apperrors.KindInvalidInput,
		"retryable": false,
		"details":   err.Error(),
	})
}

// respondError renders err as {"error", "kind", "retryable"}. A failed booking write
// also returns the computed booking so the client can resubmit it.
func respondError(ctx *gin.Context, err error) {
	appErr := apperrors.As(err)
	body := apperrors.Body(appErr)

	var pf *services.PersistFailure
	if errors.As(err, &pf) {
		body["booking"] = pf.Preview
	}
	if appErr.Code >= http.StatusInternalServerError {
		logger.Error(ctx.Request.Context(), "Rental request failed", err,
			zap.String("path", ctx.FullPath()),
			zap.String("kind", string(appErr.Kind)))
	}
	ctx.JSON(appErr.Code, body)
}
