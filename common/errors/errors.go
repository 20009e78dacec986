package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies an error for callers that branch on failure type.
type Kind string

const (
	KindInvalidInput              Kind = "invalid_input"
	KindServiceabilityAuth        Kind = "serviceability_auth"
	KindServiceabilityUnavailable Kind = "serviceability_unavailable"
	KindServiceabilityTransient   Kind = "serviceability_transient"
	KindBookingPersist            Kind = "booking_persist"
	KindBookingConflict           Kind = "booking_conflict"
	KindQuoteExpired              Kind = "quote_expired"
	KindNotFound                  Kind = "not_found"
	KindInternal                  Kind = "internal"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the caller may simply try again.
func (e *Error) Retryable() bool {
	return e.Kind == KindServiceabilityTransient || e.Kind == KindBookingPersist
}

// New creates a new Error
func New(code int, kind Kind, message string, err error) *Error {
	return &Error{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Sentinels for errors.Is checks. Never return these directly; use the
// constructors below so the wrapped cause is kept.
var (
	ErrInvalidInput              = New(http.StatusBadRequest, KindInvalidInput, "Invalid input", nil)
	ErrServiceabilityAuth        = New(http.StatusBadGateway, KindServiceabilityAuth, "Delivery check is temporarily unavailable. Please try again later.", nil)
	ErrServiceabilityUnavailable = New(http.StatusUnprocessableEntity, KindServiceabilityUnavailable, "Delivery not available for this pincode", nil)
	ErrServiceabilityTransient   = New(http.StatusServiceUnavailable, KindServiceabilityTransient, "Could not reach the courier service. Please try again.", nil)
	ErrBookingPersist            = New(http.StatusServiceUnavailable, KindBookingPersist, "Your booking could not be saved. Please confirm again.", nil)
	ErrBookingConflict           = New(http.StatusConflict, KindBookingConflict, "These dates were just booked by someone else. Please pick different dates.", nil)
	ErrQuoteExpired              = New(http.StatusGone, KindQuoteExpired, "Delivery quote expired. Please check your pincode again.", nil)
	ErrNotFound                  = New(http.StatusNotFound, KindNotFound, "Not found", nil)
	ErrInternalServer            = New(http.StatusInternalServerError, KindInternal, "Internal server error", nil)
)

func wrap(sentinel *Error, message string, err error) *Error {
	if message == "" {
		message = sentinel.Message
	}
	return New(sentinel.Code, sentinel.Kind, message, err)
}

// InvalidInput carries a user-facing validation message.
func InvalidInput(message string, err error) *Error {
	return wrap(ErrInvalidInput, message, err)
}

// ServiceabilityAuth hides the upstream detail behind a generic message.
func ServiceabilityAuth(err error) *Error {
	return wrap(ErrServiceabilityAuth, "", err)
}

func ServiceabilityUnavailable(err error) *Error {
	return wrap(ErrServiceabilityUnavailable, "", err)
}

func ServiceabilityTransient(err error) *Error {
	return wrap(ErrServiceabilityTransient, "", err)
}

func BookingPersist(err error) *Error {
	return wrap(ErrBookingPersist, "", err)
}

func BookingConflict(err error) *Error {
	return wrap(ErrBookingConflict, "", err)
}

func QuoteExpired(err error) *Error {
	return wrap(ErrQuoteExpired, "", err)
}

func NotFound(message string, err error) *Error {
	return wrap(ErrNotFound, message, err)
}

func Internal(err error) *Error {
	return wrap(ErrInternalServer, "", err)
}

// As extracts an *Error from err, falling back to an internal error.
func As(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Body is the JSON response for err. Internal causes are never included.
func Body(err *Error) gin.H {
	return gin.H{"error": err.Message, "kind": err.Kind, "retryable": err.Retryable()}
}

// Error middleware for Gin
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			appErr := As(c.Errors.Last().Err)
			c.AbortWithStatusJSON(appErr.Code, Body(appErr))
		}
	}
}
