package routes

import (
	"net/http"

	"github.com/Vaibhavugile/doenew/common/middleware"
	"github.com/Vaibhavugile/doenew/controllers"
	"github.com/gin-gonic/gin"
)

// RegisterRentalRoutes sets up the rental booking routes. limiter may be nil.
func RegisterRentalRoutes(r *gin.Engine, rc *controllers.RentalController, limiter *middleware.RateLimiter) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rentals := r.Group("/rentals")

	// Each check costs two courier API calls.
	serviceability := []gin.HandlerFunc{rc.CheckServiceability}
	if limiter != nil {
		serviceability = append([]gin.HandlerFunc{middleware.RateLimitMiddleware(limiter)}, serviceability...)
	}
	rentals.POST("/serviceability", serviceability...)
	rentals.POST("/quotes/:quote_id/select", rc.SelectQuote)
	rentals.GET("/availability", rc.Availability)

	rentals.POST("/bookings/preview", rc.PreviewBooking)
	rentals.POST("/bookings", rc.ConfirmBooking)
	rentals.GET("/bookings/:id", rc.GetBooking)
}
