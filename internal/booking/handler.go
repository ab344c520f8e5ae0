package booking

import (
	"errors"
	"net/http"
	"time"

	"karyalay/internal/api"
	"karyalay/internal/auth"
	"karyalay/internal/availability"
	"karyalay/internal/logger"
	"karyalay/internal/venue"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CreateBooking handles POST /bookings.
func (h *Handler) CreateBooking(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case IsClientError(err):
			api.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, venue.ErrVenueNotFound):
			api.Error(c, http.StatusNotFound, "Venue not found")
		case errors.Is(err, ErrDatesTaken):
			api.Error(c, http.StatusConflict, "Requested dates are not available")
		case errors.Is(err, ErrVenueUnavailable):
			api.Error(c, http.StatusConflict, "Venue is not accepting bookings")
		default:
			logger.Error("failed to create booking", "user_id", userID, "venue_id", req.VenueID, "error", err)
			api.Error(c, http.StatusInternalServerError, "Failed to create booking")
		}
		return
	}

	c.JSON(http.StatusCreated, b)
}

// ListMyBookings handles GET /bookings.
func (h *Handler) ListMyBookings(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	bookings, err := h.service.ListUserBookings(c.Request.Context(), userID)
	if err != nil {
		logger.Error("failed to list bookings", "user_id", userID, "error", err)
		api.Error(c, http.StatusInternalServerError, "Failed to fetch bookings")
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// UpdateStatus handles PATCH /bookings/:bookingID/status and its admin twin.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := auth.GetIdentity(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	bookingID, ok := api.IntParam(c, "bookingID", "booking ID")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	b, err := h.service.UpdateStatus(c.Request.Context(), id, bookingID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrBookingNotFound):
			api.Error(c, http.StatusNotFound, "Booking not found")
		case errors.Is(err, ErrForbidden):
			api.Error(c, http.StatusForbidden, "You can only cancel your own active bookings")
		case errors.Is(err, ErrDatesTaken):
			api.Error(c, http.StatusConflict, "Booking dates have been taken by another booking")
		case errors.Is(err, ErrInvalidStatus):
			api.Error(c, http.StatusBadRequest, err.Error())
		default:
			logger.Error("failed to update booking status", "booking_id", bookingID, "error", err)
			api.Error(c, http.StatusInternalServerError, "Failed to update booking")
		}
		return
	}

	c.JSON(http.StatusOK, b)
}

// VenueCalendar handles GET /venues/:venueID/calendar.ics.
func (h *Handler) VenueCalendar(c *gin.Context) {
	venueID, ok := api.IntParam(c, "venueID", "venue ID")
	if !ok {
		return
	}

	body, err := h.service.VenueCalendar(c.Request.Context(), venueID)
	if err != nil {
		if errors.Is(err, venue.ErrVenueNotFound) {
			api.Error(c, http.StatusNotFound, "Venue not found")
			return
		}
		logger.Error("failed to export calendar", "venue_id", venueID, "error", err)
		api.Error(c, http.StatusInternalServerError, "Failed to export calendar")
		return
	}

	c.Data(http.StatusOK, "text/calendar; charset=utf-8", body)
}

// Stats handles GET /admin/stats/bookings?from=YYYY-MM-DD&to=YYYY-MM-DD.
// The range defaults to the last 30 days.
func (h *Handler) Stats(c *gin.Context) {
	to := availability.DateOf(time.Now())
	from := to.AddDate(0, 0, -29)
	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = availability.ParseDate(raw); err != nil {
			api.Error(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = availability.ParseDate(raw); err != nil {
			api.Error(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	stats, err := h.service.BookingStats(c.Request.Context(), from, to)
	if err != nil {
		if errors.Is(err, ErrInvalidDateRange) {
			api.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("failed to load booking stats", "error", err)
		api.Error(c, http.StatusInternalServerError, "Failed to load booking stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}
