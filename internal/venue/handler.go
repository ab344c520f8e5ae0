package venue

import (
	"errors"
	"net/http"

	"karyalay/internal/api"
	"karyalay/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

// ListVenues handles GET /venues with an optional ?city= filter.
func (h *Handler) ListVenues(c *gin.Context) {
	venues, err := h.service.ListVenues(c.Request.Context(), c.Query("city"))
	if err != nil {
		logger.Error("failed to list venues", "error", err)
		api.Error(c, http.StatusInternalServerError, "Failed to fetch venues")
		return
	}

	c.JSON(http.StatusOK, venues)
}

// GetVenue handles GET /venues/:venueID.
func (h *Handler) GetVenue(c *gin.Context) {
	venueID, ok := api.IntParam(c, "venueID", "venue ID")
	if !ok {
		return
	}

	v, err := h.service.GetVenue(c.Request.Context(), venueID)
	if err != nil {
		if IsNotFound(err) {
			api.Error(c, http.StatusNotFound, "Venue not found")
			return
		}
		logger.Error("failed to load venue", "venue_id", venueID, "error", err)
		api.Error(c, http.StatusInternalServerError, "Failed to fetch venue")
		return
	}

	c.JSON(http.StatusOK, v)
}

// CreateVenue handles POST /admin/venues.
func (h *Handler) CreateVenue(c *gin.Context) {
	var req CreateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	v, err := h.service.CreateVenue(c.Request.Context(), req)
	if err != nil {
		logger.Error("failed to create venue", "error", err)
		api.Error(c, http.StatusInternalServerError, "Failed to create venue")
		return
	}

	c.JSON(http.StatusCreated, v)
}

// UpdateVenue handles PATCH /admin/venues/:venueID.
func (h *Handler) UpdateVenue(c *gin.Context) {
	venueID, ok := api.IntParam(c, "venueID", "venue ID")
	if !ok {
		return
	}

	var req UpdateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	v, err := h.service.UpdateVenue(c.Request.Context(), venueID, req)
	if err != nil {
		switch {
		case IsNotFound(err):
			api.Error(c, http.StatusNotFound, "Venue not found")
		case errors.Is(err, ErrNoChanges):
			api.Error(c, http.StatusBadRequest, "No fields to update")
		default:
			logger.Error("failed to update venue", "venue_id", venueID, "error", err)
			api.Error(c, http.StatusInternalServerError, "Failed to update venue")
		}
		return
	}

	c.JSON(http.StatusOK, v)
}
