package availability

import (
	"errors"
	"net/http"
	"time"

	"karyalay/internal/api"
	"karyalay/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
	loc     *time.Location
	now     func() time.Time
}

// NewHandler builds the availability handler. loc decides which month is
// "current" when the request names none.
func NewHandler(service Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{service: service, loc: loc, now: time.Now}
}

type CellResponse struct {
	Date   *string   `json:"date"`
	Status DayStatus `json:"status,omitempty"`
}

type MonthResponse struct {
	VenueID   int               `json:"venue_id"`
	Month     string            `json:"month"`
	PrevMonth string            `json:"prev_month"`
	NextMonth string            `json:"next_month"`
	Cells     []CellResponse    `json:"cells"`
	Summary   map[DayStatus]int `json:"summary"`
}

type DayResponse struct {
	VenueID int       `json:"venue_id"`
	Date    string    `json:"date"`
	Status  DayStatus `json:"status"`
	Label   string    `json:"label"`
}

// GetMonth handles GET /venues/:venueID/availability?month=YYYY-MM.
func (h *Handler) GetMonth(c *gin.Context) {
	venueID, ok := api.IntParam(c, "venueID", "venue ID")
	if !ok {
		return
	}

	month := StartOfMonth(h.now().In(h.loc))
	if raw := c.Query("month"); raw != "" {
		parsed, err := ParseMonth(raw)
		if err != nil {
			api.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		month = parsed
	}

	result, err := h.service.Month(c.Request.Context(), venueID, month)
	if err != nil {
		h.writeError(c, err, venueID)
		return
	}

	c.JSON(http.StatusOK, toMonthResponse(result))
}

// GetDay handles GET /venues/:venueID/availability/:date.
func (h *Handler) GetDay(c *gin.Context) {
	venueID, ok := api.IntParam(c, "venueID", "venue ID")
	if !ok {
		return
	}

	day, err := ParseDate(c.Param("date"))
	if err != nil {
		api.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.service.Day(c.Request.Context(), venueID, day)
	if err != nil {
		h.writeError(c, err, venueID)
		return
	}

	c.JSON(http.StatusOK, DayResponse{
		VenueID: venueID,
		Date:    detail.Date.Format(DateLayout),
		Status:  detail.Status,
		Label:   detail.Label,
	})
}

type IntervalsResponse struct {
	VenueID   int        `json:"venue_id"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	Intervals []Interval `json:"intervals"`
}

// maxFeedDays bounds one interval feed request.
const maxFeedDays = 366

// GetIntervals handles GET /venues/:venueID/bookings?from=YYYY-MM-DD&to=YYYY-MM-DD.
// Both bounds default to the current month.
func (h *Handler) GetIntervals(c *gin.Context) {
	venueID, ok := api.IntParam(c, "venueID", "venue ID")
	if !ok {
		return
	}

	month := StartOfMonth(h.now().In(h.loc))
	from, to := month, EndOfMonth(month)
	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = ParseDate(raw); err != nil {
			api.Error(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = ParseDate(raw); err != nil {
			api.Error(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	if to.Before(from) || to.Sub(from) > maxFeedDays*24*time.Hour {
		api.Error(c, http.StatusBadRequest, ErrInvalidRange.Error())
		return
	}

	intervals, err := h.service.FetchIntervals(c.Request.Context(), venueID, from, to)
	if err != nil {
		h.writeError(c, err, venueID)
		return
	}

	c.JSON(http.StatusOK, IntervalsResponse{
		VenueID:   venueID,
		From:      from.Format(DateLayout),
		To:        to.Format(DateLayout),
		Intervals: intervals,
	})
}

func (h *Handler) writeError(c *gin.Context, err error, venueID int) {
	if errors.Is(err, ErrVenueNotFound) {
		api.Error(c, http.StatusNotFound, "Venue not found")
		return
	}
	logger.Error("availability lookup failed", "venue_id", venueID, "error", err)
	api.Error(c, http.StatusInternalServerError, "Failed to load availability")
}

func toMonthResponse(m *MonthAvailability) MonthResponse {
	cells := make([]CellResponse, len(m.Cells))
	for i, cell := range m.Cells {
		if cell.Empty {
			continue
		}
		date := cell.Date.Format(DateLayout)
		cells[i] = CellResponse{Date: &date, Status: m.Statuses[i]}
	}

	return MonthResponse{
		VenueID:   m.VenueID,
		Month:     m.Month.Format(MonthLayout),
		PrevMonth: AdvanceMonth(m.Month, -1).Format(MonthLayout),
		NextMonth: AdvanceMonth(m.Month, 1).Format(MonthLayout),
		Cells:     cells,
		Summary:   m.Summary,
	}
}
