package availability

import (
	"context"
	"fmt"
	"time"

	"karyalay/internal/logger"
	"karyalay/internal/metrics"
)

// IntervalSource is the booking store's interval feed for a venue.
type IntervalSource interface {
	VenueIntervals(ctx context.Context, venueID int, from, to time.Time) ([]Interval, error)
}

type VenueChecker interface {
	VenueExists(ctx context.Context, venueID int) (bool, error)
}

type MonthAvailability struct {
	VenueID  int
	Month    time.Time
	Cells    []Cell
	Statuses []DayStatus // parallel to Cells; empty string for placeholders
	Summary  map[DayStatus]int
}

type Service interface {
	Month(ctx context.Context, venueID int, month time.Time) (*MonthAvailability, error)
	Day(ctx context.Context, venueID int, day time.Time) (*Detail, error)
	FetchIntervals(ctx context.Context, venueID int, from, to time.Time) ([]Interval, error)
}

type service struct {
	source IntervalSource
	venues VenueChecker
}

func NewService(source IntervalSource, venues VenueChecker) Service {
	return &service{source: source, venues: venues}
}

func (s *service) Month(ctx context.Context, venueID int, month time.Time) (*MonthAvailability, error) {
	month = StartOfMonth(month)

	intervals, err := s.monthIntervals(ctx, venueID, month)
	if err != nil {
		metrics.RecordAvailabilityQuery("month", "error")
		return nil, err
	}

	cells := BuildCalendarGrid(month)
	result := &MonthAvailability{
		VenueID:  venueID,
		Month:    month,
		Cells:    cells,
		Statuses: make([]DayStatus, len(cells)),
		Summary:  map[DayStatus]int{Available: 0, PartiallyBooked: 0, FullyBooked: 0},
	}
	for i, cell := range cells {
		if cell.Empty {
			continue
		}
		status := DayStatusFor(cell.Date, intervals)
		result.Statuses[i] = status
		result.Summary[status]++
	}

	metrics.RecordAvailabilityQuery("month", "ok")
	return result, nil
}

func (s *service) Day(ctx context.Context, venueID int, day time.Time) (*Detail, error) {
	day = DateOf(day)

	intervals, err := s.monthIntervals(ctx, venueID, day)
	if err != nil {
		metrics.RecordAvailabilityQuery("day", "error")
		return nil, err
	}

	status := DayStatusFor(day, intervals)
	metrics.RecordAvailabilityQuery("day", "ok")
	return &Detail{Date: day, Status: status, Label: status.Label()}, nil
}

// FetchIntervals lets the service stand in as a MonthView fetcher in-process.
func (s *service) FetchIntervals(ctx context.Context, venueID int, from, to time.Time) ([]Interval, error) {
	if err := s.ensureVenue(ctx, venueID); err != nil {
		return nil, err
	}
	return s.wellFormed(ctx, venueID, from, to)
}

func (s *service) monthIntervals(ctx context.Context, venueID int, month time.Time) ([]Interval, error) {
	if err := s.ensureVenue(ctx, venueID); err != nil {
		return nil, err
	}
	return s.wellFormed(ctx, venueID, StartOfMonth(month), EndOfMonth(month))
}

func (s *service) ensureVenue(ctx context.Context, venueID int) error {
	exists, err := s.venues.VenueExists(ctx, venueID)
	if err != nil {
		return fmt.Errorf("check venue %d: %w", venueID, err)
	}
	if !exists {
		return ErrVenueNotFound
	}
	return nil
}

// wellFormed loads intervals and drops the ones that end before they start.
func (s *service) wellFormed(ctx context.Context, venueID int, from, to time.Time) ([]Interval, error) {
	raw, err := s.source.VenueIntervals(ctx, venueID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load intervals for venue %d: %w", venueID, err)
	}

	intervals := make([]Interval, 0, len(raw))
	for _, iv := range raw {
		if !iv.Valid() {
			logger.Warn("dropping malformed booking interval",
				"venue_id", venueID,
				"booking_id", iv.BookingID,
				"start_date", iv.StartDate.Format(DateLayout),
				"end_date", iv.EndDate.Format(DateLayout),
			)
			metrics.RecordMalformedInterval()
			continue
		}
		intervals = append(intervals, iv)
	}
	return intervals, nil
}
