package booking

import (
	"context"
	"time"

	"karyalay/internal/availability"
)

type StatsByDay struct {
	Bucket            string `db:"bucket" json:"bucket"`
	BookingsCreated   int    `db:"bookings_created" json:"bookings_created"`
	BookingsCancelled int    `db:"bookings_cancelled" json:"bookings_cancelled"`
}

type StatsByVenue struct {
	VenueID           int    `db:"venue_id" json:"venue_id"`
	VenueName         string `db:"venue_name" json:"venue_name"`
	BookingsCreated   int    `db:"bookings_created" json:"bookings_created"`
	BookingsCancelled int    `db:"bookings_cancelled" json:"bookings_cancelled"`
	RevenueCents      int64  `db:"revenue_cents" json:"revenue_cents"`
}

type BookingStats struct {
	From    string         `json:"from"`
	To      string         `json:"to"`
	ByDay   []StatsByDay   `json:"by_day"`
	ByVenue []StatsByVenue `json:"by_venue"`
}

// StatsByDay buckets bookings by the day they were made. to is inclusive.
func (r *repository) StatsByDay(ctx context.Context, from, to time.Time) ([]StatsByDay, error) {
	query := `
SELECT
  to_char(DATE(created_at), 'YYYY-MM-DD')       AS bucket,
  COUNT(*)                                      AS bookings_created,
  COUNT(*) FILTER (WHERE status = 'cancelled')  AS bookings_cancelled
FROM bookings
WHERE created_at >= $1 AND created_at < $2
GROUP BY DATE(created_at)
ORDER BY bucket`

	stats := []StatsByDay{}
	if err := r.db.SelectContext(ctx, &stats, query, from, to.AddDate(0, 0, 1)); err != nil {
		return nil, err
	}
	return stats, nil
}

// StatsByVenue counts bookings made per venue. Revenue only counts confirmed
// and completed bookings.
func (r *repository) StatsByVenue(ctx context.Context, from, to time.Time) ([]StatsByVenue, error) {
	query := `
SELECT
  v.id   AS venue_id,
  v.name AS venue_name,
  COUNT(b.id)                                             AS bookings_created,
  COUNT(b.id) FILTER (WHERE b.status = 'cancelled')       AS bookings_cancelled,
  COALESCE(SUM(b.total_price_cents)
    FILTER (WHERE b.status IN ('confirmed', 'completed')), 0) AS revenue_cents
FROM venues v
JOIN bookings b ON b.venue_id = v.id
WHERE b.created_at >= $1 AND b.created_at < $2
GROUP BY v.id, v.name
ORDER BY v.id`

	stats := []StatsByVenue{}
	if err := r.db.SelectContext(ctx, &stats, query, from, to.AddDate(0, 0, 1)); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *service) BookingStats(ctx context.Context, from, to time.Time) (*BookingStats, error) {
	from, to = availability.DateOf(from), availability.DateOf(to)
	if to.Before(from) {
		return nil, ErrInvalidDateRange
	}

	byDay, err := s.repo.StatsByDay(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byVenue, err := s.repo.StatsByVenue(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return &BookingStats{
		From:    from.Format(availability.DateLayout),
		To:      to.Format(availability.DateLayout),
		ByDay:   byDay,
		ByVenue: byVenue,
	}, nil
}
