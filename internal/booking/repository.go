package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"karyalay/internal/availability"
	"karyalay/internal/db"
	"karyalay/internal/venue"

	"github.com/jmoiron/sqlx"
)

// TIME columns are read back as "HH:MM" text.
func bookingColumns(prefix string) string {
	cols := []string{
		"%[1]sid", "%[1]suser_id", "%[1]svenue_id", "%[1]sstart_date", "%[1]send_date",
		"to_char(%[1]sstart_time, 'HH24:MI') AS start_time",
		"to_char(%[1]send_time, 'HH24:MI') AS end_time",
		"%[1]stotal_price_cents", "%[1]sstatus", "%[1]sguest_count", "%[1]sspecial_requirements",
		"%[1]screated_at", "%[1]supdated_at",
	}
	return fmt.Sprintf(strings.Join(cols, ", "), prefix)
}

const venueJoinColumns = `v.name AS venue_name, v.address AS venue_address, v.city AS venue_city, v.state AS venue_state`

const intervalQuery = `
	SELECT id, start_date, end_date,
	       to_char(start_time, 'HH24:MI') AS start_time,
	       to_char(end_time, 'HH24:MI') AS end_time,
	       status
	FROM bookings
	WHERE venue_id = $1 AND status <> 'cancelled'
	  AND start_date <= $3 AND end_date >= $2
	ORDER BY start_date, id`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Create locks the venue row, loads the overlapping intervals and inserts the
// booking only when admit accepts it, all in one transaction.
func (r *repository) Create(ctx context.Context, nb NewBooking, admit AdmitFunc) (*Booking, error) {
	from, to := nb.StartDate.Format(availability.DateLayout), nb.EndDate.Format(availability.DateLayout)

	var b Booking
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var v venue.Venue
		err := tx.GetContext(ctx, &v, `
			SELECT id, name, address, city, state, capacity, price_per_hour_cents, price_per_day_cents, is_available
			FROM venues WHERE id = $1 FOR UPDATE`, nb.VenueID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return venue.ErrVenueNotFound
			}
			return fmt.Errorf("lock venue: %w", err)
		}

		existing := []availability.Interval{}
		if err := tx.SelectContext(ctx, &existing, intervalQuery, nb.VenueID, from, to); err != nil {
			return fmt.Errorf("load intervals: %w", err)
		}

		price, err := admit(&v, existing)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO bookings (user_id, venue_id, start_date, end_date, start_time, end_time,
				total_price_cents, status, guest_count, special_requirements)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING ` + bookingColumns("")

		return tx.GetContext(ctx, &b, query,
			nb.UserID, nb.VenueID, from, to, nb.StartTime, nb.EndTime,
			price, StatusPending, nb.GuestCount, nb.SpecialRequirements,
		)
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Booking, error) {
	query := `SELECT ` + bookingColumns("") + ` FROM bookings WHERE id = $1`

	var b Booking
	if err := r.db.GetContext(ctx, &b, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) GetDetails(ctx context.Context, id int) (*BookingDetails, error) {
	query := `
		SELECT ` + bookingColumns("b.") + `, ` + venueJoinColumns + `,
		       u.email AS user_email, u.first_name AS user_first_name
		FROM bookings b
		JOIN venues v ON b.venue_id = v.id
		JOIN users u ON b.user_id = u.id
		WHERE b.id = $1`

	var d BookingDetails
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListByUser returns the user's bookings, newest first.
func (r *repository) ListByUser(ctx context.Context, userID int) ([]BookingWithVenue, error) {
	query := `
		SELECT ` + bookingColumns("b.") + `, ` + venueJoinColumns + `
		FROM bookings b
		JOIN venues v ON b.venue_id = v.id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC`

	bookings := []BookingWithVenue{}
	if err := r.db.SelectContext(ctx, &bookings, query, userID); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// VenueIntervals returns non-cancelled bookings of a venue that overlap
// [from, to], ordered by start date.
func (r *repository) VenueIntervals(ctx context.Context, venueID int, from, to time.Time) ([]availability.Interval, error) {
	intervals := []availability.Interval{}
	err := r.db.SelectContext(ctx, &intervals, intervalQuery,
		venueID, from.Format(availability.DateLayout), to.Format(availability.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("venue intervals: %w", err)
	}
	return intervals, nil
}

const updateStatusQuery = `
	UPDATE bookings
	SET status = $2, updated_at = NOW()
	WHERE id = $1
	RETURNING `

func (r *repository) UpdateStatus(ctx context.Context, id int, status string) (*Booking, error) {
	var b Booking
	if err := r.db.GetContext(ctx, &b, updateStatusQuery+bookingColumns(""), id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("update booking status: %w", err)
	}
	return &b, nil
}

// Reinstate takes the same venue lock as Create, reloads the booking and the
// venue's live intervals over its dates, and sets status only when check
// accepts them.
func (r *repository) Reinstate(ctx context.Context, id int, status string, check ReinstateFunc) (*Booking, error) {
	var b Booking
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var venueID int
		if err := tx.GetContext(ctx, &venueID, `SELECT venue_id FROM bookings WHERE id = $1`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("find booking: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `SELECT id FROM venues WHERE id = $1 FOR UPDATE`, venueID); err != nil {
			return fmt.Errorf("lock venue: %w", err)
		}

		query := `SELECT ` + bookingColumns("") + ` FROM bookings WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &b, query, id); err != nil {
			return fmt.Errorf("lock booking: %w", err)
		}

		existing := []availability.Interval{}
		err := tx.SelectContext(ctx, &existing, intervalQuery, venueID,
			b.StartDate.Format(availability.DateLayout), b.EndDate.Format(availability.DateLayout))
		if err != nil {
			return fmt.Errorf("load intervals: %w", err)
		}

		if err := check(&b, existing); err != nil {
			return err
		}

		return tx.GetContext(ctx, &b, updateStatusQuery+bookingColumns(""), id, status)
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// StartingOn returns pending and confirmed bookings that begin on day.
func (r *repository) StartingOn(ctx context.Context, day time.Time) ([]BookingDetails, error) {
	query := `
		SELECT ` + bookingColumns("b.") + `, ` + venueJoinColumns + `,
		       u.email AS user_email, u.first_name AS user_first_name
		FROM bookings b
		JOIN venues v ON b.venue_id = v.id
		JOIN users u ON b.user_id = u.id
		WHERE b.start_date = $1 AND b.status IN ('pending', 'confirmed')
		ORDER BY b.id`

	bookings := []BookingDetails{}
	if err := r.db.SelectContext(ctx, &bookings, query, day.Format(availability.DateLayout)); err != nil {
		return nil, fmt.Errorf("bookings starting on %s: %w", day.Format(availability.DateLayout), err)
	}
	return bookings, nil
}

// CompleteEndedBefore marks confirmed bookings that ended before day as completed.
func (r *repository) CompleteEndedBefore(ctx context.Context, day time.Time) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'completed', updated_at = NOW()
		WHERE status = 'confirmed' AND end_date < $1`

	result, err := r.db.ExecContext(ctx, query, day.Format(availability.DateLayout))
	if err != nil {
		return 0, fmt.Errorf("complete bookings: %w", err)
	}
	return result.RowsAffected()
}
