package booking

import (
	"context"
	"time"

	"karyalay/internal/availability"
	"karyalay/internal/venue"
)

// AdmitFunc decides, under the venue lock, whether a booking may be taken
// and returns its total price.
type AdmitFunc func(v *venue.Venue, existing []availability.Interval) (int64, error)

// ReinstateFunc decides, under the venue lock, whether a cancelled booking
// may take its dates back.
type ReinstateFunc func(b *Booking, existing []availability.Interval) error

type Repository interface {
	Create(ctx context.Context, nb NewBooking, admit AdmitFunc) (*Booking, error)
	GetByID(ctx context.Context, id int) (*Booking, error)
	GetDetails(ctx context.Context, id int) (*BookingDetails, error)
	ListByUser(ctx context.Context, userID int) ([]BookingWithVenue, error)
	VenueIntervals(ctx context.Context, venueID int, from, to time.Time) ([]availability.Interval, error)
	UpdateStatus(ctx context.Context, id int, status string) (*Booking, error)
	Reinstate(ctx context.Context, id int, status string, check ReinstateFunc) (*Booking, error)
	StartingOn(ctx context.Context, day time.Time) ([]BookingDetails, error)
	CompleteEndedBefore(ctx context.Context, day time.Time) (int64, error)
	StatsByDay(ctx context.Context, from, to time.Time) ([]StatsByDay, error)
	StatsByVenue(ctx context.Context, from, to time.Time) ([]StatsByVenue, error)
}
