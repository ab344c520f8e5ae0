package booking

import (
	"errors"
	"time"

	"karyalay/internal/availability"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrVenueUnavailable = errors.New("venue is not accepting bookings")
	ErrInvalidDateRange = errors.New("booking must end after it starts")
	ErrDatesTaken       = errors.New("requested dates are not available")
	ErrOverCapacity     = errors.New("guest count exceeds venue capacity")
	ErrForbidden        = errors.New("not allowed to change this booking")
	ErrInvalidStatus    = errors.New("invalid booking status")
)

type Booking struct {
	ID                  int       `db:"id" json:"id"`
	UserID              int       `db:"user_id" json:"user_id"`
	VenueID             int       `db:"venue_id" json:"venue_id"`
	StartDate           time.Time `db:"start_date" json:"start_date"`
	EndDate             time.Time `db:"end_date" json:"end_date"`
	StartTime           string    `db:"start_time" json:"start_time"`
	EndTime             string    `db:"end_time" json:"end_time"`
	TotalPriceCents     int64     `db:"total_price_cents" json:"total_price_cents"`
	Status              string    `db:"status" json:"status"`
	GuestCount          *int      `db:"guest_count" json:"guest_count,omitempty"`
	SpecialRequirements string    `db:"special_requirements" json:"special_requirements"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

func (b *Booking) Interval() availability.Interval {
	return availability.Interval{
		BookingID: b.ID,
		StartDate: b.StartDate,
		EndDate:   b.EndDate,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Status:    b.Status,
	}
}

type BookingWithVenue struct {
	Booking
	VenueName    string `db:"venue_name" json:"venue_name"`
	VenueAddress string `db:"venue_address" json:"venue_address"`
	VenueCity    string `db:"venue_city" json:"venue_city"`
	VenueState   string `db:"venue_state" json:"venue_state"`
}

// BookingDetails adds the booker's contact details for notifications.
type BookingDetails struct {
	BookingWithVenue
	UserEmail     string `db:"user_email" json:"user_email"`
	UserFirstName string `db:"user_first_name" json:"user_first_name"`
}

type CreateBookingRequest struct {
	VenueID             int    `json:"venue_id" binding:"required,min=1"`
	StartDate           string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate             string `json:"end_date" binding:"required,datetime=2006-01-02"`
	StartTime           string `json:"start_time" binding:"required,datetime=15:04"`
	EndTime             string `json:"end_time" binding:"required,datetime=15:04"`
	GuestCount          *int   `json:"guest_count" binding:"omitempty,min=1"`
	SpecialRequirements string `json:"special_requirements" binding:"max=2000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed cancelled completed"`
}

// NewBooking is a validated request ready to insert.
type NewBooking struct {
	UserID              int
	VenueID             int
	StartDate           time.Time
	EndDate             time.Time
	StartTime           string
	EndTime             string
	GuestCount          *int
	SpecialRequirements string
	TotalPriceCents     int64
}

func validStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}
