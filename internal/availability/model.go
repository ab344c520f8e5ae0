package availability

import (
	"errors"
	"time"
)

type DayStatus string

const (
	Available       DayStatus = "available"
	PartiallyBooked DayStatus = "partiallyBooked"
	FullyBooked     DayStatus = "fullyBooked"
)

// Label is the text shown in the day detail panel.
func (s DayStatus) Label() string {
	switch s {
	case FullyBooked:
		return "Fully Booked"
	case PartiallyBooked:
		return "Available after 4 PM"
	default:
		return "Available"
	}
}

// Interval is one booking's date range as returned by the booking store.
// Dates are inclusive and compared by calendar day; times are "HH:MM".
type Interval struct {
	BookingID int       `db:"id" json:"booking_id,omitempty"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Status    string    `db:"status" json:"status"`
}

// Valid reports whether the interval ends on or after the day it starts.
func (iv Interval) Valid() bool {
	return !DateOf(iv.EndDate).Before(DateOf(iv.StartDate))
}

// Cell is one position of a month grid: either a leading placeholder or a date.
type Cell struct {
	Date  time.Time
	Empty bool
}

type Detail struct {
	Date   time.Time `json:"date"`
	Status DayStatus `json:"status"`
	Label  string    `json:"label"`
}

var (
	ErrVenueNotFound = errors.New("venue not found")
	ErrInvalidMonth  = errors.New("invalid month, use YYYY-MM")
	ErrInvalidDate   = errors.New("invalid date, use YYYY-MM-DD")
	ErrOutsideMonth  = errors.New("date is outside the displayed month")
	ErrInvalidRange  = errors.New("invalid range, to must be on or after from and at most a year later")
	ErrStale         = errors.New("result superseded by a newer request")
)
