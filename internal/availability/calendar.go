// Package availability classifies the days of a month against a venue's
// booking intervals and keeps the state of a navigable month calendar.
//
// Calendar dates are represented as time.Time values at midnight UTC of the
// civil date, whatever location the caller used.
package availability

import (
	"strconv"
	"strings"
	"time"
)

const (
	MonthLayout = "2006-01"
	DateLayout  = "2006-01-02"

	// Bookings ending at or before this hour leave the evening free.
	lateCheckoutHour = 16
)

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, -1)
}

// DayStatusFor folds intervals in order over an initial Available status.
// Each interval covering day overwrites the running status, so when two
// intervals disagree the later one in the slice wins.
func DayStatusFor(day time.Time, intervals []Interval) DayStatus {
	day = DateOf(day)
	status := Available

	for _, iv := range intervals {
		start, end := DateOf(iv.StartDate), DateOf(iv.EndDate)
		if day.Before(start) || day.After(end) {
			continue
		}

		if day.Equal(end) {
			if hour, ok := clockHour(iv.EndTime); ok && hour <= lateCheckoutHour {
				status = PartiallyBooked
			} else {
				status = FullyBooked
			}
			continue
		}

		status = FullyBooked
	}

	return status
}

// clockHour returns the hour component of an "HH:MM" string. A blank hour
// reads as 0.
func clockHour(hhmm string) (int, bool) {
	hourPart, _, _ := strings.Cut(hhmm, ":")
	hourPart = strings.TrimSpace(hourPart)
	if hourPart == "" {
		return 0, true
	}

	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return 0, false
	}
	return hour, true
}

// clockMinutes returns minutes past midnight of an "HH:MM" string. A blank
// hour reads as 0 and a missing minute part as :00.
func clockMinutes(hhmm string) (int, bool) {
	hour, ok := clockHour(hhmm)
	if !ok {
		return 0, false
	}

	_, minutePart, found := strings.Cut(hhmm, ":")
	minutePart = strings.TrimSpace(minutePart)
	if !found || minutePart == "" {
		return hour * 60, true
	}

	minute, err := strconv.Atoi(minutePart)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// BuildCalendarGrid returns one placeholder per weekday before the 1st
// (Sunday first) followed by every date of the month. There is no trailing
// padding.
func BuildCalendarGrid(month time.Time) []Cell {
	first := StartOfMonth(month)
	last := EndOfMonth(month)
	lead := int(first.Weekday())

	cells := make([]Cell, 0, lead+last.Day())
	for i := 0; i < lead; i++ {
		cells = append(cells, Cell{Empty: true})
	}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		cells = append(cells, Cell{Date: d})
	}

	return cells
}

// AdvanceMonth returns the first day of the month delta months from current.
func AdvanceMonth(current time.Time, delta int) time.Time {
	return StartOfMonth(current).AddDate(0, delta, 0)
}

func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}
	return t, nil
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// Conflicts reports whether a new booking over [start, end] beginning at
// startTime would overlap existing intervals. Every requested day must be
// available, except that the first day may be partially booked when the new
// booking starts at or after the late checkout hour and no earlier than the
// latest checkout on that day.
func Conflicts(start, end time.Time, startTime string, existing []Interval) bool {
	start, end = DateOf(start), DateOf(end)

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		switch DayStatusFor(d, existing) {
		case Available:
		case PartiallyBooked:
			if !d.Equal(start) || !startsAfterCheckout(d, startTime, existing) {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// startsAfterCheckout reports whether startTime is at or after the late
// checkout hour and at or after every end time of intervals ending on day.
func startsAfterCheckout(day time.Time, startTime string, existing []Interval) bool {
	begin, ok := clockMinutes(startTime)
	if !ok || begin < lateCheckoutHour*60 {
		return false
	}

	for _, iv := range existing {
		if !DateOf(iv.EndDate).Equal(day) || DateOf(iv.StartDate).After(day) {
			continue
		}
		checkout, ok := clockMinutes(iv.EndTime)
		if !ok || checkout > begin {
			return false
		}
	}
	return true
}
