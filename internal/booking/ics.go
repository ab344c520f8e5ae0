package booking

import (
	"context"
	"fmt"
	"time"

	"karyalay/internal/availability"

	ics "github.com/arran4/golang-ical"
)

const calendarProductID = "-//Karyalay//Venue Bookings//EN"

// VenueCalendar exports a venue's non-cancelled bookings from a year back to
// two years ahead as an iCalendar document.
func (s *service) VenueCalendar(ctx context.Context, venueID int) ([]byte, error) {
	v, err := s.venues.GetVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}

	today := availability.DateOf(time.Now().In(s.loc))
	intervals, err := s.repo.VenueIntervals(ctx, venueID, today.AddDate(-1, 0, 0), today.AddDate(2, 0, 0))
	if err != nil {
		return nil, err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetXWRCalName(v.Name + " bookings")
	cal.SetXWRTimezone(s.loc.String())

	stamp := time.Now().UTC()
	for _, iv := range intervals {
		start, end, ok := eventSpan(iv, s.loc)
		if !ok {
			continue
		}

		event := cal.AddEvent(fmt.Sprintf("booking-%d@karyalay", iv.BookingID))
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(fmt.Sprintf("%s: booking #%d", v.Name, iv.BookingID))
		event.SetLocation(joinAddress(v.Address, v.City, v.State))
		if iv.Status == StatusConfirmed || iv.Status == StatusCompleted {
			event.SetStatus(ics.ObjectStatusConfirmed)
		} else {
			event.SetStatus(ics.ObjectStatusTentative)
		}
	}

	return []byte(cal.Serialize()), nil
}

// eventSpan places an interval's dates and clock times in loc.
func eventSpan(iv availability.Interval, loc *time.Location) (time.Time, time.Time, bool) {
	startClock, err := time.Parse("15:04", iv.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	endClock, err := time.Parse("15:04", iv.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}

	sy, sm, sd := iv.StartDate.Date()
	ey, em, ed := iv.EndDate.Date()
	start := time.Date(sy, sm, sd, startClock.Hour(), startClock.Minute(), 0, 0, loc)
	end := time.Date(ey, em, ed, endClock.Hour(), endClock.Minute(), 0, 0, loc)
	if !end.After(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
