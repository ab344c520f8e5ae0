package booking

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"karyalay/internal/auth"
	"karyalay/internal/availability"
	"karyalay/internal/email"
	"karyalay/internal/logger"
	"karyalay/internal/metrics"
	"karyalay/internal/user"
	"karyalay/internal/venue"
)

type Notifier interface {
	SendBookingConfirmation(ctx context.Context, to, name string, n email.Notice) error
	SendReminder(ctx context.Context, to, name string, n email.Notice) error
	SendCancellation(ctx context.Context, to, name string, n email.Notice) error
}

type UserLookup interface {
	FindByID(ctx context.Context, id int) (*user.User, error)
}

type VenueLookup interface {
	GetVenue(ctx context.Context, id int) (*venue.Venue, error)
}

type Service interface {
	CreateBooking(ctx context.Context, userID int, req CreateBookingRequest) (*Booking, error)
	ListUserBookings(ctx context.Context, userID int) ([]BookingWithVenue, error)
	UpdateStatus(ctx context.Context, actor auth.Identity, bookingID int, status string) (*Booking, error)
	VenueCalendar(ctx context.Context, venueID int) ([]byte, error)
	SendReminders(ctx context.Context, day time.Time) (int, error)
	CompleteFinished(ctx context.Context, today time.Time) (int64, error)
	BookingStats(ctx context.Context, from, to time.Time) (*BookingStats, error)
}

type service struct {
	repo     Repository
	venues   VenueLookup
	users    UserLookup
	notifier Notifier
	loc      *time.Location
}

func NewService(repo Repository, venues VenueLookup, users UserLookup, notifier Notifier, loc *time.Location) Service {
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		repo:     repo,
		venues:   venues,
		users:    users,
		notifier: notifier,
		loc:      loc,
	}
}

func (s *service) CreateBooking(ctx context.Context, userID int, req CreateBookingRequest) (*Booking, error) {
	nb, err := newBooking(userID, req)
	if err != nil {
		metrics.RecordBooking("invalid")
		return nil, err
	}

	var booked *venue.Venue
	b, err := s.repo.Create(ctx, *nb, func(v *venue.Venue, existing []availability.Interval) (int64, error) {
		if !v.IsAvailable {
			return 0, ErrVenueUnavailable
		}
		if nb.GuestCount != nil && *nb.GuestCount > v.Capacity {
			return 0, ErrOverCapacity
		}
		if availability.Conflicts(nb.StartDate, nb.EndDate, nb.StartTime, existing) {
			return 0, ErrDatesTaken
		}
		booked = v
		return Price(v, nb), nil
	})
	if err != nil {
		metrics.RecordBooking(outcome(err))
		return nil, err
	}

	metrics.RecordBooking("created")
	logger.Info("booking created",
		"booking_id", b.ID,
		"venue_id", b.VenueID,
		"user_id", userID,
		"start_date", b.StartDate.Format(availability.DateLayout),
		"end_date", b.EndDate.Format(availability.DateLayout),
	)

	s.notifyConfirmation(ctx, b, booked)
	return b, nil
}

func (s *service) notifyConfirmation(ctx context.Context, b *Booking, v *venue.Venue) {
	u, err := s.users.FindByID(ctx, b.UserID)
	if err != nil {
		logger.Warn("booking confirmation not sent", "booking_id", b.ID, "error", err)
		return
	}

	notice := email.Notice{
		BookingID:       b.ID,
		StartDate:       b.StartDate,
		EndDate:         b.EndDate,
		StartTime:       b.StartTime,
		EndTime:         b.EndTime,
		TotalPriceCents: b.TotalPriceCents,
	}
	if v != nil {
		notice.VenueName = v.Name
		notice.VenueAddress = joinAddress(v.Address, v.City, v.State)
	}

	if err := s.notifier.SendBookingConfirmation(ctx, u.Email, u.FirstName, notice); err != nil {
		logger.Warn("booking confirmation not queued", "booking_id", b.ID, "error", err)
	}
}

func (s *service) ListUserBookings(ctx context.Context, userID int) ([]BookingWithVenue, error) {
	return s.repo.ListByUser(ctx, userID)
}

// UpdateStatus lets owners cancel their own bookings and admins set any status.
// Moving a booking out of cancelled re-checks its dates against the calendar.
func (s *service) UpdateStatus(ctx context.Context, actor auth.Identity, bookingID int, status string) (*Booking, error) {
	if !validStatus(status) {
		return nil, ErrInvalidStatus
	}

	current, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if actor.Role != auth.RoleAdmin {
		if current.UserID != actor.UserID {
			return nil, ErrBookingNotFound
		}
		if status != StatusCancelled {
			return nil, ErrForbidden
		}
		if current.Status == StatusCancelled || current.Status == StatusCompleted {
			return nil, ErrForbidden
		}
	}

	if current.Status == status {
		return current, nil
	}

	var updated *Booking
	if current.Status == StatusCancelled {
		updated, err = s.repo.Reinstate(ctx, bookingID, status, reinstatable)
	} else {
		updated, err = s.repo.UpdateStatus(ctx, bookingID, status)
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordBookingStatusChange(status)
	logger.Info("booking status changed",
		"booking_id", bookingID,
		"from", current.Status,
		"to", status,
		"by_user", actor.UserID,
	)

	if status == StatusCancelled {
		s.notifyCancellation(ctx, bookingID)
	}
	return updated, nil
}

// reinstatable rejects a cancelled booking whose dates were taken while it
// was out of the calendar.
func reinstatable(b *Booking, existing []availability.Interval) error {
	others := make([]availability.Interval, 0, len(existing))
	for _, iv := range existing {
		if iv.BookingID != b.ID {
			others = append(others, iv)
		}
	}
	if availability.Conflicts(b.StartDate, b.EndDate, b.StartTime, others) {
		return ErrDatesTaken
	}
	return nil
}

func (s *service) notifyCancellation(ctx context.Context, bookingID int) {
	d, err := s.repo.GetDetails(ctx, bookingID)
	if err != nil {
		logger.Warn("cancellation email not sent", "booking_id", bookingID, "error", err)
		return
	}
	if err := s.notifier.SendCancellation(ctx, d.UserEmail, d.UserFirstName, noticeFor(d)); err != nil {
		logger.Warn("cancellation email not queued", "booking_id", bookingID, "error", err)
	}
}

// SendReminders queues a reminder for every booking starting on day and
// returns how many were queued.
func (s *service) SendReminders(ctx context.Context, day time.Time) (int, error) {
	bookings, err := s.repo.StartingOn(ctx, availability.DateOf(day))
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range bookings {
		d := &bookings[i]
		if err := s.notifier.SendReminder(ctx, d.UserEmail, d.UserFirstName, noticeFor(d)); err != nil {
			logger.Warn("reminder not queued", "booking_id", d.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *service) CompleteFinished(ctx context.Context, today time.Time) (int64, error) {
	n, err := s.repo.CompleteEndedBefore(ctx, availability.DateOf(today))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.BookingStatusChangesTotal.WithLabelValues(StatusCompleted).Add(float64(n))
	}
	return n, nil
}

func newBooking(userID int, req CreateBookingRequest) (*NewBooking, error) {
	start, err := availability.ParseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := availability.ParseDate(req.EndDate)
	if err != nil {
		return nil, err
	}

	nb := &NewBooking{
		UserID:              userID,
		VenueID:             req.VenueID,
		StartDate:           start,
		EndDate:             end,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		GuestCount:          req.GuestCount,
		SpecialRequirements: strings.TrimSpace(req.SpecialRequirements),
	}
	if !nb.interval().Valid() || bookedHours(nb) <= 0 {
		return nil, ErrInvalidDateRange
	}
	return nb, nil
}

func (nb *NewBooking) interval() availability.Interval {
	return availability.Interval{StartDate: nb.StartDate, EndDate: nb.EndDate, StartTime: nb.StartTime, EndTime: nb.EndTime}
}

// Price charges whole days at the day rate when the venue has one,
// otherwise started hours at the hourly rate.
func Price(v *venue.Venue, nb *NewBooking) int64 {
	if v.PricePerDayCents != nil {
		days := int64(nb.EndDate.Sub(nb.StartDate).Hours()/24) + 1
		return days * *v.PricePerDayCents
	}
	return int64(bookedHours(nb)) * v.PricePerHourCents
}

func bookedHours(nb *NewBooking) int {
	start, err1 := time.Parse("15:04", nb.StartTime)
	end, err2 := time.Parse("15:04", nb.EndTime)
	if err1 != nil || err2 != nil {
		return 0
	}
	from := nb.StartDate.Add(time.Duration(start.Hour())*time.Hour + time.Duration(start.Minute())*time.Minute)
	to := nb.EndDate.Add(time.Duration(end.Hour())*time.Hour + time.Duration(end.Minute())*time.Minute)
	return int(math.Ceil(to.Sub(from).Hours()))
}

func noticeFor(d *BookingDetails) email.Notice {
	return email.Notice{
		BookingID:       d.ID,
		VenueName:       d.VenueName,
		VenueAddress:    joinAddress(d.VenueAddress, d.VenueCity, d.VenueState),
		StartDate:       d.StartDate,
		EndDate:         d.EndDate,
		StartTime:       d.StartTime,
		EndTime:         d.EndTime,
		TotalPriceCents: d.TotalPriceCents,
	}
}

func joinAddress(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrDatesTaken):
		return "conflict"
	case errors.Is(err, ErrVenueUnavailable), errors.Is(err, ErrOverCapacity):
		return "rejected"
	case errors.Is(err, venue.ErrVenueNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// IsClientError reports whether err is caused by the request rather than the server.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrOverCapacity) ||
		errors.Is(err, availability.ErrInvalidDate) ||
		errors.Is(err, ErrInvalidStatus)
}
