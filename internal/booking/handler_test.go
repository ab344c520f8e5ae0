package booking

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"karyalay/internal/auth"
	"karyalay/internal/venue"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CreateBooking(ctx context.Context, userID int, req CreateBookingRequest) (*Booking, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockService) ListUserBookings(ctx context.Context, userID int) ([]BookingWithVenue, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BookingWithVenue), args.Error(1)
}

func (m *MockService) UpdateStatus(ctx context.Context, actor auth.Identity, bookingID int, status string) (*Booking, error) {
	args := m.Called(ctx, actor, bookingID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockService) VenueCalendar(ctx context.Context, venueID int) ([]byte, error) {
	args := m.Called(ctx, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockService) SendReminders(ctx context.Context, day time.Time) (int, error) {
	args := m.Called(ctx, day)
	return args.Int(0), args.Error(1)
}

func (m *MockService) CompleteFinished(ctx context.Context, today time.Time) (int64, error) {
	args := m.Called(ctx, today)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockService) BookingStats(ctx context.Context, from, to time.Time) (*BookingStats, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BookingStats), args.Error(1)
}

func withUser(c *gin.Context) {
	c.Set("user_id", 1)
	c.Set("user_email", "meera@example.com")
	c.Set("user_role", auth.RoleUser)
	c.Set("session_id", "s-1")
	c.Next()
}

func setupRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc)

	r := gin.New()
	r.POST("/bookings", withUser, h.CreateBooking)
	r.GET("/bookings", withUser, h.ListMyBookings)
	r.PATCH("/bookings/:bookingID/status", withUser, h.UpdateStatus)
	r.GET("/venues/:venueID/calendar.ics", h.VenueCalendar)
	r.GET("/admin/stats/bookings", h.Stats)
	r.POST("/anonymous/bookings", h.CreateBooking)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreateBookingHandler(t *testing.T) {
	valid := `{"venue_id":3,"start_date":"2024-12-14","end_date":"2024-12-15","start_time":"10:00","end_time":"22:00","guest_count":120}`

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"created", nil, http.StatusCreated},
		{"dates taken", ErrDatesTaken, http.StatusConflict},
		{"venue closed", ErrVenueUnavailable, http.StatusConflict},
		{"venue missing", venue.ErrVenueNotFound, http.StatusNotFound},
		{"reversed range", ErrInvalidDateRange, http.StatusBadRequest},
		{"too many guests", ErrOverCapacity, http.StatusBadRequest},
		{"internal", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.err != nil {
				svc.On("CreateBooking", mock.Anything, 1, mock.AnythingOfType("booking.CreateBookingRequest")).Return(nil, tt.err)
			} else {
				svc.On("CreateBooking", mock.Anything, 1, mock.AnythingOfType("booking.CreateBookingRequest")).
					Return(&Booking{ID: 10, Status: StatusPending}, nil)
			}

			w := do(setupRouter(svc), http.MethodPost, "/bookings", valid)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	t.Run("malformed time", func(t *testing.T) {
		svc := new(MockService)
		w := do(setupRouter(svc), http.MethodPost, "/bookings",
			`{"venue_id":3,"start_date":"2024-12-14","end_date":"2024-12-15","start_time":"10am","end_time":"22:00"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("anonymous", func(t *testing.T) {
		w := do(setupRouter(new(MockService)), http.MethodPost, "/anonymous/bookings", valid)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestListMyBookingsHandler(t *testing.T) {
	svc := new(MockService)
	svc.On("ListUserBookings", mock.Anything, 1).Return([]BookingWithVenue{
		{Booking: Booking{ID: 4}, VenueName: "Shubh Mangal Hall"},
	}, nil)

	w := do(setupRouter(svc), http.MethodGet, "/bookings", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"venue_name":"Shubh Mangal Hall"`)
}

func TestUpdateStatusHandler(t *testing.T) {
	actor := auth.Identity{UserID: 1, Email: "meera@example.com", Role: auth.RoleUser, SessionID: "s-1"}

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"cancelled", nil, http.StatusOK},
		{"not mine", ErrBookingNotFound, http.StatusNotFound},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"dates taken", ErrDatesTaken, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.err != nil {
				svc.On("UpdateStatus", mock.Anything, actor, 10, StatusCancelled).Return(nil, tt.err)
			} else {
				svc.On("UpdateStatus", mock.Anything, actor, 10, StatusCancelled).Return(&Booking{ID: 10, Status: StatusCancelled}, nil)
			}

			w := do(setupRouter(svc), http.MethodPatch, "/bookings/10/status", `{"status":"cancelled"}`)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	t.Run("unknown status", func(t *testing.T) {
		w := do(setupRouter(new(MockService)), http.MethodPatch, "/bookings/10/status", `{"status":"archived"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		w := do(setupRouter(new(MockService)), http.MethodPatch, "/bookings/x/status", `{"status":"cancelled"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestVenueCalendarHandler(t *testing.T) {
	svc := new(MockService)
	svc.On("VenueCalendar", mock.Anything, 3).Return([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), nil)
	svc.On("VenueCalendar", mock.Anything, 4).Return(nil, venue.ErrVenueNotFound)
	r := setupRouter(svc)

	w := do(r, http.MethodGet, "/venues/3/calendar.ics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "BEGIN:VCALENDAR")

	w = do(r, http.MethodGet, "/venues/4/calendar.ics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
