// Package client talks to the karyalay HTTP API and remembers the signed-in
// user through a session.Store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"karyalay/internal/availability"
	"karyalay/internal/booking"
	"karyalay/internal/logger"
	"karyalay/internal/session"
	"karyalay/internal/user"
	"karyalay/internal/venue"
)

var ErrNotSignedIn = errors.New("not signed in")

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type Client struct {
	baseURL string
	http    *http.Client
	store   *session.Store
}

// New builds a client and loads any stored session. When the store cannot be
// read the client is still returned, signed out, together with the storage
// error.
func New(baseURL string, store *session.Store) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		store: store,
	}

	if _, err := store.Load(); err != nil {
		return c, err
	}
	return c, nil
}

// CurrentUser returns the stored session, or nil when signed out.
func (c *Client) CurrentUser() *session.Data {
	return c.store.Current()
}

func (c *Client) SignUp(ctx context.Context, req user.SignUpRequest) (*session.Data, error) {
	var result user.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/signup", req, false, &result); err != nil {
		return nil, err
	}
	return c.remember(result)
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*session.Data, error) {
	var result user.AuthResult
	req := user.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, false, &result); err != nil {
		return nil, err
	}
	return c.remember(result)
}

// RequestCode asks the API to email a one-time sign-in code.
func (c *Client) RequestCode(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/otp", user.CodeRequest{Email: email}, false, nil)
}

func (c *Client) VerifyCode(ctx context.Context, email, code string) (*session.Data, error) {
	var result user.AuthResult
	req := user.VerifyCodeRequest{Email: email, Code: code}
	if err := c.do(ctx, http.MethodPost, "/auth/otp/verify", req, false, &result); err != nil {
		return nil, err
	}
	return c.remember(result)
}

// Session asks the API whether the stored session is still open.
func (c *Client) Session(ctx context.Context) (*user.SessionInfo, error) {
	var info user.SessionInfo
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, true, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SignOut ends the session on the server and clears the stored one. The
// local copy is cleared even when the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	if c.store.Current() == nil {
		return nil
	}

	remoteErr := c.do(ctx, http.MethodPost, "/auth/logout", nil, true, nil)
	if remoteErr != nil {
		logger.Warn("server sign-out failed", "error", remoteErr)
	}

	if err := c.store.Clear(); err != nil {
		return err
	}
	return remoteErr
}

func (c *Client) Venues(ctx context.Context, city string) ([]venue.Venue, error) {
	path := "/venues"
	if city != "" {
		path += "?" + url.Values{"city": {city}}.Encode()
	}

	var venues []venue.Venue
	if err := c.do(ctx, http.MethodGet, path, nil, false, &venues); err != nil {
		return nil, err
	}
	return venues, nil
}

func (c *Client) MyBookings(ctx context.Context) ([]booking.BookingWithVenue, error) {
	var bookings []booking.BookingWithVenue
	if err := c.do(ctx, http.MethodGet, "/bookings", nil, true, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// FetchIntervals loads the booking intervals of a venue between two dates
// inclusive, so a Client can back an availability.MonthView.
func (c *Client) FetchIntervals(ctx context.Context, venueID int, from, to time.Time) ([]availability.Interval, error) {
	q := url.Values{
		"from": {from.Format(availability.DateLayout)},
		"to":   {to.Format(availability.DateLayout)},
	}
	path := "/venues/" + strconv.Itoa(venueID) + "/bookings?" + q.Encode()

	var resp availability.IntervalsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, false, &resp); err != nil {
		return nil, err
	}
	return resp.Intervals, nil
}

func (c *Client) remember(result user.AuthResult) (*session.Data, error) {
	d := session.Data{
		SessionID:    result.SessionID,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    result.ExpiresAt,
	}
	if u := result.User; u != nil {
		d.UserID = u.ID
		d.Email = u.Email
		d.FirstName = u.FirstName
		d.LastName = u.LastName
		d.PhoneNumber = u.PhoneNumber
		d.Role = u.Role
	}

	if err := c.store.Replace(d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		current := c.store.Current()
		if current == nil || current.AccessToken == "" {
			return ErrNotSignedIn
		}
		req.Header.Set("Authorization", "Bearer "+current.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		payload.Error = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: payload.Error}
}
