package availability

import (
	"context"
	"sync"
	"time"
)

// Fetcher loads the booking intervals of a venue between two dates inclusive.
type Fetcher interface {
	FetchIntervals(ctx context.Context, venueID int, from, to time.Time) ([]Interval, error)
}

// MonthView is the state behind a month calendar for one venue: the
// displayed month, its intervals, the selected day and the fetch status.
//
// Each fetch is tagged with a generation number. Navigating or starting a
// new fetch bumps the generation and cancels the previous request, and a
// result that comes back under an old generation is dropped. A failed fetch
// leaves the view in an error state until Retry or navigation.
type MonthView struct {
	fetcher Fetcher
	venueID int

	mu         sync.Mutex
	month      time.Time
	intervals  []Interval
	selected   time.Time
	hasSel     bool
	loading    bool
	err        error
	generation uint64
	cancel     context.CancelFunc
}

func NewMonthView(fetcher Fetcher, venueID int, month time.Time) *MonthView {
	return &MonthView{
		fetcher: fetcher,
		venueID: venueID,
		month:   StartOfMonth(month),
	}
}

func (v *MonthView) VenueID() int {
	return v.venueID
}

func (v *MonthView) Month() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.month
}

// Load fetches the intervals of the displayed month. It returns ErrStale
// when the view moved on before the fetch finished; the result is then
// discarded.
func (v *MonthView) Load(ctx context.Context) error {
	v.mu.Lock()
	v.abortLocked()
	v.generation++
	gen := v.generation
	month := v.month
	ctx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.loading = true
	v.mu.Unlock()

	intervals, err := v.fetcher.FetchIntervals(ctx, v.venueID, StartOfMonth(month), EndOfMonth(month))
	cancel()

	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.generation {
		return ErrStale
	}

	v.loading = false
	v.cancel = nil
	if err != nil {
		v.intervals = nil
		v.err = err
		return err
	}

	v.intervals = intervals
	v.err = nil
	return nil
}

// LoadAsync runs Load on its own goroutine and reports its result.
func (v *MonthView) LoadAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- v.Load(ctx)
	}()
	return done
}

// Retry re-issues the fetch for the displayed month.
func (v *MonthView) Retry(ctx context.Context) error {
	return v.Load(ctx)
}

func (v *MonthView) Next() time.Time {
	return v.advance(1)
}

func (v *MonthView) Previous() time.Time {
	return v.advance(-1)
}

func (v *MonthView) advance(delta int) time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.abortLocked()
	v.generation++
	v.month = AdvanceMonth(v.month, delta)
	v.intervals = nil
	v.err = nil
	v.loading = false
	v.hasSel = false
	v.selected = time.Time{}

	return v.month
}

func (v *MonthView) abortLocked() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

// Select marks day as the selected date. Days outside the displayed month
// are rejected.
func (v *MonthView) Select(day time.Time) error {
	day = DateOf(day)

	v.mu.Lock()
	defer v.mu.Unlock()

	if !StartOfMonth(day).Equal(v.month) {
		return ErrOutsideMonth
	}
	v.selected = day
	v.hasSel = true
	return nil
}

func (v *MonthView) ClearSelection() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hasSel = false
	v.selected = time.Time{}
}

func (v *MonthView) Selected() (time.Time, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected, v.hasSel
}

func (v *MonthView) DayStatus(day time.Time) DayStatus {
	v.mu.Lock()
	intervals := v.intervals
	v.mu.Unlock()
	return DayStatusFor(day, intervals)
}

// Detail describes the selected day, or returns false when nothing is selected.
func (v *MonthView) Detail() (Detail, bool) {
	v.mu.Lock()
	day, ok := v.selected, v.hasSel
	intervals := v.intervals
	v.mu.Unlock()

	if !ok {
		return Detail{}, false
	}
	status := DayStatusFor(day, intervals)
	return Detail{Date: day, Status: status, Label: status.Label()}, true
}

func (v *MonthView) Grid() []Cell {
	return BuildCalendarGrid(v.Month())
}

func (v *MonthView) Intervals() []Interval {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.intervals
}

func (v *MonthView) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

func (v *MonthView) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}
