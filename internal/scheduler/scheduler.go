// Package scheduler runs the periodic booking jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"karyalay/internal/logger"
	"karyalay/internal/metrics"

	"github.com/robfig/cron/v3"
)

const (
	JobReminders  = "booking_reminders"
	JobCompletion = "booking_completion"
	JobEmailQueue = "email_queue_gauge"

	defaultJobTimeout = 5 * time.Minute
)

// BookingJobs is the booking work the scheduler drives.
type BookingJobs interface {
	SendReminders(ctx context.Context, day time.Time) (int, error)
	CompleteFinished(ctx context.Context, today time.Time) (int64, error)
}

type QueueGauge interface {
	QueueLength(ctx context.Context) int64
}

type Scheduler struct {
	cron    *cron.Cron
	loc     *time.Location
	now     func() time.Time
	timeout time.Duration
}

func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		loc:     loc,
		now:     time.Now,
		timeout: defaultJobTimeout,
	}
}

// Add registers fn under a standard five-field cron spec or a descriptor
// such as "@every 1m".
func (s *Scheduler) Add(name, spec string, fn func(ctx context.Context) error) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, fn) }); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	logger.Info("job scheduled", "job", name, "spec", spec)
	return nil
}

func (s *Scheduler) run(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	if err := fn(ctx); err != nil {
		metrics.RecordJobRun(name, "error")
		logger.Error("scheduled job failed", "job", name, "error", err)
		return
	}
	metrics.RecordJobRun(name, "ok")
	logger.Debug("scheduled job finished", "job", name, "duration", time.Since(started))
}

// RegisterBookingJobs schedules the reminder and completion jobs.
func (s *Scheduler) RegisterBookingJobs(jobs BookingJobs, reminderSpec, completionSpec string) error {
	if err := s.Add(JobReminders, reminderSpec, func(ctx context.Context) error {
		return s.Reminders(ctx, jobs)
	}); err != nil {
		return err
	}
	return s.Add(JobCompletion, completionSpec, func(ctx context.Context) error {
		return s.Completion(ctx, jobs)
	})
}

// RegisterQueueGauge refreshes the email queue length metric every minute.
func (s *Scheduler) RegisterQueueGauge(q QueueGauge) error {
	return s.Add(JobEmailQueue, "@every 1m", func(ctx context.Context) error {
		q.QueueLength(ctx)
		return nil
	})
}

// Reminders mails everyone whose booking starts tomorrow in the scheduler's location.
func (s *Scheduler) Reminders(ctx context.Context, jobs BookingJobs) error {
	tomorrow := s.today().AddDate(0, 0, 1)
	sent, err := jobs.SendReminders(ctx, tomorrow)
	if err != nil {
		return err
	}
	logger.Info("booking reminders queued", "day", tomorrow.Format("2006-01-02"), "count", sent)
	return nil
}

// Completion closes confirmed bookings whose last day is before today.
func (s *Scheduler) Completion(ctx context.Context, jobs BookingJobs) error {
	n, err := jobs.CompleteFinished(ctx, s.today())
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("bookings completed", "count", n)
	}
	return nil
}

// today is the current civil date in the scheduler's location, as midnight UTC.
func (s *Scheduler) today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
