package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"karyalay/internal/logger"
	"karyalay/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey       = "emails"
	failedQueueKey = "emails:failed"
	maxTries       = 3

	TypeConfirmation = "confirmation"
	TypeReminder     = "reminder"
	TypeCancellation = "cancellation"
	TypeSignInCode   = "sign_in_code"
	TypeGeneric      = "generic"
)

type EmailJob struct {
	Type    string    `json:"type"`
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Notice describes the booking an email is about.
type Notice struct {
	BookingID       int
	VenueName       string
	VenueAddress    string
	StartDate       time.Time
	EndDate         time.Time
	StartTime       string
	EndTime         string
	TotalPriceCents int64
}

func (n Notice) dates() string {
	start := n.StartDate.Format("Mon, Jan 2, 2006")
	if n.EndDate.Equal(n.StartDate) {
		return start
	}
	return start + " to " + n.EndDate.Format("Mon, Jan 2, 2006")
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
	FromName string
}

type Service struct {
	redis      redis.Cmdable
	smtp       SMTPConfig
	deliver    func(job EmailJob) error
	retryDelay time.Duration
}

func New(cfg SMTPConfig, rdb redis.Cmdable) *Service {
	s := &Service{
		redis:      rdb,
		smtp:       cfg,
		retryDelay: 5 * time.Second,
	}
	s.deliver = s.sendNow
	return s
}

// Send queues an email for the background worker.
func (s *Service) Send(ctx context.Context, emailType, to, name, subject, body string) error {
	job := EmailJob{
		Type:    emailType,
		To:      to,
		Name:    name,
		Subject: subject,
		Body:    body,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}

	if err := s.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		logger.Error("failed to queue email", "to", to, "type", emailType, "error", err)
		metrics.RecordEmail(emailType, "queue_failed")
		return fmt.Errorf("queue email: %w", err)
	}

	metrics.RecordEmail(emailType, "queued")
	logger.Info("email queued", "to", to, "type", emailType, "subject", subject)
	return nil
}

// Start consumes the queue until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	logger.Info("email worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("email worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

// processNext handles at most one job and reports whether one was taken.
func (s *Service) processNext(ctx context.Context) bool {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return false
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Error("bad email job", "error", err)
		return true
	}

	job.Tries++
	if err := s.deliver(job); err != nil {
		logger.Error("failed to send email", "to", job.To, "attempt", job.Tries, "error", err)

		if job.Tries < maxTries {
			s.requeue(ctx, job)
		} else {
			s.saveFailed(ctx, job, err)
		}
		return true
	}

	metrics.RecordEmail(job.Type, "sent")
	logger.Info("email sent", "to", job.To, "type", job.Type, "attempt", job.Tries)
	return true
}

func (s *Service) requeue(ctx context.Context, job EmailJob) {
	select {
	case <-ctx.Done():
	case <-time.After(s.retryDelay):
	}

	data, _ := json.Marshal(job)
	if err := s.redis.LPush(context.WithoutCancel(ctx), queueKey, string(data)).Err(); err != nil {
		logger.Error("failed to requeue email", "to", job.To, "error", err)
		return
	}
	metrics.RecordEmail(job.Type, "retried")
}

func (s *Service) sendNow(job EmailJob) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.smtp.FromName, s.smtp.From)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "Content-Type: text/plain; charset=UTF-8\r\n"
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtp.User != "" && s.smtp.Password != "" {
		auth = smtp.PlainAuth("", s.smtp.User, s.smtp.Password, s.smtp.Host)
	}

	addr := s.smtp.Host + ":" + s.smtp.Port
	return smtp.SendMail(addr, auth, s.smtp.From, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(ctx context.Context, job EmailJob, err error) {
	failed := map[string]any{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)

	metrics.RecordEmail(job.Type, "failed")
	if pushErr := s.redis.LPush(context.WithoutCancel(ctx), failedQueueKey, string(data)).Err(); pushErr != nil {
		logger.Error("email dropped, failed queue unavailable",
			"to", job.To, "tries", job.Tries, "send_error", err, "error", pushErr)
		return
	}
	logger.Error("email moved to failed queue", "to", job.To, "tries", job.Tries)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	metrics.EmailQueueLength.Set(float64(length))
	return length
}

func (s *Service) SendBookingConfirmation(ctx context.Context, to, name string, n Notice) error {
	subject := "Booking Received - " + n.VenueName
	body := fmt.Sprintf(`Hi %s,

We have received your booking request #%d.

Venue: %s
Address: %s
Dates: %s
Time: %s - %s
Total: %s

We will let you know once the venue confirms it.

- Karyalay Team`, name, n.BookingID, n.VenueName, n.VenueAddress, n.dates(), n.StartTime, n.EndTime, FormatRupees(n.TotalPriceCents))

	return s.Send(ctx, TypeConfirmation, to, name, subject, body)
}

func (s *Service) SendReminder(ctx context.Context, to, name string, n Notice) error {
	subject := "Reminder: " + n.VenueName + " Tomorrow"
	body := fmt.Sprintf(`Hi %s,

This is a reminder about your booking starting tomorrow:

Venue: %s
Address: %s
Dates: %s
Time: %s - %s

Have a wonderful event!

- Karyalay Team`, name, n.VenueName, n.VenueAddress, n.dates(), n.StartTime, n.EndTime)

	return s.Send(ctx, TypeReminder, to, name, subject, body)
}

func (s *Service) SendCancellation(ctx context.Context, to, name string, n Notice) error {
	subject := "Booking Cancelled - " + n.VenueName
	body := fmt.Sprintf(`Hi %s,

Your booking #%d has been cancelled:

Venue: %s
Dates: %s

- Karyalay Team`, name, n.BookingID, n.VenueName, n.dates())

	return s.Send(ctx, TypeCancellation, to, name, subject, body)
}

func (s *Service) SendSignInCode(ctx context.Context, to, code string) error {
	subject := "Your Karyalay sign-in code"
	body := fmt.Sprintf(`Hi,

Your sign-in code is %s. It expires in 10 minutes.

If you did not ask for this code you can ignore this email.

- Karyalay Team`, code)

	return s.Send(ctx, TypeSignInCode, to, "", subject, body)
}

// FormatRupees renders paise as "₹1,234.50".
func FormatRupees(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := fmt.Sprintf("%d", cents/100)
	for i := len(whole) - 3; i > 0; i -= 3 {
		whole = whole[:i] + "," + whole[i:]
	}
	return fmt.Sprintf("%s₹%s.%02d", sign, whole, cents%100)
}
