package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"

	"kickgym/internal/logger"
	"kickgym/internal/metrics"
)

const (
	queueKey       = "kickgym:emails"
	failedQueueKey = "kickgym:emails:failed"
	maxTries       = 3
	retryDelay     = 5 * time.Second
	whenLayout     = "Mon, Jan 2 2006 at 15:04"
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

type Config struct {
	From     string
	FromName string
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	// Location renders session times in the gym's local time.
	Location *time.Location
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	redis    *redis.Client
	cfg      Config
	sendMail sendMailFunc
}

func New(cfg Config, redisAddr string) *Service {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: redisAddr}), cfg)
}

func NewWithClient(rdb *redis.Client, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{redis: rdb, cfg: cfg, sendMail: smtp.SendMail}
}

// Send queues a message; the worker started by Start delivers it.
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
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		metrics.RecordEmail(emailType, "queue_failed")
		logger.Error("failed to queue email", "type", emailType, "to", to, "error", err)
		return err
	}

	metrics.RecordEmail(emailType, "queued")
	logger.Debug("email queued", "type", emailType, "to", to)
	return nil
}

// Start delivers queued emails until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	logger.Info("email worker started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("email worker stopped")
			return nil
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Error("dropping malformed email job", "error", err)
		return
	}

	job.Tries++
	if err := s.deliver(job); err != nil {
		s.retry(ctx, job, err)
		return
	}

	metrics.RecordEmail(job.Type, "sent")
	logger.Info("email sent", "type", job.Type, "to", job.To, "attempt", job.Tries)
}

func (s *Service) retry(ctx context.Context, job EmailJob, cause error) {
	logger.Warn("email delivery failed", "type", job.Type, "to", job.To, "attempt", job.Tries, "error", cause)

	data, _ := json.Marshal(job)
	if job.Tries >= maxTries {
		failed, _ := json.Marshal(map[string]interface{}{
			"job":   json.RawMessage(data),
			"error": cause.Error(),
			"time":  time.Now(),
		})
		s.redis.LPush(context.WithoutCancel(ctx), failedQueueKey, string(failed))
		metrics.RecordEmail(job.Type, "failed")
		logger.Error("email moved to failed queue", "type", job.Type, "to", job.To)
		return
	}

	select {
	case <-ctx.Done():
	case <-time.After(retryDelay):
	}
	s.redis.LPush(context.WithoutCancel(ctx), queueKey, string(data))
}

func (s *Service) deliver(job EmailJob) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.cfg.FromName, s.cfg.From)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" && s.cfg.SMTPPass != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}

	return s.sendMail(s.cfg.SMTPHost+":"+s.cfg.SMTPPort, auth, s.cfg.From, []string{job.To}, []byte(message))
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	metrics.EmailQueueLength.Set(float64(length))
	return length
}

func (s *Service) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func (s *Service) Close() error {
	return s.redis.Close()
}

func (s *Service) when(t time.Time) string {
	return t.In(s.cfg.Location).Format(whenLayout)
}
