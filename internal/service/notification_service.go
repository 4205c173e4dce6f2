package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sms-core-api/internal/models"
	"github.com/noah-isme/sms-core-api/pkg/config"
	"github.com/noah-isme/sms-core-api/pkg/jobs"
)

const notificationJobType = "enrollment_notice"

// EnrollmentNotice is the payload delivered when a student takes a new seat.
type EnrollmentNotice struct {
	EnrollmentID string    `json:"enrollment_id"`
	StudentID    string    `json:"student_id"`
	CourseID     string    `json:"course_id"`
	EnrolledAt   time.Time `json:"enrolled_at"`
}

// NotificationSender delivers a notice to its recipients.
type NotificationSender interface {
	Send(ctx context.Context, notice EnrollmentNotice) error
}

// LogSender writes notices to the structured log. It is the default sender
// until a delivery channel is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the notice.
func (s *LogSender) Send(ctx context.Context, notice EnrollmentNotice) error {
	s.logger.Info("enrollment notification",
		zap.String("enrollment_id", notice.EnrollmentID),
		zap.String("student_id", notice.StudentID),
		zap.String("course_id", notice.CourseID),
	)
	return nil
}

// NotificationService delivers enrollment notices on a background worker pool.
type NotificationService struct {
	queue   *jobs.Queue
	sender  NotificationSender
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService wires the sender into a job queue. Call Start before use.
func NewNotificationService(cfg config.NotificationConfig, sender NotificationSender, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = NewLogSender(logger)
	}
	svc := &NotificationService{sender: sender, metrics: metrics, logger: logger}
	svc.queue = jobs.NewQueue("notifications", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnSuccess: func(jobs.Job) {
			metrics.RecordNotification("delivered")
		},
		OnExhausted: func(job jobs.Job, err error) {
			metrics.RecordNotification("failed")
		},
	})
	return svc
}

func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyEnrollment schedules a notice without blocking. A full buffer is an error
// the caller logs; the enrollment itself is already committed.
func (s *NotificationService) NotifyEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment == nil {
		return nil
	}
	notice := EnrollmentNotice{
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		CourseID:     enrollment.CourseID,
		EnrolledAt:   enrollment.EnrollmentDate,
	}
	if err := s.queue.TryEnqueue(jobs.Job{ID: uuid.NewString(), Type: notificationJobType, Payload: notice}); err != nil {
		s.metrics.RecordNotification("dropped")
		return err
	}
	return nil
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	notice, ok := job.Payload.(EnrollmentNotice)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	return s.sender.Send(ctx, notice)
}
