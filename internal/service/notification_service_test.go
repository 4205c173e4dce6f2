package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sms-core-api/internal/models"
	"github.com/noah-isme/sms-core-api/pkg/config"
)

type channelSender struct {
	sent chan EnrollmentNotice
	err  error
}

func (s *channelSender) Send(ctx context.Context, notice EnrollmentNotice) error {
	if s.err != nil {
		return s.err
	}
	s.sent <- notice
	return nil
}

func TestNotifyEnrollmentDeliversInBackground(t *testing.T) {
	sender := &channelSender{sent: make(chan EnrollmentNotice, 1)}
	metrics := NewMetricsService()
	svc := NewNotificationService(config.NotificationConfig{Workers: 1, BufferSize: 4}, sender, metrics, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	require.NoError(t, svc.NotifyEnrollment(context.Background(), &models.Enrollment{ID: "e1", StudentID: "s1", CourseID: "c1", EnrollmentDate: fixedNow}))

	select {
	case notice := <-sender.sent:
		assert.Equal(t, EnrollmentNotice{EnrollmentID: "e1", StudentID: "s1", CourseID: "c1", EnrolledAt: fixedNow}, notice)
	case <-time.After(2 * time.Second):
		t.Fatal("notice was not delivered")
	}
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.notifications.WithLabelValues("delivered")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNotifyEnrollmentCountsExhaustedDeliveries(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewNotificationService(config.NotificationConfig{Workers: 1, MaxRetries: 1, RetryDelay: time.Millisecond}, &channelSender{err: errors.New("smtp down")}, metrics, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	require.NoError(t, svc.NotifyEnrollment(context.Background(), &models.Enrollment{ID: "e1"}))

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.notifications.WithLabelValues("failed")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNotifyEnrollmentBeforeStartIsDropped(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewNotificationService(config.NotificationConfig{}, nil, metrics, nil)

	assert.Error(t, svc.NotifyEnrollment(context.Background(), &models.Enrollment{ID: "e1"}))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.notifications.WithLabelValues("dropped")))
	assert.NoError(t, svc.NotifyEnrollment(context.Background(), nil))
}
