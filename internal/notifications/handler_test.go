package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"tourbook/pkg/cache"
	"tourbook/pkg/jobs"
	"tourbook/pkg/kafka"
	"tourbook/pkg/logger"
	"tourbook/pkg/metrics"
	"tourbook/pkg/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []model.NotificationJob
	err  error
}

func (s *recordingSender) SendConfirmation(ctx context.Context, job model.NotificationJob) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, job)
	return nil
}

func newTestHandler(t *testing.T, sender Sender) (*Handler, *miniredis.Miniredis, *metrics.Metrics) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	m := metrics.NewNop()
	return NewHandler(sender, cache.NewStore(rdb), 24*time.Hour, logger.Discard(), m), mr, m
}

func confirmationMessage(t *testing.T, bookingID string) kafka.Message {
	t.Helper()
	msg, err := jobs.NewMessage(model.NotificationJob{
		BookingID:      bookingID,
		UserID:         "user-1",
		TourID:         "65f1c2a9e4b0a1b2c3d4e5f6",
		RecipientEmail: "traveler@example.com",
		TourName:       "Fjord Hike",
		JobKind:        model.JobKindSendConfirmation,
	})
	require.NoError(t, err)
	return msg
}

func TestHandle_DeliversAndMarks(t *testing.T) {
	sender := &recordingSender{}
	h, mr, m := newTestHandler(t, sender)

	require.NoError(t, h.Handle(context.Background(), confirmationMessage(t, "b-1")))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "traveler@example.com", sender.sent[0].RecipientEmail)
	assert.True(t, mr.Exists(SentKey("b-1")))
	assert.Equal(t, 24*time.Hour, mr.TTL(SentKey("b-1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(metrics.ResultDelivered)))
}

func TestHandle_RedeliveryIsAcknowledgedWithoutResend(t *testing.T) {
	sender := &recordingSender{}
	h, _, m := newTestHandler(t, sender)
	msg := confirmationMessage(t, "b-1")

	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), msg))

	assert.Len(t, sender.sent, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(metrics.ResultDuplicate)))
}

func TestHandle_MarkerExpires(t *testing.T) {
	sender := &recordingSender{}
	h, mr, _ := newTestHandler(t, sender)
	msg := confirmationMessage(t, "b-1")

	require.NoError(t, h.Handle(context.Background(), msg))
	mr.FastForward(25 * time.Hour)
	require.NoError(t, h.Handle(context.Background(), msg))

	assert.Len(t, sender.sent, 2)
}

func TestHandle_SendFailureIsTransient(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp timeout")}
	h, mr, _ := newTestHandler(t, sender)

	err := h.Handle(context.Background(), confirmationMessage(t, "b-1"))
	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypeTransient, kafka.ClassifyError(err))
	assert.False(t, mr.Exists(SentKey("b-1")), "failed delivery must not be marked")
}

func TestHandle_UnknownKindIsPermanent(t *testing.T) {
	sender := &recordingSender{}
	h, _, _ := newTestHandler(t, sender)

	msg, err := jobs.NewMessage(model.NotificationJob{BookingID: "b-1", JobKind: "send-invoice"})
	require.NoError(t, err)

	err = h.Handle(context.Background(), msg)
	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
	assert.Empty(t, sender.sent)
}

func TestHandle_MalformedPayloadIsPermanent(t *testing.T) {
	h, _, _ := newTestHandler(t, &recordingSender{})

	err := h.Handle(context.Background(), kafka.Message{Key: "b-1", Value: []byte("not json")})
	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
}

func TestHandle_DedupStoreDownStillDelivers(t *testing.T) {
	sender := &recordingSender{}
	h, mr, _ := newTestHandler(t, sender)
	mr.Close()

	require.NoError(t, h.Handle(context.Background(), confirmationMessage(t, "b-1")))
	assert.Len(t, sender.sent, 1)
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(logger.Discard())
	assert.NoError(t, s.SendConfirmation(context.Background(), model.NotificationJob{BookingID: "b-1"}))
}
