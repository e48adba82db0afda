package service

import (
	"context"
	"errors"
	"testing"
	"time"
	"tourbook/pkg/config"
	"tourbook/pkg/logger"
	"tourbook/pkg/metrics"
	"tourbook/pkg/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRelay(outbox *mockOutbox, queue *mockQueue) (*OutboxRelay, *config.Config) {
	cfg := &config.Config{
		Log:                logger.Discard(),
		Metrics:            metrics.NewNop(),
		OutboxPollInterval: 10 * time.Millisecond,
		OutboxMaxAttempts:  3,
	}
	return NewOutboxRelay(outbox, queue, cfg), cfg
}

func pendingEntry(id, bookingID string) *model.OutboxEntry {
	return &model.OutboxEntry{
		ID:     id,
		Status: model.OutboxStatusPending,
		Job: model.NotificationJob{
			BookingID:      bookingID,
			RecipientEmail: "traveler@example.com",
			JobKind:        model.JobKindSendConfirmation,
		},
	}
}

func TestRelayOnce_RepublishesPending(t *testing.T) {
	outbox := &mockOutbox{pending: []*model.OutboxEntry{
		pendingEntry("o-1", "b-1"),
		pendingEntry("o-2", "b-2"),
	}}
	queue := &mockQueue{}
	relay, cfg := newRelay(outbox, queue)

	sent, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{"o-1", "o-2"}, outbox.sent)
	assert.Equal(t, 2, queue.count())
	assert.Equal(t, 2.0, testutil.ToFloat64(cfg.Metrics.OutboxRelayed.WithLabelValues(metrics.ResultOK)))
}

func TestRelayOnce_RecordsFailureUntilAttemptsExhausted(t *testing.T) {
	outbox := &mockOutbox{pending: []*model.OutboxEntry{pendingEntry("o-1", "b-1")}}
	queue := &mockQueue{err: errors.New("broker unreachable")}
	relay, cfg := newRelay(outbox, queue)

	for range 5 {
		sent, err := relay.RelayOnce(context.Background())
		require.NoError(t, err)
		assert.Zero(t, sent)
	}

	assert.Len(t, outbox.failed, 3, "entries stop being retried at the attempt limit")
	assert.Equal(t, 3, outbox.pending[0].Attempts)
	assert.Equal(t, "broker unreachable", outbox.pending[0].LastError)
	assert.Empty(t, outbox.sent)
	assert.Equal(t, 3.0, testutil.ToFloat64(cfg.Metrics.OutboxRelayed.WithLabelValues(metrics.ResultFailed)))
}

func TestRun_StopsOnCancel(t *testing.T) {
	outbox := &mockOutbox{pending: []*model.OutboxEntry{pendingEntry("o-1", "b-1")}}
	queue := &mockQueue{}
	relay, _ := newRelay(outbox, queue)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return queue.count() > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
