// Package notifications consumes confirmation jobs from the booking queue.
package notifications

import (
	"context"
	"fmt"
	"time"
	"tourbook/pkg/jobs"
	"tourbook/pkg/kafka"
	"tourbook/pkg/logger"
	"tourbook/pkg/metrics"
	"tourbook/pkg/model"
)

const sentKeyPrefix = "notification:sent:"

// Deduplicator remembers which bookings were already notified.
type Deduplicator interface {
	Exists(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) error
}

type Handler struct {
	sender   Sender
	dedup    Deduplicator
	dedupTTL time.Duration
	log      *logger.Logger
	metrics  *metrics.Metrics
}

func NewHandler(sender Sender, dedup Deduplicator, dedupTTL time.Duration, log *logger.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		sender:   sender,
		dedup:    dedup,
		dedupTTL: dedupTTL,
		log:      log,
		metrics:  m,
	}
}

func SentKey(bookingID string) string {
	return sentKeyPrefix + bookingID
}

// Handle is a kafka.MessageHandler. Malformed payloads and unknown job kinds
// are permanent and go to the dead-letter topic; delivery failures are
// transient and retried by the consumer.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	job, err := jobs.Decode(msg)
	if err != nil {
		h.metrics.Notifications.WithLabelValues(metrics.ResultFailed).Inc()
		return kafka.NewPermanentError("malformed notification job", err)
	}

	switch job.JobKind {
	case model.JobKindSendConfirmation:
		return h.confirm(ctx, job)
	default:
		h.metrics.Notifications.WithLabelValues(metrics.ResultFailed).Inc()
		return kafka.NewPermanentError(fmt.Sprintf("unknown job kind %q", job.JobKind), nil)
	}
}

func (h *Handler) confirm(ctx context.Context, job model.NotificationJob) error {
	key := SentKey(job.BookingID)

	// A failed lookup falls through to delivery; a rare duplicate email is
	// preferred over a lost one.
	sent, err := h.dedup.Exists(ctx, key)
	if err != nil {
		h.log.Warn("Dedup lookup failed, delivering anyway", "booking_id", job.BookingID, "error", err)
	}
	if sent {
		h.metrics.Notifications.WithLabelValues(metrics.ResultDuplicate).Inc()
		h.log.Info("Duplicate confirmation job skipped", "booking_id", job.BookingID)
		return nil
	}

	if err := h.sender.SendConfirmation(ctx, job); err != nil {
		h.metrics.Notifications.WithLabelValues(metrics.ResultFailed).Inc()
		return kafka.NewTransientError("failed to send confirmation", err)
	}

	if err := h.dedup.Mark(ctx, key, h.dedupTTL); err != nil {
		h.log.Warn("Failed to record delivered confirmation", "booking_id", job.BookingID, "error", err)
	}
	h.metrics.Notifications.WithLabelValues(metrics.ResultDelivered).Inc()
	return nil
}
