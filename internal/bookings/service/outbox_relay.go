package service

import (
	"context"
	"time"
	"tourbook/internal/bookings/repository"
	"tourbook/pkg/config"
	"tourbook/pkg/jobs"
	"tourbook/pkg/metrics"
)

const outboxBatchSize = 50

// OutboxRelay republishes confirmation jobs whose first enqueue failed.
// Entries are retried until they are sent or reach the configured attempt
// limit, after which they stay in the collection for manual inspection.
type OutboxRelay struct {
	outbox repository.OutboxRepository
	queue  jobs.Queue
	cfg    *config.Config
}

func NewOutboxRelay(outbox repository.OutboxRepository, queue jobs.Queue, cfg *config.Config) *OutboxRelay {
	return &OutboxRelay{
		outbox: outbox,
		queue:  queue,
		cfg:    cfg,
	}
}

// Run polls the outbox until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.OutboxPollInterval)
	defer ticker.Stop()

	r.cfg.Log.Info("Outbox relay started",
		"poll_interval", r.cfg.OutboxPollInterval,
		"max_attempts", r.cfg.OutboxMaxAttempts,
	)
	for {
		select {
		case <-ctx.Done():
			r.cfg.Log.Info("Outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil {
				r.cfg.Log.Error("Outbox relay pass failed", "error", err)
			}
		}
	}
}

// RelayOnce makes one pass over pending entries and returns how many were sent.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.outbox.FindPending(ctx, r.cfg.OutboxMaxAttempts, outboxBatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		if err := r.queue.Enqueue(ctx, entry.Job); err != nil {
			r.cfg.Metrics.OutboxRelayed.WithLabelValues(metrics.ResultFailed).Inc()
			if recErr := r.outbox.RecordFailure(ctx, entry.ID, err.Error()); recErr != nil {
				r.cfg.Log.Error("Failed to record outbox failure", "id", entry.ID, "error", recErr)
			}
			if entry.Attempts+1 >= r.cfg.OutboxMaxAttempts {
				r.cfg.Log.Error("Confirmation job exhausted outbox attempts, giving up",
					"id", entry.ID,
					"booking_id", entry.Job.BookingID,
					"recipient_email", entry.Job.RecipientEmail,
					"attempts", entry.Attempts+1,
					"error", err,
				)
			} else {
				r.cfg.Log.Warn("Outbox republish failed", "id", entry.ID, "attempts", entry.Attempts+1, "error", err)
			}
			continue
		}

		if err := r.outbox.MarkSent(ctx, entry.ID); err != nil {
			// The job is already on the queue; a second publish is absorbed by
			// the consumer's dedup.
			r.cfg.Log.Error("Failed to mark outbox entry sent", "id", entry.ID, "error", err)
		}
		r.cfg.Metrics.OutboxRelayed.WithLabelValues(metrics.ResultOK).Inc()
		sent++
	}

	if sent > 0 {
		r.cfg.Log.Info("Outbox entries republished", "count", sent)
	}
	return sent, nil
}
