package lock

import (
	"context"
	"errors"
	"time"
	"tourbook/pkg/metrics"
)

type instrumented struct {
	next    Locker
	metrics *metrics.Metrics
}

// WithMetrics counts every acquisition and release outcome of next.
func WithMetrics(next Locker, m *metrics.Metrics) Locker {
	return &instrumented{next: next, metrics: m}
}

func (l *instrumented) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token, err := l.next.Acquire(ctx, key, ttl)
	switch {
	case err == nil:
		l.metrics.LockAcquisitions.WithLabelValues(metrics.ResultAcquired).Inc()
	case errors.Is(err, ErrBusy):
		l.metrics.LockAcquisitions.WithLabelValues(metrics.ResultBusy).Inc()
	default:
		l.metrics.LockAcquisitions.WithLabelValues(metrics.ResultError).Inc()
	}
	return token, err
}

func (l *instrumented) Release(ctx context.Context, key, token string) (bool, error) {
	released, err := l.next.Release(ctx, key, token)
	switch {
	case err != nil:
		l.metrics.LockReleases.WithLabelValues(metrics.ResultError).Inc()
	case released:
		l.metrics.LockReleases.WithLabelValues(metrics.ResultReleased).Inc()
	default:
		l.metrics.LockReleases.WithLabelValues(metrics.ResultNotOwner).Inc()
	}
	return released, err
}
