package kafka_middleware

import (
	"context"
	"time"
	"tourbook/pkg/kafka"
	"tourbook/pkg/metrics"
)

// MetricsProducerMiddleware observes publish latency, successful or not.
func MetricsProducerMiddleware(m *metrics.Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		m.PublishDuration.Observe(time.Since(start).Seconds())
		return err
	}
}

func MetricsConsumerMiddleware(m *metrics.Metrics) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.ConsumeDuration.Observe(time.Since(start).Seconds())
		return err
	}
}
