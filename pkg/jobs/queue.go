// Package jobs hands post-commit work to the durable job queue.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"tourbook/pkg/kafka"
	"tourbook/pkg/model"
)

const (
	SchemaVersion = "1"
	Source        = "bookings"
)

var ErrInvalidJob = errors.New("invalid notification job")

type Queue interface {
	// Enqueue returns once the job is durably accepted by the queue.
	Enqueue(ctx context.Context, job model.NotificationJob) error
}

type publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaQueue publishes jobs keyed by booking id, so every job for one booking
// lands on the same partition.
type KafkaQueue struct {
	producer publisher
}

func NewKafkaQueue(producer publisher) *KafkaQueue {
	return &KafkaQueue{producer: producer}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, job model.NotificationJob) error {
	if job.BookingID == "" || job.JobKind == "" {
		return fmt.Errorf("%w: booking id and job kind are required", ErrInvalidJob)
	}

	msg, err := NewMessage(job)
	if err != nil {
		return err
	}

	if err := q.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to enqueue %s job for booking %s: %w", job.JobKind, job.BookingID, err)
	}
	return nil
}

func NewMessage(job model.NotificationJob) (kafka.Message, error) {
	return kafka.NewMessage().
		WithKey(job.BookingID).
		WithEventType(job.JobKind).
		WithEventID("").
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithValue(job).
		Build()
}

// Decode reads a job back from a consumed message.
func Decode(msg kafka.Message) (model.NotificationJob, error) {
	var job model.NotificationJob
	if err := msg.DecodeValue(&job); err != nil {
		return job, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if job.JobKind == "" {
		job.JobKind = msg.GetEventType()
	}
	if job.BookingID == "" {
		return job, fmt.Errorf("%w: missing booking id", ErrInvalidJob)
	}
	return job, nil
}
